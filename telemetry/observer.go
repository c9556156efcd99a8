// Package telemetry instruments a declared graph: it rewrites a graph's
// resolver callables to record a matched start/finish observation around
// every invocation, without changing any resolver's result. Observations
// flow through an Observer capability; backends are provided for the
// in-process event bus and for OpenTelemetry traces.
package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/slavikovbasa/hiku/internal/eventbus"
)

// Handle observes invocations of one named resolver. Start marks the
// beginning of an invocation and returns its finish func; the caller must
// invoke finish exactly once with the invocation's outcome (nil on success).
type Handle interface {
	Start(ctx context.Context) (finish func(err error))
}

// Observer creates observation handles. Observe is called once per resolver
// at transform time; the returned handle is shared by all invocations of
// that resolver and must be safe for concurrent use.
type Observer interface {
	Observe(name string) Handle
}

// NopObserver discards all observations.
type NopObserver struct{}

func (NopObserver) Observe(name string) Handle { return nopHandle{} }

type nopHandle struct{}

func (nopHandle) Start(context.Context) func(error) { return func(error) {} }

// ResolveStart is published when an instrumented resolver is invoked.
type ResolveStart struct {
	ID   int64
	Name string
}

// ResolveFinish is published when the invocation completes, on success,
// failure and cancellation alike. ID pairs it with its ResolveStart.
type ResolveFinish struct {
	ID       int64
	Name     string
	Err      error
	Duration time.Duration
}

// ExecuteStart is published when the engine begins executing a query.
type ExecuteStart struct {
	Graph string
}

// ExecuteFinish is published when query execution completes.
type ExecuteFinish struct {
	Graph    string
	Err      error
	Duration time.Duration
}

// EventObserver publishes ResolveStart/ResolveFinish pairs on the global
// event bus. The zero value is ready to use.
type EventObserver struct{}

func (EventObserver) Observe(name string) Handle { return &eventHandle{name: name} }

var invocationID atomic.Int64

type eventHandle struct {
	name string
}

func (h *eventHandle) Start(ctx context.Context) func(error) {
	id := invocationID.Add(1)
	started := time.Now()
	eventbus.Publish(ctx, ResolveStart{ID: id, Name: h.name})
	return func(err error) {
		eventbus.Publish(ctx, ResolveFinish{
			ID:       id,
			Name:     h.name,
			Err:      err,
			Duration: time.Since(started),
		})
	}
}
