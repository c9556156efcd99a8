package graph

import (
	"context"
	"sync"
)

// Deferred is a single-assignment promise used by asynchronous resolvers.
// The first Resolve or Reject wins; continuations registered with OnComplete
// each fire exactly once, in registration order, whether registered before or
// after completion.
type Deferred struct {
	mu        sync.Mutex
	done      chan struct{}
	value     any
	err       error
	completed bool
	callbacks []func(any, error)
}

func NewDeferred() *Deferred {
	return &Deferred{done: make(chan struct{})}
}

// Resolved returns a Deferred already completed with v.
func Resolved(v any) *Deferred {
	d := NewDeferred()
	d.Resolve(v)
	return d
}

// Failed returns a Deferred already completed with err.
func Failed(err error) *Deferred {
	d := NewDeferred()
	d.Reject(err)
	return d
}

// Resolve completes the deferred with a value. No-op after completion.
func (d *Deferred) Resolve(v any) { d.complete(v, nil) }

// Reject completes the deferred with an error. No-op after completion.
func (d *Deferred) Reject(err error) { d.complete(nil, err) }

func (d *Deferred) complete(v any, err error) {
	d.mu.Lock()
	if d.completed {
		d.mu.Unlock()
		return
	}
	d.completed = true
	d.value, d.err = v, err
	callbacks := d.callbacks
	d.callbacks = nil
	d.mu.Unlock()

	for _, fn := range callbacks {
		fn(v, err)
	}
	close(d.done)
}

// OnComplete registers a continuation. If the deferred is already complete
// the continuation runs inline.
func (d *Deferred) OnComplete(fn func(v any, err error)) {
	d.mu.Lock()
	if !d.completed {
		d.callbacks = append(d.callbacks, fn)
		d.mu.Unlock()
		return
	}
	v, err := d.value, d.err
	d.mu.Unlock()
	fn(v, err)
}

// Done is closed once the deferred has completed and the continuations
// registered before completion have run. Continuations must not block on
// Done themselves.
func (d *Deferred) Done() <-chan struct{} { return d.done }

// Result returns the outcome. It must only be called after Done is closed.
func (d *Deferred) Result() (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.err
}

// Wait blocks until completion or context cancellation.
func (d *Deferred) Wait(ctx context.Context) (any, error) {
	select {
	case <-d.done:
		return d.Result()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// BindContext rejects the deferred with ctx.Err() if ctx is cancelled before
// the producer completes it. The returned stop func detaches the binding.
func (d *Deferred) BindContext(ctx context.Context) (stop func() bool) {
	return context.AfterFunc(ctx, func() {
		d.Reject(ctx.Err())
	})
}
