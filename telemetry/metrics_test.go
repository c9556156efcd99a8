package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slavikovbasa/hiku/graph"
	"github.com/slavikovbasa/hiku/internal/eventbus"
	"github.com/slavikovbasa/hiku/query"
	"github.com/slavikovbasa/hiku/types"
)

func asyncGraph(t *testing.T, d *graph.Deferred) *graph.Graph {
	t.Helper()
	g, err := graph.New("app",
		&graph.Node{},
		&graph.Node{
			Name: "User",
			Fields: []*graph.Field{{
				Name: "name", Type: types.String(),
				AsyncResolver: func(ctx context.Context, fields []*query.Field, ids []any) *graph.Deferred {
					return d
				},
			}},
		},
	)
	require.NoError(t, err)
	return g
}

func TestAsyncMetricsObservesCompletion(t *testing.T) {
	d := graph.NewDeferred()
	rec := &recorder{}
	out := Transform(asyncGraph(t, d), rec, AsyncMetrics{})

	got := out.NodeByName("User").FieldByName("name").AsyncResolver(context.Background(), nil, nil)
	require.Same(t, d, got)

	// The finish observation waits for completion, not for the call return.
	require.Equal(t, []string{"start app.User.name"}, rec.all())

	d.Resolve([][]any{{"ann"}})
	require.Equal(t, []string{
		"start app.User.name",
		"finish app.User.name",
	}, rec.all())

	v, err := got.Result()
	require.NoError(t, err)
	require.Equal(t, [][]any{{"ann"}}, v)
}

func TestAsyncMetricsObservesFailure(t *testing.T) {
	boom := errors.New("boom")
	d := graph.NewDeferred()
	rec := &recorder{}
	out := Transform(asyncGraph(t, d), rec, AsyncMetrics{})

	got := out.NodeByName("User").FieldByName("name").AsyncResolver(context.Background(), nil, nil)
	d.Reject(boom)

	require.Equal(t, []string{
		"start app.User.name",
		"finish app.User.name err=boom",
	}, rec.all())
	_, err := got.Result()
	require.ErrorIs(t, err, boom)
}

func TestAsyncMetricsObservesCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	d := graph.NewDeferred()
	d.BindContext(ctx)

	rec := &recorder{}
	out := Transform(asyncGraph(t, d), rec, AsyncMetrics{})
	got := out.NodeByName("User").FieldByName("name").AsyncResolver(ctx, nil, nil)

	cancel()
	<-got.Done()

	require.Equal(t, []string{
		"start app.User.name",
		"finish app.User.name err=context canceled",
	}, rec.all())
}

func TestAsyncMetricsObservesCancellationOfUnboundDeferred(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	// The producer never completes the deferred and never binds the context
	// itself; the wrapper still has to close the observation pair.
	d := graph.NewDeferred()

	rec := &recorder{}
	out := Transform(asyncGraph(t, d), rec, AsyncMetrics{})
	got := out.NodeByName("User").FieldByName("name").AsyncResolver(ctx, nil, nil)

	cancel()
	<-got.Done()

	require.Equal(t, []string{
		"start app.User.name",
		"finish app.User.name err=context canceled",
	}, rec.all())
}

func TestAsyncMetricsFinishFiresOnce(t *testing.T) {
	d := graph.NewDeferred()
	rec := &recorder{}
	out := Transform(asyncGraph(t, d), rec, AsyncMetrics{})

	out.NodeByName("User").FieldByName("name").AsyncResolver(context.Background(), nil, nil)
	d.Resolve(nil)
	d.Resolve(nil)
	d.Reject(errors.New("late"))

	require.Equal(t, []string{
		"start app.User.name",
		"finish app.User.name",
	}, rec.all())
}

func TestEventObserverPublishesPairedEvents(t *testing.T) {
	eventbus.Use(eventbus.New())
	defer eventbus.Use(nil)

	var starts []ResolveStart
	var finishes []ResolveFinish
	eventbus.Subscribe(func(ctx context.Context, e ResolveStart) { starts = append(starts, e) })
	eventbus.Subscribe(func(ctx context.Context, e ResolveFinish) { finishes = append(finishes, e) })

	h := EventObserver{}.Observe("app.User.name")
	finish := h.Start(context.Background())
	finish(nil)
	finish2 := h.Start(context.Background())
	finish2(errors.New("boom"))

	require.Len(t, starts, 2)
	require.Len(t, finishes, 2)
	require.Equal(t, starts[0].ID, finishes[0].ID)
	require.Equal(t, starts[1].ID, finishes[1].ID)
	require.NotEqual(t, starts[0].ID, starts[1].ID)
	require.NoError(t, finishes[0].Err)
	require.ErrorContains(t, finishes[1].Err, "boom")
	require.Equal(t, "app.User.name", starts[0].Name)
}
