package telemetry

import (
	"context"

	"github.com/slavikovbasa/hiku/graph"
	"github.com/slavikovbasa/hiku/query"
)

// Metrics instruments graphs whose resolvers are plain synchronous
// callables: the finish observation is recorded after the resolver returns,
// before its value or error is handed back.
type Metrics struct{}

func (Metrics) WrapField(h Handle, r graph.FieldResolver) graph.FieldResolver {
	return func(ctx context.Context, fields []*query.Field, ids []any) ([][]any, error) {
		finish := h.Start(ctx)
		rows, err := r(ctx, fields, ids)
		finish(err)
		return rows, err
	}
}

func (Metrics) WrapLink(h Handle, r graph.LinkResolver) graph.LinkResolver {
	return func(ctx context.Context, ids []any) (any, error) {
		finish := h.Start(ctx)
		v, err := r(ctx, ids)
		finish(err)
		return v, err
	}
}

func (Metrics) WrapSubquery(h Handle, r graph.SubqueryResolver) graph.SubqueryResolver {
	return wrapSubquery(h, r)
}

// AsyncMetrics instruments graphs whose resolvers return a Deferred: the
// finish observation runs as a completion continuation, so the recorded
// duration covers the resolution itself, not just its scheduling. The
// wrapper binds the deferred to the call context, so the continuation fires
// on success, failure and cancellation alike; every start observation gets
// its finish even when the producer abandons the deferred.
type AsyncMetrics struct{}

func (AsyncMetrics) WrapAsyncField(h Handle, r graph.AsyncFieldResolver) graph.AsyncFieldResolver {
	return func(ctx context.Context, fields []*query.Field, ids []any) *graph.Deferred {
		finish := h.Start(ctx)
		d := r(ctx, fields, ids)
		d.BindContext(ctx)
		d.OnComplete(func(_ any, err error) { finish(err) })
		return d
	}
}

func (AsyncMetrics) WrapAsyncLink(h Handle, r graph.AsyncLinkResolver) graph.AsyncLinkResolver {
	return func(ctx context.Context, ids []any) *graph.Deferred {
		finish := h.Start(ctx)
		d := r(ctx, ids)
		d.BindContext(ctx)
		d.OnComplete(func(_ any, err error) { finish(err) })
		return d
	}
}

func (AsyncMetrics) WrapSubquery(h Handle, r graph.SubqueryResolver) graph.SubqueryResolver {
	return wrapSubquery(h, r)
}

// Subquery resolution is batched the same way in sync and async graphs, so
// both transformers share one wrapping.
func wrapSubquery(h Handle, r graph.SubqueryResolver) graph.SubqueryResolver {
	return func(ctx context.Context, q *query.Node, ids []any) ([][]any, error) {
		finish := h.Start(ctx)
		rows, err := r(ctx, q, ids)
		finish(err)
		return rows, err
	}
}
