package telemetry

import (
	"fmt"

	"github.com/slavikovbasa/hiku/graph"
)

// FieldWrapper wraps synchronous field resolvers.
type FieldWrapper interface {
	WrapField(h Handle, r graph.FieldResolver) graph.FieldResolver
}

// LinkWrapper wraps synchronous link resolvers.
type LinkWrapper interface {
	WrapLink(h Handle, r graph.LinkResolver) graph.LinkResolver
}

// AsyncFieldWrapper wraps deferred field resolvers.
type AsyncFieldWrapper interface {
	WrapAsyncField(h Handle, r graph.AsyncFieldResolver) graph.AsyncFieldResolver
}

// AsyncLinkWrapper wraps deferred link resolvers.
type AsyncLinkWrapper interface {
	WrapAsyncLink(h Handle, r graph.AsyncLinkResolver) graph.AsyncLinkResolver
}

// SubqueryWrapper wraps nested-graph subquery resolvers.
type SubqueryWrapper interface {
	WrapSubquery(h Handle, r graph.SubqueryResolver) graph.SubqueryResolver
}

// applied marks an instrumented graph with the observer and transformer
// that produced it; the mark travels with the graph's clones, so
// re-transforming with the same pair does not stack a second observation
// layer. A different observer or transformer wraps again.
type applied struct {
	obs Observer
	tr  any
}

// Transform returns a structural copy of g whose resolver callables are
// wrapped through whichever wrapper capabilities tr implements. Every other
// part of the graph is preserved and g itself is never modified. obs and tr
// must be comparable; transforming a graph a second time with the same
// observer and transformer yields an equivalent copy without double
// instrumentation.
func Transform(g *graph.Graph, obs Observer, tr any) *graph.Graph {
	out := g.Clone()
	if g.Applied(applied{obs: obs, tr: tr}) {
		return out
	}

	wrapNode(out.Root, g.Name, "", obs, tr)
	for _, n := range out.Nodes {
		wrapNode(n, g.Name, n.Name, obs, tr)
	}

	out.MarkApplied(applied{obs: obs, tr: tr})
	return out
}

func wrapNode(n *graph.Node, graphName, nodeName string, obs Observer, tr any) {
	if n == nil {
		return
	}
	for _, f := range n.Fields {
		h := obs.Observe(label(graphName, nodeName, f.Name))
		if f.Resolver != nil {
			if w, ok := tr.(FieldWrapper); ok {
				f.Resolver = w.WrapField(h, f.Resolver)
			}
		}
		if f.AsyncResolver != nil {
			if w, ok := tr.(AsyncFieldWrapper); ok {
				f.AsyncResolver = w.WrapAsyncField(h, f.AsyncResolver)
			}
		}
	}
	for _, l := range n.Links {
		h := obs.Observe(label(graphName, nodeName, l.Name))
		if l.Resolver != nil {
			if w, ok := tr.(LinkWrapper); ok {
				l.Resolver = w.WrapLink(h, l.Resolver)
			}
		}
		if l.AsyncResolver != nil {
			if w, ok := tr.(AsyncLinkWrapper); ok {
				l.AsyncResolver = w.WrapAsyncLink(h, l.AsyncResolver)
			}
		}
	}
	if n.Subquery != nil {
		if w, ok := tr.(SubqueryWrapper); ok {
			h := obs.Observe(label(graphName, nodeName, "__subquery__"))
			n.Subquery = w.WrapSubquery(h, n.Subquery)
		}
	}
}

func label(graphName, nodeName, name string) string {
	if nodeName == "" {
		return fmt.Sprintf("%s.%s", graphName, name)
	}
	return fmt.Sprintf("%s.%s.%s", graphName, nodeName, name)
}
