// Package graph defines the declared data graph: named nodes with fields and
// links, their resolver callables, and the registry of named record types
// derived from the declaration. A Graph is immutable once constructed; the
// telemetry transformers work on structural copies (see Clone).
package graph

import (
	"context"
	"fmt"

	"github.com/slavikovbasa/hiku/expr"
	"github.com/slavikovbasa/hiku/query"
	"github.com/slavikovbasa/hiku/types"
)

// RootName keys the root node's record type in the graph type registry.
const RootName = "__root__"

// FieldResolver resolves the requested fields for a batch of node ids,
// returning one row per id with one value per requested field.
type FieldResolver func(ctx context.Context, fields []*query.Field, ids []any) ([][]any, error)

// AsyncFieldResolver is the deferred counterpart of FieldResolver. The
// returned Deferred completes with a [][]any value.
type AsyncFieldResolver func(ctx context.Context, fields []*query.Field, ids []any) *Deferred

// LinkResolver resolves an edge for a batch of source ids. For root links ids
// is nil. The result shape depends on the link kind: one target id per source
// id for One and Maybe (nil for absent), a slice of target ids per source id
// for Many.
type LinkResolver func(ctx context.Context, ids []any) (any, error)

// AsyncLinkResolver is the deferred counterpart of LinkResolver.
type AsyncLinkResolver func(ctx context.Context, ids []any) *Deferred

// SubqueryResolver resolves a nested selection against an underlying graph,
// batched over ids. Fields without a resolver of their own are served by
// their node's subquery.
type SubqueryResolver func(ctx context.Context, q *query.Node, ids []any) ([][]any, error)

// LinkKind describes the cardinality of a link.
type LinkKind string

const (
	One   LinkKind = "ONE"
	Maybe LinkKind = "MAYBE"
	Many  LinkKind = "MANY"
)

// Graph is a declared data graph.
type Graph struct {
	Name  string
	Root  *Node
	Nodes []*Node
	Types types.Registry

	marks []any
}

// MarkApplied records a transformation marker on the graph. Clones carry the
// recorded marks forward, so a transformer can recognize graphs it already
// produced. Markers must be comparable.
func (g *Graph) MarkApplied(marker any) {
	g.marks = append(g.marks, marker)
}

// Applied reports whether marker was recorded on this graph or on an
// ancestor it was cloned from.
func (g *Graph) Applied(marker any) bool {
	for _, m := range g.marks {
		if m == marker {
			return true
		}
	}
	return false
}

// Node is a named collection of fields and links. The root node has an empty
// name.
type Node struct {
	Name     string
	Fields   []*Field
	Links    []*Link
	Subquery SubqueryResolver
}

// Field is a leaf value producer. Exactly one of Resolver and AsyncResolver
// is set, unless the field is computed from Expr and served by the node's
// subquery. Expr, when present, must be a checked expression.
type Field struct {
	Name          string
	Type          *types.Type
	Resolver      FieldResolver
	AsyncResolver AsyncFieldResolver
	Expr          expr.Node
}

// Link is an edge to another node. Expr, when present, must be a checked
// expression computing the link's target ids.
type Link struct {
	Name          string
	Target        string
	Kind          LinkKind
	Requires      string
	Resolver      LinkResolver
	AsyncResolver AsyncLinkResolver
	Expr          expr.Node
}

// New assembles a graph from a root node and named nodes, building the
// registry of record types used by the checker and denormalization.
func New(name string, root *Node, nodes ...*Node) (*Graph, error) {
	g := &Graph{Name: name, Root: root, Nodes: nodes, Types: types.Registry{}}
	seen := map[string]struct{}{}
	for _, n := range nodes {
		if n.Name == "" {
			return nil, fmt.Errorf("graph: named node without a name")
		}
		if _, dup := seen[n.Name]; dup {
			return nil, fmt.Errorf("graph: duplicate node %q", n.Name)
		}
		seen[n.Name] = struct{}{}
	}
	for _, n := range nodes {
		rec, err := nodeType(n)
		if err != nil {
			return nil, err
		}
		g.Types[n.Name] = rec
	}
	if root != nil {
		rec, err := nodeType(root)
		if err != nil {
			return nil, err
		}
		g.Types[RootName] = rec
	}
	return g, nil
}

// NodeByName returns the named node, or nil.
func (g *Graph) NodeByName(name string) *Node {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n
		}
	}
	return nil
}

func nodeType(n *Node) (*types.Type, error) {
	var fields []types.RecordField
	for _, f := range n.Fields {
		if f.Type == nil {
			return nil, fmt.Errorf("graph: field %s.%s has no declared type", n.Name, f.Name)
		}
		fields = append(fields, types.F(f.Name, f.Type))
	}
	for _, l := range n.Links {
		var lt *types.Type
		switch l.Kind {
		case One:
			lt = types.Ref(l.Target)
		case Maybe:
			lt = types.Optional(types.Ref(l.Target))
		case Many:
			lt = types.Sequence(types.Ref(l.Target))
		default:
			return nil, fmt.Errorf("graph: link %s.%s has unknown kind %q", n.Name, l.Name, l.Kind)
		}
		fields = append(fields, types.F(l.Name, lt))
	}
	return types.Record(fields...), nil
}

// FieldByName returns the named field, or nil.
func (n *Node) FieldByName(name string) *Field {
	for _, f := range n.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// LinkByName returns the named link, or nil.
func (n *Node) LinkByName(name string) *Link {
	for _, l := range n.Links {
		if l.Name == name {
			return l
		}
	}
	return nil
}

// Clone returns a structural copy of the graph: fresh Graph, Node, Field and
// Link values with shared immutable types and expressions. Transformers
// rewrite resolver callables on the copy, leaving the receiver untouched.
func (g *Graph) Clone() *Graph {
	out := &Graph{Name: g.Name, Types: g.Types, marks: append([]any(nil), g.marks...)}
	if g.Root != nil {
		out.Root = g.Root.clone()
	}
	out.Nodes = make([]*Node, len(g.Nodes))
	for i, n := range g.Nodes {
		out.Nodes[i] = n.clone()
	}
	return out
}

func (n *Node) clone() *Node {
	out := &Node{Name: n.Name, Subquery: n.Subquery}
	out.Fields = make([]*Field, len(n.Fields))
	for i, f := range n.Fields {
		fc := *f
		out.Fields[i] = &fc
	}
	out.Links = make([]*Link, len(n.Links))
	for i, l := range n.Links {
		lc := *l
		out.Links[i] = &lc
	}
	return out
}
