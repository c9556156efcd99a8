// Package engine executes a selection tree against a declared graph. The
// walk is breadth-first: at each depth all synchronous resolvers run first,
// then the depth's deferred resolutions are flushed together before the next
// depth begins. Field requests are batched per resolver callable, so a
// resolver serving several declared fields is invoked once per node visit.
package engine

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/slavikovbasa/hiku/graph"
	"github.com/slavikovbasa/hiku/internal/eventbus"
	"github.com/slavikovbasa/hiku/internal/qid"
	"github.com/slavikovbasa/hiku/query"
	"github.com/slavikovbasa/hiku/telemetry"
)

type Engine struct{}

func New() *Engine { return &Engine{} }

// Execute resolves q against g and returns the flat result index. Node ids
// produced by link resolvers must be comparable values. Execution is
// all-or-nothing: the first resolver failure aborts with a wrapped error.
func (e *Engine) Execute(ctx context.Context, g *graph.Graph, q *query.Node) (*Result, error) {
	ctx, _ = qid.NewContext(ctx)
	started := time.Now()
	eventbus.Publish(ctx, telemetry.ExecuteStart{Graph: g.Name})
	res, err := execute(ctx, g, q)
	eventbus.Publish(ctx, telemetry.ExecuteFinish{
		Graph:    g.Name,
		Err:      err,
		Duration: time.Since(started),
	})
	return res, err
}

type executionState struct {
	graph  *graph.Graph
	result *Result
}

// visit is one unit of work: resolve qnode's selections on node for ids.
type visit struct {
	node  *graph.Node
	qnode *query.Node
	ids   []any
	root  bool
}

// pending is a deferred resolution queued for the end of the current depth.
type pending struct {
	deferred *graph.Deferred
	apply    func(v any) ([]visit, error)
}

func execute(ctx context.Context, g *graph.Graph, q *query.Node) (*Result, error) {
	state := &executionState{graph: g, result: newResult()}
	queue := []visit{{node: g.Root, qnode: q, root: true}}

	for len(queue) > 0 {
		var next []visit
		var tasks []pending
		for _, v := range queue {
			n, t, err := state.visitNode(ctx, v)
			if err != nil {
				return nil, err
			}
			next = append(next, n...)
			tasks = append(tasks, t...)
		}
		// Depth barrier: flush every deferred collected at this depth.
		for _, t := range tasks {
			val, err := t.deferred.Wait(ctx)
			if err != nil {
				return nil, err
			}
			n, err := t.apply(val)
			if err != nil {
				return nil, err
			}
			next = append(next, n...)
		}
		queue = next
	}
	return state.result, nil
}

func (s *executionState) visitNode(ctx context.Context, v visit) ([]visit, []pending, error) {
	var next []visit
	var tasks []pending

	groups, err := groupFields(v.node, v.qnode)
	if err != nil {
		return nil, nil, err
	}
	for _, grp := range groups {
		switch {
		case grp.subquery:
			sub := &query.Node{Selections: fieldSelections(grp.fields)}
			rows, err := v.node.Subquery(ctx, sub, v.ids)
			if err != nil {
				return nil, nil, fmt.Errorf("engine: subquery on node %q: %w", nodeLabel(v.node), err)
			}
			if err := s.storeRows(v, grp.fields, rows); err != nil {
				return nil, nil, err
			}
		case grp.resolver != nil:
			rows, err := grp.resolver(ctx, grp.fields, v.ids)
			if err != nil {
				return nil, nil, fmt.Errorf("engine: resolve %s.%s: %w",
					nodeLabel(v.node), grp.fields[0].Name, err)
			}
			if err := s.storeRows(v, grp.fields, rows); err != nil {
				return nil, nil, err
			}
		default:
			d := grp.async(ctx, grp.fields, v.ids)
			tasks = append(tasks, pending{deferred: d, apply: func(val any) ([]visit, error) {
				rows, ok := val.([][]any)
				if !ok {
					return nil, fmt.Errorf("engine: async resolver for %s.%s returned %T, want [][]any",
						nodeLabel(v.node), grp.fields[0].Name, val)
				}
				return nil, s.storeRows(v, grp.fields, rows)
			}})
		}
	}

	for _, ql := range v.qnode.Links() {
		l := v.node.LinkByName(ql.Name)
		if l == nil {
			return nil, nil, fmt.Errorf("engine: link %q is not defined on node %q",
				ql.Name, nodeLabel(v.node))
		}
		switch {
		case l.Resolver != nil:
			val, err := l.Resolver(ctx, v.ids)
			if err != nil {
				return nil, nil, fmt.Errorf("engine: resolve %s.%s: %w", nodeLabel(v.node), l.Name, err)
			}
			n, err := s.storeLink(v, ql, l, val)
			if err != nil {
				return nil, nil, err
			}
			next = append(next, n...)
		case l.AsyncResolver != nil:
			d := l.AsyncResolver(ctx, v.ids)
			tasks = append(tasks, pending{deferred: d, apply: func(val any) ([]visit, error) {
				return s.storeLink(v, ql, l, val)
			}})
		default:
			return nil, nil, fmt.Errorf("engine: link %s.%s has no resolver", nodeLabel(v.node), l.Name)
		}
	}
	return next, tasks, nil
}

// fieldGroup batches query fields served by one resolver callable.
type fieldGroup struct {
	fields   []*query.Field
	resolver graph.FieldResolver
	async    graph.AsyncFieldResolver
	subquery bool
}

func groupFields(n *graph.Node, qn *query.Node) ([]*fieldGroup, error) {
	var groups []*fieldGroup
	index := make(map[uintptr]*fieldGroup)
	var sub *fieldGroup

	for _, qf := range qn.Fields() {
		f := n.FieldByName(qf.Name)
		if f == nil {
			return nil, fmt.Errorf("engine: field %q is not defined on node %q", qf.Name, nodeLabel(n))
		}
		switch {
		case f.Resolver != nil:
			key := reflect.ValueOf(f.Resolver).Pointer()
			grp, ok := index[key]
			if !ok {
				grp = &fieldGroup{resolver: f.Resolver}
				index[key] = grp
				groups = append(groups, grp)
			}
			grp.fields = append(grp.fields, qf)
		case f.AsyncResolver != nil:
			key := reflect.ValueOf(f.AsyncResolver).Pointer()
			grp, ok := index[key]
			if !ok {
				grp = &fieldGroup{async: f.AsyncResolver}
				index[key] = grp
				groups = append(groups, grp)
			}
			grp.fields = append(grp.fields, qf)
		case n.Subquery != nil:
			if sub == nil {
				sub = &fieldGroup{subquery: true}
				groups = append(groups, sub)
			}
			sub.fields = append(sub.fields, qf)
		default:
			return nil, fmt.Errorf("engine: field %s.%s has no resolver", nodeLabel(n), f.Name)
		}
	}
	return groups, nil
}

func (s *executionState) storeRows(v visit, fields []*query.Field, rows [][]any) error {
	if v.root {
		if len(rows) != 1 {
			return fmt.Errorf("engine: root resolver for %q returned %d rows, want 1",
				fields[0].Name, len(rows))
		}
	} else if len(rows) != len(v.ids) {
		return fmt.Errorf("engine: resolver for %s.%s returned %d rows for %d ids",
			nodeLabel(v.node), fields[0].Name, len(rows), len(v.ids))
	}
	for i, row := range rows {
		if len(row) != len(fields) {
			return fmt.Errorf("engine: resolver for %s.%s returned %d values for %d fields",
				nodeLabel(v.node), fields[0].Name, len(row), len(fields))
		}
		var dst map[string]any
		if v.root {
			dst = s.result.Root
		} else {
			dst = s.result.Row(v.node.Name, v.ids[i])
		}
		for j, qf := range fields {
			dst[qf.ResultKey()] = row[j]
		}
	}
	return nil
}

func (s *executionState) storeLink(v visit, ql *query.Link, l *graph.Link, val any) ([]visit, error) {
	target := s.graph.NodeByName(l.Target)
	if target == nil {
		return nil, fmt.Errorf("engine: link %s.%s targets unknown node %q",
			nodeLabel(v.node), l.Name, l.Target)
	}

	var targetIDs []any
	if v.root {
		switch l.Kind {
		case graph.Many:
			ids, ok := val.([]any)
			if !ok {
				return nil, fmt.Errorf("engine: root link %q returned %T, want []any", l.Name, val)
			}
			s.result.Root[ql.ResultKey()] = ids
			targetIDs = ids
		default:
			s.result.Root[ql.ResultKey()] = val
			if val != nil {
				targetIDs = []any{val}
			}
		}
	} else {
		switch l.Kind {
		case graph.Many:
			per, ok := val.([][]any)
			if !ok || len(per) != len(v.ids) {
				return nil, fmt.Errorf("engine: link %s.%s returned %T, want [][]any with %d entries",
					nodeLabel(v.node), l.Name, val, len(v.ids))
			}
			for i, id := range v.ids {
				s.result.Row(v.node.Name, id)[ql.ResultKey()] = per[i]
				targetIDs = append(targetIDs, per[i]...)
			}
		default:
			per, ok := val.([]any)
			if !ok || len(per) != len(v.ids) {
				return nil, fmt.Errorf("engine: link %s.%s returned %T, want []any with %d entries",
					nodeLabel(v.node), l.Name, val, len(v.ids))
			}
			for i, id := range v.ids {
				s.result.Row(v.node.Name, id)[ql.ResultKey()] = per[i]
				if per[i] != nil {
					targetIDs = append(targetIDs, per[i])
				}
			}
		}
	}

	targetIDs = dedupe(targetIDs)
	if len(targetIDs) == 0 || ql.Node == nil {
		return nil, nil
	}
	return []visit{{node: target, qnode: ql.Node, ids: targetIDs}}, nil
}

func dedupe(ids []any) []any {
	seen := make(map[any]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func fieldSelections(fields []*query.Field) []query.Selection {
	out := make([]query.Selection, len(fields))
	for i, f := range fields {
		out[i] = f
	}
	return out
}

func nodeLabel(n *graph.Node) string {
	if n.Name == "" {
		return "root"
	}
	return n.Name
}
