// Package denormalize folds the engine's flat result index back into the
// nested tree shape of the query, guided by the graph's declared record
// types.
package denormalize

import (
	"fmt"

	"github.com/slavikovbasa/hiku/engine"
	"github.com/slavikovbasa/hiku/graph"
	"github.com/slavikovbasa/hiku/query"
	"github.com/slavikovbasa/hiku/types"
)

// Denormalize shapes res into a nested result tree for q.
func Denormalize(g *graph.Graph, q *query.Node, res *engine.Result) (map[string]any, error) {
	d := &denormalizer{graph: g, result: res}
	rootType, ok := g.Types[graph.RootName]
	if !ok {
		return nil, fmt.Errorf("denormalize: graph %q has no root type", g.Name)
	}
	return d.walk(rootType, q, res.Root)
}

type denormalizer struct {
	graph  *graph.Graph
	result *engine.Result
}

func (d *denormalizer) walk(rec *types.Type, qnode *query.Node, data map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(qnode.Selections))
	for _, f := range qnode.Fields() {
		key := f.ResultKey()
		v, ok := data[key]
		if !ok {
			return nil, fmt.Errorf("denormalize: no value for field %q", key)
		}
		out[key] = v
	}
	for _, l := range qnode.Links() {
		key := l.ResultKey()
		lt, ok := rec.Field(l.Name)
		if !ok {
			return nil, fmt.Errorf("denormalize: link %q is not declared", l.Name)
		}
		v, ok := data[key]
		if !ok {
			return nil, fmt.Errorf("denormalize: no value for link %q", key)
		}
		child, err := d.walkLink(lt, l, v)
		if err != nil {
			return nil, err
		}
		out[key] = child
	}
	return out, nil
}

func (d *denormalizer) walkLink(lt *types.Type, l *query.Link, v any) (any, error) {
	switch lt.Kind {
	case types.KindRef:
		return d.follow(lt.Named, l, v)
	case types.KindSequence:
		ids, ok := v.([]any)
		if !ok {
			return nil, fmt.Errorf("denormalize: link %q holds %T, want []any", l.ResultKey(), v)
		}
		items := make([]any, len(ids))
		for i, id := range ids {
			item, err := d.follow(lt.Item.Named, l, id)
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return items, nil
	case types.KindOptional:
		if v == nil {
			return nil, nil
		}
		return d.follow(lt.Item.Named, l, v)
	default:
		return nil, fmt.Errorf("denormalize: link %q has unexpected type %s", l.ResultKey(), lt)
	}
}

func (d *denormalizer) follow(target string, l *query.Link, id any) (map[string]any, error) {
	row, ok := d.result.Index[target][id]
	if !ok {
		return nil, fmt.Errorf("denormalize: node %q has no row for id %v", target, id)
	}
	rec, err := types.Resolve(d.graph.Types, types.Ref(target))
	if err != nil {
		return nil, fmt.Errorf("denormalize: %w", err)
	}
	return d.walk(rec, l.Node, row)
}
