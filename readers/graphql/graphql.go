// Package graphql reads client queries written in GraphQL syntax into the
// engine's selection tree. Parsing itself is delegated to gqlparser; this
// package only maps the parsed operation onto the query IR.
package graphql

import (
	"fmt"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/slavikovbasa/hiku/query"
)

// Read parses source and converts its single query operation into a
// selection tree. Mutations, subscriptions and fragments are rejected.
func Read(source string) (*query.Node, error) {
	doc, err := parser.ParseQuery(&ast.Source{Input: source})
	if err != nil {
		return nil, err
	}
	if len(doc.Fragments) > 0 {
		return nil, fmt.Errorf("graphql: fragments are not supported")
	}
	if len(doc.Operations) != 1 {
		return nil, fmt.Errorf("graphql: expected a single operation, got %d", len(doc.Operations))
	}
	op := doc.Operations[0]
	if op.Operation != ast.Query {
		return nil, fmt.Errorf("graphql: unsupported operation type %q", op.Operation)
	}
	return convertSelectionSet(op.SelectionSet)
}

func convertSelectionSet(set ast.SelectionSet) (*query.Node, error) {
	node := &query.Node{}
	for _, sel := range set {
		field, ok := sel.(*ast.Field)
		if !ok {
			return nil, fmt.Errorf("graphql: unsupported selection %T", sel)
		}
		args, err := convertArguments(field.Arguments)
		if err != nil {
			return nil, err
		}
		alias := field.Alias
		if alias == field.Name {
			alias = ""
		}
		if len(field.SelectionSet) == 0 {
			node.Selections = append(node.Selections, &query.Field{
				Name:  field.Name,
				Alias: alias,
				Args:  args,
			})
			continue
		}
		sub, err := convertSelectionSet(field.SelectionSet)
		if err != nil {
			return nil, err
		}
		node.Selections = append(node.Selections, &query.Link{
			Name:  field.Name,
			Alias: alias,
			Args:  args,
			Node:  sub,
		})
	}
	return node, nil
}

func convertArguments(args ast.ArgumentList) (map[string]any, error) {
	if len(args) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(args))
	for _, arg := range args {
		if arg.Value.Kind == ast.Variable {
			return nil, fmt.Errorf("graphql: variables are not supported in argument %q", arg.Name)
		}
		v, err := arg.Value.Value(nil)
		if err != nil {
			return nil, fmt.Errorf("graphql: argument %q: %w", arg.Name, err)
		}
		out[arg.Name] = v
	}
	return out, nil
}
