// Package expr implements the expression language used for computed fields
// and links: a small functional AST produced by an external parser, an
// environment of scoped bindings, and a checker that validates expressions
// against the graph's declared types.
package expr

import "github.com/slavikovbasa/hiku/types"

// Node is one expression AST variant. Nodes are immutable; the checker
// produces annotated copies rather than mutating in place, so Type returns
// nil on any node the checker has not produced.
type Node interface {
	Type() *types.Type
	node()
}

// Symbol references a free or bound variable.
type Symbol struct {
	Name string

	typ *types.Type
}

// Keyword is a bare name literal, used for named options in applications.
type Keyword struct {
	Name string

	typ *types.Type
}

// Get accesses a named field of a record-typed source expression.
type Get struct {
	Source Node
	Field  string

	typ *types.Type
}

// Each binds Var to every element of a sequence-typed Iterable and evaluates
// Body, producing a sequence of body results.
type Each struct {
	Var      string
	Iterable Node
	Body     Node

	typ *types.Type
}

// IfSome unwraps an optional-typed Scrutinee: Then sees Var bound to the
// inner value, Else runs in the outer scope.
type IfSome struct {
	Var       string
	Scrutinee Node
	Then      Node
	Else      Node

	typ *types.Type
}

// Apply applies a named function from the function table to arguments.
type Apply struct {
	Func string
	Args []Node

	typ *types.Type
}

// Tuple constructs a fixed-arity record with positional field names.
type Tuple struct {
	Items []Node

	typ *types.Type
}

// DictLiteral constructs a record (literal identifier keys) or a homogeneous
// mapping (arbitrary keys) from key/value pairs.
type DictLiteral struct {
	Entries []DictEntry

	typ *types.Type
}

type DictEntry struct {
	Key   Node
	Value Node
}

// Text is a string literal.
type Text struct {
	Value string

	typ *types.Type
}

// Number is a numeric literal.
type Number struct {
	Value float64

	typ *types.Type
}

// Bool is a boolean literal.
type Bool struct {
	Value bool

	typ *types.Type
}

func (n *Symbol) Type() *types.Type      { return n.typ }
func (n *Keyword) Type() *types.Type     { return n.typ }
func (n *Get) Type() *types.Type         { return n.typ }
func (n *Each) Type() *types.Type        { return n.typ }
func (n *IfSome) Type() *types.Type      { return n.typ }
func (n *Apply) Type() *types.Type       { return n.typ }
func (n *Tuple) Type() *types.Type       { return n.typ }
func (n *DictLiteral) Type() *types.Type { return n.typ }
func (n *Text) Type() *types.Type        { return n.typ }
func (n *Number) Type() *types.Type      { return n.typ }
func (n *Bool) Type() *types.Type        { return n.typ }

func (*Symbol) node()      {}
func (*Keyword) node()     {}
func (*Get) node()         {}
func (*Each) node()        {}
func (*IfSome) node()      {}
func (*Apply) node()       {}
func (*Tuple) node()       {}
func (*DictLiteral) node() {}
func (*Text) node()        {}
func (*Number) node()      {}
func (*Bool) node()        {}
