package types

import (
	"fmt"
	"strings"
)

// Type describes a value shape declared by a graph schema.
// Types are immutable after construction and shared by reference.
type Type struct {
	Kind   Kind
	Item   *Type         // For SEQUENCE and OPTIONAL
	Key    *Type         // For MAPPING
	Value  *Type         // For MAPPING
	Fields []RecordField // For RECORD
	Args   []*Type       // For CALLABLE
	Result *Type         // For CALLABLE
	Named  string        // For REF
}

// RecordField is a single named field of a RECORD type.
// Field order is declaration order and is significant.
type RecordField struct {
	Name string
	Type *Type
}

type Kind string

const (
	KindAny      Kind = "ANY"
	KindBoolean  Kind = "BOOLEAN"
	KindString   Kind = "STRING"
	KindInteger  Kind = "INTEGER"
	KindFloat    Kind = "FLOAT"
	KindOptional Kind = "OPTIONAL"
	KindSequence Kind = "SEQUENCE"
	KindMapping  Kind = "MAPPING"
	KindRecord   Kind = "RECORD"
	KindCallable Kind = "CALLABLE"
	KindRef      Kind = "REF"
)

var (
	anyType     = &Type{Kind: KindAny}
	booleanType = &Type{Kind: KindBoolean}
	stringType  = &Type{Kind: KindString}
	integerType = &Type{Kind: KindInteger}
	floatType   = &Type{Kind: KindFloat}
)

func Any() *Type     { return anyType }
func Boolean() *Type { return booleanType }
func String() *Type  { return stringType }
func Integer() *Type { return integerType }
func Float() *Type   { return floatType }

func Optional(inner *Type) *Type { return &Type{Kind: KindOptional, Item: inner} }
func Sequence(item *Type) *Type  { return &Type{Kind: KindSequence, Item: item} }
func Mapping(key, value *Type) *Type {
	return &Type{Kind: KindMapping, Key: key, Value: value}
}

// Record constructs a RECORD type from name/type pairs in declaration order.
// Field names must be unique.
func Record(fields ...RecordField) *Type {
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		if _, dup := seen[f.Name]; dup {
			panic(fmt.Sprintf("types: duplicate record field %q", f.Name))
		}
		seen[f.Name] = struct{}{}
	}
	return &Type{Kind: KindRecord, Fields: fields}
}

func F(name string, t *Type) RecordField { return RecordField{Name: name, Type: t} }

// Callable constructs a function signature with the given parameter types
// and result type.
func Callable(args []*Type, result *Type) *Type {
	return &Type{Kind: KindCallable, Args: args, Result: result}
}

// Ref constructs a reference to a named type, resolved later against a
// registry (see Resolve).
func Ref(name string) *Type { return &Type{Kind: KindRef, Named: name} }

// Field returns the type of the named RECORD field and whether it exists.
func (t *Type) Field(name string) (*Type, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f.Type, true
		}
	}
	return nil, false
}

// IsOptional reports whether the type is wrapped with Optional.
func (t *Type) IsOptional() bool { return t != nil && t.Kind == KindOptional }

// Unwrap removes one layer of Optional or Sequence wrapping and returns the
// inner type.
func (t *Type) Unwrap() *Type {
	if t.Kind == KindOptional || t.Kind == KindSequence {
		return t.Item
	}
	return t
}

// Registry maps type names to their definitions.
type Registry map[string]*Type

// Resolve replaces a REF type with its registry definition. Non-REF types
// are returned unchanged. An unknown name returns an error.
func Resolve(reg Registry, t *Type) (*Type, error) {
	if t == nil || t.Kind != KindRef {
		return t, nil
	}
	def, ok := reg[t.Named]
	if !ok {
		return nil, fmt.Errorf("types: unknown type reference %q", t.Named)
	}
	return def, nil
}

// Compatible reports whether two types are structurally compatible.
// ANY is compatible with every type in either position.
func Compatible(a, b *Type) bool {
	if a == nil || b == nil {
		return a == b
	}
	if a.Kind == KindAny || b.Kind == KindAny {
		return true
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindBoolean, KindString, KindInteger, KindFloat:
		return true
	case KindOptional, KindSequence:
		return Compatible(a.Item, b.Item)
	case KindMapping:
		return Compatible(a.Key, b.Key) && Compatible(a.Value, b.Value)
	case KindRecord:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for _, af := range a.Fields {
			bt, ok := b.Field(af.Name)
			if !ok || !Compatible(af.Type, bt) {
				return false
			}
		}
		return true
	case KindCallable:
		if len(a.Args) != len(b.Args) {
			return false
		}
		for i := range a.Args {
			if !Compatible(a.Args[i], b.Args[i]) {
				return false
			}
		}
		return Compatible(a.Result, b.Result)
	case KindRef:
		return a.Named == b.Named
	default:
		return false
	}
}

// String renders the type for diagnostics, e.g. "Sequence[Record{id: Any}]".
func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case KindAny:
		return "Any"
	case KindBoolean:
		return "Boolean"
	case KindString:
		return "String"
	case KindInteger:
		return "Integer"
	case KindFloat:
		return "Float"
	case KindOptional:
		return fmt.Sprintf("Optional[%s]", t.Item)
	case KindSequence:
		return fmt.Sprintf("Sequence[%s]", t.Item)
	case KindMapping:
		return fmt.Sprintf("Mapping[%s, %s]", t.Key, t.Value)
	case KindRecord:
		parts := make([]string, len(t.Fields))
		for i, f := range t.Fields {
			parts[i] = fmt.Sprintf("%s: %s", f.Name, f.Type)
		}
		return fmt.Sprintf("Record{%s}", strings.Join(parts, ", "))
	case KindCallable:
		parts := make([]string, len(t.Args))
		for i, a := range t.Args {
			parts[i] = a.String()
		}
		return fmt.Sprintf("Callable[(%s) %s]", strings.Join(parts, ", "), t.Result)
	case KindRef:
		return fmt.Sprintf("Ref[%s]", t.Named)
	default:
		return string(t.Kind)
	}
}
