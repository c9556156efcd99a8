package expr

import (
	"fmt"
	"strings"

	"github.com/slavikovbasa/hiku/types"
)

// Check validates node against the graph's named types and the function
// table, resolving free variables through env. It returns a fresh annotated
// tree; the input tree is left untouched. Checking is all-or-nothing: the
// first failure aborts with a CheckError and no partial tree is returned.
func Check(node Node, reg types.Registry, funcs Funcs, env *Env) (Node, error) {
	if env == nil {
		env = NewEnv(nil)
	}
	c := &checker{reg: reg, funcs: funcs, env: env}
	return c.check(node)
}

type checker struct {
	reg   types.Registry
	funcs Funcs
	env   *Env
	path  []string
}

func (c *checker) check(n Node) (Node, error) {
	switch v := n.(type) {
	case *Symbol:
		t, ok := c.env.Lookup(v.Name)
		if !ok {
			return nil, c.errorf(ErrUnboundName, v, "name %q is not defined", v.Name)
		}
		return &Symbol{Name: v.Name, typ: t}, nil

	case *Keyword:
		return &Keyword{Name: v.Name, typ: types.String()}, nil

	case *Text:
		return &Text{Value: v.Value, typ: types.String()}, nil

	case *Number:
		return &Number{Value: v.Value, typ: types.Float()}, nil

	case *Bool:
		return &Bool{Value: v.Value, typ: types.Boolean()}, nil

	case *Get:
		return c.checkGet(v)

	case *Each:
		return c.checkEach(v)

	case *IfSome:
		return c.checkIfSome(v)

	case *Apply:
		return c.checkApply(v)

	case *Tuple:
		return c.checkTuple(v)

	case *DictLiteral:
		return c.checkDict(v)

	default:
		return nil, c.errorf(ErrTypeMismatch, n, "unexpected node %T", n)
	}
}

func (c *checker) checkGet(v *Get) (Node, error) {
	source, err := c.checkAt(fmt.Sprintf("get(%s)", v.Field), v.Source)
	if err != nil {
		return nil, err
	}
	st, err := c.resolve(v, source.Type())
	if err != nil {
		return nil, err
	}
	// One level of Optional unwraps per Get; optionality re-wraps the result.
	optional := st.IsOptional()
	if optional {
		if st, err = c.resolve(v, st.Item); err != nil {
			return nil, err
		}
	}
	if st.Kind == types.KindAny {
		result := types.Any()
		if optional {
			result = types.Optional(result)
		}
		return &Get{Source: source, Field: v.Field, typ: result}, nil
	}
	if st.Kind != types.KindRecord {
		return nil, c.errorf(ErrNotARecord, v, "cannot get field %q from %s", v.Field, st)
	}
	ft, ok := st.Field(v.Field)
	if !ok {
		return nil, c.errorf(ErrFieldNotFound, v, "field %q is not present in %s", v.Field, st)
	}
	result := ft
	if optional {
		result = types.Optional(ft)
	}
	return &Get{Source: source, Field: v.Field, typ: result}, nil
}

func (c *checker) checkEach(v *Each) (Node, error) {
	iterable, err := c.checkAt("each.iterable", v.Iterable)
	if err != nil {
		return nil, err
	}
	it, err := c.resolve(v, iterable.Type())
	if err != nil {
		return nil, err
	}
	item := types.Any()
	if it.Kind != types.KindAny {
		if it.Kind != types.KindSequence {
			return nil, c.errorf(ErrNotASequence, v, "cannot iterate over %s", it)
		}
		if item, err = c.resolve(v, it.Item); err != nil {
			return nil, err
		}
	}

	release := c.env.Push(map[string]*types.Type{v.Var: item})
	body, err := c.checkAt("each.body", v.Body)
	release()
	if err != nil {
		return nil, err
	}
	return &Each{
		Var:      v.Var,
		Iterable: iterable,
		Body:     body,
		typ:      types.Sequence(body.Type()),
	}, nil
}

func (c *checker) checkIfSome(v *IfSome) (Node, error) {
	scrutinee, err := c.checkAt("if_some.value", v.Scrutinee)
	if err != nil {
		return nil, err
	}
	st, err := c.resolve(v, scrutinee.Type())
	if err != nil {
		return nil, err
	}
	inner := types.Any()
	if st.Kind != types.KindAny {
		if !st.IsOptional() {
			return nil, c.errorf(ErrNotAnOptional, v, "cannot unwrap %s", st)
		}
		if inner, err = c.resolve(v, st.Item); err != nil {
			return nil, err
		}
	}

	release := c.env.Push(map[string]*types.Type{v.Var: inner})
	then, err := c.checkAt("if_some.then", v.Then)
	release()
	if err != nil {
		return nil, err
	}
	// The else branch never sees the unwrapped binding.
	els, err := c.checkAt("if_some.else", v.Else)
	if err != nil {
		return nil, err
	}

	tt, et := then.Type(), els.Type()
	if !types.Compatible(tt, et) {
		return nil, c.errorf(ErrTypeMismatch, v, "branches %s and %s do not unify", tt, et)
	}
	// A concrete branch wins over Any.
	result := tt
	if tt.Kind == types.KindAny && et.Kind != types.KindAny {
		result = et
	}
	return &IfSome{
		Var:       v.Var,
		Scrutinee: scrutinee,
		Then:      then,
		Else:      els,
		typ:       result,
	}, nil
}

func (c *checker) checkApply(v *Apply) (Node, error) {
	sig, ok := c.funcs[v.Func]
	if !ok {
		return nil, c.errorf(ErrUnknownFunction, v, "function %q is not defined", v.Func)
	}
	if len(v.Args) != len(sig.Args) {
		return nil, c.errorf(ErrArityMismatch, v, "function %q takes %d arguments, got %d",
			v.Func, len(sig.Args), len(v.Args))
	}
	args := make([]Node, len(v.Args))
	for i, arg := range v.Args {
		checked, err := c.checkAt(fmt.Sprintf("%s.arg[%d]", v.Func, i), arg)
		if err != nil {
			return nil, err
		}
		at, err := c.resolve(v, checked.Type())
		if err != nil {
			return nil, err
		}
		want, err := c.resolve(v, sig.Args[i])
		if err != nil {
			return nil, err
		}
		if !types.Compatible(at, want) {
			return nil, c.errorf(ErrArgumentTypeMismatch, v,
				"argument %d of %q is %s, want %s", i, v.Func, at, want)
		}
		args[i] = checked
	}
	return &Apply{Func: v.Func, Args: args, typ: sig.Result}, nil
}

func (c *checker) checkTuple(v *Tuple) (Node, error) {
	items := make([]Node, len(v.Items))
	fields := make([]types.RecordField, len(v.Items))
	for i, item := range v.Items {
		checked, err := c.checkAt(fmt.Sprintf("tuple[%d]", i), item)
		if err != nil {
			return nil, err
		}
		items[i] = checked
		fields[i] = types.F(fmt.Sprintf("_%d", i), checked.Type())
	}
	return &Tuple{Items: items, typ: types.Record(fields...)}, nil
}

func (c *checker) checkDict(v *DictLiteral) (Node, error) {
	entries := make([]DictEntry, len(v.Entries))
	seen := make(map[string]struct{}, len(v.Entries))
	allIdents := true
	for i, e := range v.Entries {
		key, err := c.checkAt(fmt.Sprintf("dict.key[%d]", i), e.Key)
		if err != nil {
			return nil, err
		}
		value, err := c.checkAt(fmt.Sprintf("dict.value[%d]", i), e.Value)
		if err != nil {
			return nil, err
		}
		if lit, ok := key.(*Text); ok {
			if _, dup := seen[lit.Value]; dup {
				return nil, c.errorf(ErrDuplicateKey, v, "duplicate key %q", lit.Value)
			}
			seen[lit.Value] = struct{}{}
			if !isIdent(lit.Value) {
				allIdents = false
			}
		} else {
			allIdents = false
		}
		entries[i] = DictEntry{Key: key, Value: value}
	}

	if allIdents {
		fields := make([]types.RecordField, len(entries))
		for i, e := range entries {
			fields[i] = types.F(e.Key.(*Text).Value, e.Value.Type())
		}
		return &DictLiteral{Entries: entries, typ: types.Record(fields...)}, nil
	}

	// Heterogeneous keys: the literal must be a uniform mapping.
	keyType, valueType := types.Any(), types.Any()
	if len(entries) > 0 {
		keyType, valueType = entries[0].Key.Type(), entries[0].Value.Type()
	}
	for _, e := range entries {
		if !types.Compatible(e.Key.Type(), keyType) || !types.Compatible(e.Value.Type(), valueType) {
			return nil, c.errorf(ErrHeterogeneousMapping, v,
				"mapping entries do not share one key and one value type")
		}
	}
	return &DictLiteral{Entries: entries, typ: types.Mapping(keyType, valueType)}, nil
}

func (c *checker) checkAt(segment string, n Node) (Node, error) {
	c.path = append(c.path, segment)
	checked, err := c.check(n)
	c.path = c.path[:len(c.path)-1]
	return checked, err
}

func (c *checker) resolve(n Node, t *types.Type) (*types.Type, error) {
	resolved, err := types.Resolve(c.reg, t)
	if err != nil {
		return nil, c.errorf(ErrUnknownType, n, "%v", err)
	}
	return resolved, nil
}

func (c *checker) errorf(kind ErrorKind, n Node, format string, args ...any) error {
	return &CheckError{
		Kind:    kind,
		Path:    strings.Join(c.path, "."),
		Node:    n,
		Message: fmt.Sprintf(format, args...),
	}
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
