package expr

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/slavikovbasa/hiku/types"
)

func checkKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	require.Error(t, err)
	var ce *CheckError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, kind, ce.Kind)
}

func TestCheckSymbol(t *testing.T) {
	env := NewEnv(map[string]*types.Type{"x": types.Integer()})

	checked, err := Check(&Symbol{Name: "x"}, nil, nil, env)
	require.NoError(t, err)
	require.Equal(t, types.Integer(), checked.Type())

	_, err = Check(&Symbol{Name: "y"}, nil, nil, env)
	checkKind(t, err, ErrUnboundName)
}

func TestCheckChainedGet(t *testing.T) {
	name := types.Record(types.F("first", types.Any()), types.F("last", types.Any()))
	env := NewEnv(map[string]*types.Type{
		"user": types.Record(types.F("name", name)),
	})

	checked, err := Check(
		&Get{Source: &Get{Source: &Symbol{Name: "user"}, Field: "name"}, Field: "first"},
		nil, nil, env,
	)
	require.NoError(t, err)
	require.Equal(t, types.Any(), checked.Type())
}

func TestCheckGetErrors(t *testing.T) {
	env := NewEnv(map[string]*types.Type{
		"user": types.Record(types.F("id", types.Integer())),
		"n":    types.Integer(),
	})

	_, err := Check(&Get{Source: &Symbol{Name: "user"}, Field: "missing"}, nil, nil, env)
	checkKind(t, err, ErrFieldNotFound)

	_, err = Check(&Get{Source: &Symbol{Name: "n"}, Field: "id"}, nil, nil, env)
	checkKind(t, err, ErrNotARecord)
}

func TestCheckGetOptionalPropagation(t *testing.T) {
	address := types.Record(types.F("city", types.String()))
	env := NewEnv(map[string]*types.Type{
		"user": types.Record(types.F("address", types.Optional(address))),
	})

	// One Optional level unwraps per Get and re-wraps the result.
	checked, err := Check(
		&Get{
			Source: &Get{Source: &Symbol{Name: "user"}, Field: "address"},
			Field:  "city",
		},
		nil, nil, env,
	)
	require.NoError(t, err)
	require.Equal(t, "Optional[String]", checked.Type().String())

	// A doubly wrapped record does not unwrap twice.
	env2 := NewEnv(map[string]*types.Type{
		"maybe": types.Optional(types.Optional(address)),
	})
	_, err = Check(&Get{Source: &Symbol{Name: "maybe"}, Field: "city"}, nil, nil, env2)
	checkKind(t, err, ErrNotARecord)
}

func TestCheckEach(t *testing.T) {
	item := types.Record(types.F("id", types.Any()))
	env := NewEnv(map[string]*types.Type{"items": types.Sequence(item)})

	checked, err := Check(
		&Each{
			Var:      "x",
			Iterable: &Symbol{Name: "items"},
			Body:     &Get{Source: &Symbol{Name: "x"}, Field: "id"},
		},
		nil, nil, env,
	)
	require.NoError(t, err)
	require.Equal(t, "Sequence[Any]", checked.Type().String())

	// The loop variable does not leak out of the body scope.
	require.False(t, env.Contains("x"))
}

func TestCheckEachErrors(t *testing.T) {
	env := NewEnv(map[string]*types.Type{
		"user":  types.Record(types.F("id", types.Any())),
		"items": types.Sequence(types.Record(types.F("id", types.Any()))),
	})

	_, err := Check(
		&Each{Var: "x", Iterable: &Symbol{Name: "user"}, Body: &Symbol{Name: "x"}},
		nil, nil, env,
	)
	checkKind(t, err, ErrNotASequence)

	_, err = Check(
		&Each{
			Var:      "x",
			Iterable: &Symbol{Name: "items"},
			Body:     &Get{Source: &Symbol{Name: "x"}, Field: "missing"},
		},
		nil, nil, env,
	)
	checkKind(t, err, ErrFieldNotFound)
}

func TestCheckIfSome(t *testing.T) {
	env := NewEnv(map[string]*types.Type{
		"nickname": types.Optional(types.String()),
		"fallback": types.String(),
		"n":        types.Integer(),
		"anything": types.Any(),
	})

	// Both branches concrete and equal.
	checked, err := Check(
		&IfSome{
			Var:       "v",
			Scrutinee: &Symbol{Name: "nickname"},
			Then:      &Symbol{Name: "v"},
			Else:      &Symbol{Name: "fallback"},
		},
		nil, nil, env,
	)
	require.NoError(t, err)
	require.Equal(t, types.String(), checked.Type())

	// Concrete branch wins over Any.
	checked, err = Check(
		&IfSome{
			Var:       "v",
			Scrutinee: &Symbol{Name: "nickname"},
			Then:      &Symbol{Name: "anything"},
			Else:      &Symbol{Name: "fallback"},
		},
		nil, nil, env,
	)
	require.NoError(t, err)
	require.Equal(t, types.String(), checked.Type())

	// Incompatible concrete branches fail.
	_, err = Check(
		&IfSome{
			Var:       "v",
			Scrutinee: &Symbol{Name: "nickname"},
			Then:      &Symbol{Name: "v"},
			Else:      &Symbol{Name: "n"},
		},
		nil, nil, env,
	)
	checkKind(t, err, ErrTypeMismatch)

	// Non-optional scrutinee fails.
	_, err = Check(
		&IfSome{
			Var:       "v",
			Scrutinee: &Symbol{Name: "n"},
			Then:      &Symbol{Name: "v"},
			Else:      &Symbol{Name: "n"},
		},
		nil, nil, env,
	)
	checkKind(t, err, ErrNotAnOptional)
}

func TestCheckIfSomeElseScope(t *testing.T) {
	env := NewEnv(map[string]*types.Type{
		"maybe": types.Optional(types.String()),
	})

	// The unwrapped binding is not visible in the else branch.
	_, err := Check(
		&IfSome{
			Var:       "v",
			Scrutinee: &Symbol{Name: "maybe"},
			Then:      &Symbol{Name: "v"},
			Else:      &Symbol{Name: "v"},
		},
		nil, nil, env,
	)
	checkKind(t, err, ErrUnboundName)
}

func TestCheckApply(t *testing.T) {
	funcs, err := FuncTypes(map[string]*types.Type{
		"contains": types.Callable([]*types.Type{types.String(), types.String()}, types.Boolean()),
	})
	require.NoError(t, err)
	env := NewEnv(map[string]*types.Type{"name": types.String()})

	checked, err := Check(
		&Apply{Func: "contains", Args: []Node{&Symbol{Name: "name"}, &Text{Value: "a"}}},
		nil, funcs, env,
	)
	require.NoError(t, err)
	require.Equal(t, types.Boolean(), checked.Type())

	_, err = Check(&Apply{Func: "nope", Args: nil}, nil, funcs, env)
	checkKind(t, err, ErrUnknownFunction)

	_, err = Check(&Apply{Func: "contains", Args: []Node{&Symbol{Name: "name"}}}, nil, funcs, env)
	checkKind(t, err, ErrArityMismatch)

	_, err = Check(
		&Apply{Func: "contains", Args: []Node{&Symbol{Name: "name"}, &Number{Value: 1}}},
		nil, funcs, env,
	)
	checkKind(t, err, ErrArgumentTypeMismatch)
}

func TestCheckTuple(t *testing.T) {
	env := NewEnv(map[string]*types.Type{"name": types.String()})

	checked, err := Check(
		&Tuple{Items: []Node{&Symbol{Name: "name"}, &Number{Value: 1}}},
		nil, nil, env,
	)
	require.NoError(t, err)
	require.Equal(t, "Record{_0: String, _1: Float}", checked.Type().String())
}

func TestCheckDictLiteral(t *testing.T) {
	env := NewEnv(map[string]*types.Type{"n": types.Float()})

	// Identifier keys make a record, heterogeneous values allowed.
	checked, err := Check(
		&DictLiteral{Entries: []DictEntry{
			{Key: &Text{Value: "count"}, Value: &Symbol{Name: "n"}},
			{Key: &Text{Value: "label"}, Value: &Text{Value: "x"}},
		}},
		nil, nil, env,
	)
	require.NoError(t, err)
	require.Equal(t, "Record{count: Float, label: String}", checked.Type().String())

	// Non-identifier keys make a homogeneous mapping.
	checked, err = Check(
		&DictLiteral{Entries: []DictEntry{
			{Key: &Text{Value: "a b"}, Value: &Number{Value: 1}},
			{Key: &Text{Value: "c d"}, Value: &Number{Value: 2}},
		}},
		nil, nil, env,
	)
	require.NoError(t, err)
	require.Equal(t, "Mapping[String, Float]", checked.Type().String())

	_, err = Check(
		&DictLiteral{Entries: []DictEntry{
			{Key: &Text{Value: "a"}, Value: &Number{Value: 1}},
			{Key: &Text{Value: "a"}, Value: &Number{Value: 2}},
		}},
		nil, nil, env,
	)
	checkKind(t, err, ErrDuplicateKey)

	_, err = Check(
		&DictLiteral{Entries: []DictEntry{
			{Key: &Text{Value: "a b"}, Value: &Number{Value: 1}},
			{Key: &Text{Value: "c d"}, Value: &Text{Value: "x"}},
		}},
		nil, nil, env,
	)
	checkKind(t, err, ErrHeterogeneousMapping)
}

func TestCheckResolvesTypeRefs(t *testing.T) {
	reg := types.Registry{
		"User": types.Record(types.F("id", types.Integer())),
	}
	env := NewEnv(map[string]*types.Type{
		"users": types.Sequence(types.Ref("User")),
	})

	checked, err := Check(
		&Each{
			Var:      "u",
			Iterable: &Symbol{Name: "users"},
			Body:     &Get{Source: &Symbol{Name: "u"}, Field: "id"},
		},
		reg, nil, env,
	)
	require.NoError(t, err)
	require.Equal(t, "Sequence[Integer]", checked.Type().String())

	env2 := NewEnv(map[string]*types.Type{"ghost": types.Ref("Ghost")})
	_, err = Check(&Get{Source: &Symbol{Name: "ghost"}, Field: "id"}, reg, nil, env2)
	checkKind(t, err, ErrUnknownType)
}

func TestCheckDoesNotMutateInput(t *testing.T) {
	env := NewEnv(map[string]*types.Type{"x": types.Integer()})
	input := &Get{Source: &Symbol{Name: "x"}, Field: "id"}

	_, err := Check(input, nil, nil, env)
	require.Error(t, err)
	require.Nil(t, input.Type())
	require.Nil(t, input.Source.Type())

	ok := &Symbol{Name: "x"}
	checked, err := Check(ok, nil, nil, env)
	require.NoError(t, err)
	require.Nil(t, ok.Type())
	require.Equal(t, types.Integer(), checked.Type())
}

func TestCheckErrorPath(t *testing.T) {
	env := NewEnv(map[string]*types.Type{
		"items": types.Sequence(types.Record(types.F("id", types.Any()))),
	})

	_, err := Check(
		&Each{
			Var:      "x",
			Iterable: &Symbol{Name: "items"},
			Body:     &Get{Source: &Symbol{Name: "x"}, Field: "missing"},
		},
		nil, nil, env,
	)
	var ce *CheckError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "each.body", ce.Path)
	require.Contains(t, ce.Error(), "missing")
}

func TestFuncTypes(t *testing.T) {
	fns, err := FuncTypes(map[string]*types.Type{
		"size": types.Callable([]*types.Type{types.Sequence(types.Any())}, types.Integer()),
	})
	require.NoError(t, err)
	require.Contains(t, fns, "size")

	_, err = FuncTypes(map[string]*types.Type{"bad": types.Integer()})
	require.ErrorContains(t, err, "want Callable")
}

func TestEnvShadowing(t *testing.T) {
	env := NewEnv(map[string]*types.Type{"x": types.String()})

	release := env.Push(map[string]*types.Type{"x": types.Integer()})
	got, ok := env.Lookup("x")
	require.True(t, ok)
	require.Equal(t, types.Integer(), got)
	release()

	got, ok = env.Lookup("x")
	require.True(t, ok)
	require.Equal(t, types.String(), got)
}

func TestEnvReleaseOrder(t *testing.T) {
	env := NewEnv(nil)
	r1 := env.Push(map[string]*types.Type{"a": types.Any()})
	env.Push(map[string]*types.Type{"b": types.Any()})
	require.Panics(t, r1)
}
