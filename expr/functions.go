package expr

import (
	"fmt"

	"github.com/slavikovbasa/hiku/types"
)

// Funcs is the table of named functions available to Apply expressions,
// keyed by name with Callable signatures. Built once at startup and treated
// as immutable.
type Funcs map[string]*types.Type

// FuncTypes validates an externally supplied registry of function signatures.
// Every entry must be a Callable type.
func FuncTypes(signatures map[string]*types.Type) (Funcs, error) {
	fns := make(Funcs, len(signatures))
	for name, sig := range signatures {
		if sig == nil || sig.Kind != types.KindCallable {
			return nil, fmt.Errorf("expr: function %q signature is %s, want Callable", name, sig)
		}
		fns[name] = sig
	}
	return fns, nil
}
