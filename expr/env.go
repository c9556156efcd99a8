package expr

import "github.com/slavikovbasa/hiku/types"

// Env is a stack of name→type frames. Lookup searches innermost-first, so a
// pushed frame shadows identically named outer bindings until released.
//
// One Env serves one Check call; it is not safe for concurrent use.
type Env struct {
	frames []map[string]*types.Type
}

// NewEnv creates an environment with bindings as its outermost frame.
func NewEnv(bindings map[string]*types.Type) *Env {
	e := &Env{}
	if len(bindings) > 0 {
		e.frames = append(e.frames, bindings)
	}
	return e
}

// Push adds a frame and returns its release func. Callers must invoke
// release on every exit path from the scope the frame serves.
func (e *Env) Push(bindings map[string]*types.Type) (release func()) {
	e.frames = append(e.frames, bindings)
	depth := len(e.frames)
	return func() {
		if len(e.frames) != depth {
			panic("expr: environment frames released out of order")
		}
		e.frames = e.frames[:depth-1]
	}
}

// Lookup returns the innermost binding for name.
func (e *Env) Lookup(name string) (*types.Type, bool) {
	for i := len(e.frames) - 1; i >= 0; i-- {
		if t, ok := e.frames[i][name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Contains reports whether name is bound in any frame.
func (e *Env) Contains(name string) bool {
	_, ok := e.Lookup(name)
	return ok
}
