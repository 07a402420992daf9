package pysbridge

import (
	"context"
	"fmt"
)

// The flat API exposes promises, states, refs and functions directly on the
// default bridge, without the instance-id indirection. Unlike Bridge.AddFunc
// and Bridge.CallFunc, the readiness-signal name here is decoupled from the
// function name: one signal may gate several functions, and an empty signal
// name skips waiting entirely.

// PromiseOf returns the named readiness signal on the default bridge,
// creating it on first reference.
func PromiseOf(name string) *Promise { return Default().Promise(name) }

// Wait blocks until the named signal on the default bridge resolves or ctx
// is cancelled.
func Wait(ctx context.Context, name string) error { return Default().Wait(ctx, name) }

// Resolve resolves the named signal on the default bridge. Idempotent.
func Resolve(name string) { Default().Resolve(name) }

// RegisterState registers a state on the default bridge, overwriting any
// prior entry.
func RegisterState(name string, value any, set func(any) error) {
	Default().AddState(name, value, set)
}

// RegisterRef stores an opaque value on the default bridge.
func RegisterRef(name string, value any) { Default().AddRef(name, value) }

// RegisterFunc stores fn on the default bridge without touching any
// readiness signal. Pair it with Resolve when waiters should be released.
func RegisterFunc(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("func %q is nil: %w", name, ErrInvalidArgument)
	}
	Default().funcs.Store(name, fn)
	return nil
}

// State returns the value snapshot stored for name on the default bridge.
func State(name string) (any, error) { return Default().State(name) }

// SetState invokes the setter stored for name on the default bridge.
func SetState(name string, value any) error { return Default().SetState(name, value) }

// Ref returns the value stored for name on the default bridge.
func Ref(name string) (any, error) { return Default().Ref(name) }

// CallFunc invokes the named function on the default bridge, first waiting
// on the signal named promiseName. An empty promiseName skips the wait; a
// missing function fails with ErrNotFound either way.
func CallFunc(ctx context.Context, name, promiseName string, args ...any) (any, error) {
	if promiseName != "" {
		if err := Wait(ctx, promiseName); err != nil {
			return nil, err
		}
	}
	fn, ok := Default().funcs.Load(name)
	if !ok {
		return nil, fmt.Errorf("func %q is not registered: %w", name, ErrNotFound)
	}
	return fn(ctx, args...)
}
