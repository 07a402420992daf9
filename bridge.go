// Package pysbridge is a process-wide bridge registry: named states, refs
// and functions registered by a host runtime, plus one-shot readiness
// signals that let callers wait for a registration instead of racing it.
package pysbridge

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"
)

// Func is the calling convention for registered functions. Implementations
// receive the caller's arguments verbatim and may return a value, an error,
// or neither.
type Func func(ctx context.Context, args ...any) (any, error)

type stateEntry struct {
	value any
	set   func(any) error
}

// Bridge is one registry namespace: three independent name-keyed stores
// (states, refs, functions) and the readiness signals gating function calls.
// All methods are safe for concurrent use.
type Bridge struct {
	id       string
	states   *xsync.Map[string, stateEntry]
	refs     *xsync.Map[string, any]
	funcs    *xsync.Map[string, Func]
	promises *xsync.Map[string, *Promise]
}

func newBridge(id string) *Bridge {
	return &Bridge{
		id:       id,
		states:   xsync.NewMap[string, stateEntry](),
		refs:     xsync.NewMap[string, any](),
		funcs:    xsync.NewMap[string, Func](),
		promises: xsync.NewMap[string, *Promise](),
	}
}

func (b *Bridge) ID() string { return b.id }

// AddState registers a state under name, overwriting any prior entry. The
// value is a snapshot taken at registration time; only the setter stays
// live. A nil setter makes SetState a lookup-only check.
func (b *Bridge) AddState(name string, value any, set func(any) error) {
	b.states.Store(name, stateEntry{value: value, set: set})
}

// State returns the value snapshot stored for name.
func (b *Bridge) State(name string) (any, error) {
	e, ok := b.states.Load(name)
	if !ok {
		return nil, notFound("state", name)
	}
	return e.value, nil
}

// SetState invokes the stored setter with value and reports its error. The
// snapshot returned by State is unaffected.
func (b *Bridge) SetState(name string, value any) error {
	e, ok := b.states.Load(name)
	if !ok {
		return notFound("state", name)
	}
	if e.set == nil {
		return nil
	}
	return e.set(value)
}

func (b *Bridge) HasState(name string) bool {
	_, ok := b.states.Load(name)
	return ok
}

// AddRef stores an opaque value under name, overwriting any prior entry.
func (b *Bridge) AddRef(name string, value any) {
	b.refs.Store(name, value)
}

func (b *Bridge) Ref(name string) (any, error) {
	v, ok := b.refs.Load(name)
	if !ok {
		return nil, notFound("ref", name)
	}
	return v, nil
}

func (b *Bridge) HasRef(name string) bool {
	_, ok := b.refs.Load(name)
	return ok
}

// AddFunc stores fn under name and resolves the readiness signal for name,
// releasing every caller suspended in CallFunc. Re-registering replaces the
// function; the signal stays resolved.
func (b *Bridge) AddFunc(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("func %q is nil: %w", name, ErrInvalidArgument)
	}
	b.funcs.Store(name, fn)
	b.Promise(name).Resolve()
	return nil
}

func (b *Bridge) HasFunc(name string) bool {
	_, ok := b.funcs.Load(name)
	return ok
}

// Promise returns the readiness signal for name, creating it on first
// reference from either side (waiting or resolving).
func (b *Bridge) Promise(name string) *Promise {
	p, _ := b.promises.LoadOrStore(name, NewPromise())
	return p
}

// Resolve resolves the readiness signal for name. Idempotent.
func (b *Bridge) Resolve(name string) {
	b.Promise(name).Resolve()
}

// Wait blocks until the readiness signal for name resolves or ctx is
// cancelled.
func (b *Bridge) Wait(ctx context.Context, name string) error {
	return b.Promise(name).Wait(ctx)
}

// CallFunc waits for the readiness signal for name, then invokes the stored
// function with args. A call placed before registration suspends until
// AddFunc runs; with a background context the wait is indefinite. A resolved
// signal with no function behind it (the signal was resolved directly) is
// reported as an ErrNotFound failure rather than a silent no-op.
func (b *Bridge) CallFunc(ctx context.Context, name string, args ...any) (any, error) {
	if err := b.Promise(name).Wait(ctx); err != nil {
		return nil, err
	}
	fn, ok := b.funcs.Load(name)
	if !ok {
		return nil, fmt.Errorf("func %q is not registered: %w", name, ErrNotFound)
	}
	return fn(ctx, args...)
}

// StateNames reports the registered state names, unordered.
func (b *Bridge) StateNames() []string {
	return mapKeys(b.states)
}

// RefNames reports the registered ref names, unordered.
func (b *Bridge) RefNames() []string {
	return mapKeys(b.refs)
}

// FuncNames reports the registered function names, unordered.
func (b *Bridge) FuncNames() []string {
	return mapKeys(b.funcs)
}

func mapKeys[V any](m *xsync.Map[string, V]) []string {
	names := make([]string, 0, m.Size())
	m.Range(func(name string, _ V) bool {
		names = append(names, name)
		return true
	})
	return names
}
