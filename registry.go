package pysbridge

import "github.com/puzpuzpuz/xsync/v4"

// DefaultID is the instance id an empty id normalizes to.
const DefaultID = "global"

// Registry maps instance ids to bridges. An id maps to at most one bridge
// for the registry's lifetime; there is no teardown.
type Registry struct {
	bridges *xsync.Map[string, *Bridge]
}

func NewRegistry() *Registry {
	return &Registry{bridges: xsync.NewMap[string, *Bridge]()}
}

func normalizeID(id string) string {
	if id == "" {
		return DefaultID
	}
	return id
}

// Create returns the bridge for id, constructing it on first use. Creation
// is idempotent: every call with the same id returns the same bridge.
func (r *Registry) Create(id string) *Bridge {
	id = normalizeID(id)
	b, _ := r.bridges.LoadOrStore(id, newBridge(id))
	return b
}

// Get returns the bridge for id, or an ErrNotFound failure naming the id if
// Create was never called for it.
func (r *Registry) Get(id string) (*Bridge, error) {
	id = normalizeID(id)
	b, ok := r.bridges.Load(id)
	if !ok {
		return nil, notFound("bridge", id)
	}
	return b, nil
}

func (r *Registry) Has(id string) bool {
	_, ok := r.bridges.Load(normalizeID(id))
	return ok
}

// defaultRegistry is the single process-wide instance table backing the
// package-level API.
var defaultRegistry = NewRegistry()

// Create returns the process-wide bridge for id, constructing it on first
// use. An empty id selects the default bridge.
func Create(id string) *Bridge { return defaultRegistry.Create(id) }

// Get returns the process-wide bridge for id, or an ErrNotFound failure
// naming the id.
func Get(id string) (*Bridge, error) { return defaultRegistry.Get(id) }

// Has reports whether a process-wide bridge exists for id.
func Has(id string) bool { return defaultRegistry.Has(id) }

// Default returns the default process-wide bridge, creating it if needed.
func Default() *Bridge { return Create("") }
