package hostserver

import "encoding/json"

// Envelope is the wire frame in both directions. Unused fields are omitted.
type Envelope struct {
	Type  string          `json:"type"`
	ID    string          `json:"id,omitempty"`    // invoke correlation id
	Name  string          `json:"name,omitempty"`  // func/state/ref/signal name
	Value json.RawMessage `json:"value,omitempty"` // registration payload or invoke result
	Args  []any           `json:"args,omitempty"`  // invoke arguments
	Error string          `json:"error,omitempty"` // invoke failure reason
}

const (
	// runtime → host
	TypeRegisterFunc  = "register_func"
	TypeRegisterState = "register_state"
	TypeRegisterRef   = "register_ref"
	TypeResolve       = "resolve"
	TypeResult        = "result"

	// host → runtime
	TypeInvoke   = "invoke"
	TypeSetState = "set_state"
	TypeEvent    = "event"
)
