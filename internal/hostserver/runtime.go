package hostserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/pysbridge/pysbridge"
	"github.com/pysbridge/pysbridge/internal/ws"
)

var errDisconnected = errors.New("hostserver: runtime disconnected")

// Runtime is one connected external runtime serving a bridge. Everything it
// registers lands in the bridge as a proxy that talks back over the socket:
// functions become invoke round trips, state setters become set_state pushes.
type Runtime struct {
	*ws.BaseClient

	bridge *pysbridge.Bridge
	hub    *ws.Hub
	logger *slog.Logger

	calls *xsync.Map[string, chan callResult]
	seq   atomic.Uint64

	closed    chan struct{}
	closeOnce sync.Once
}

type callResult struct {
	value json.RawMessage
	err   error
}

func NewRuntime(base *ws.BaseClient, bridge *pysbridge.Bridge, hub *ws.Hub, logger *slog.Logger) *Runtime {
	return &Runtime{
		BaseClient: base,
		bridge:     bridge,
		hub:        hub,
		logger:     logger,
		calls:      xsync.NewMap[string, chan callResult](),
		closed:     make(chan struct{}),
	}
}

// ReadPump consumes the socket until it drops, dispatching registrations and
// invoke results. It unregisters the client and fails pending calls on exit.
func (r *Runtime) ReadPump() {
	defer func() {
		r.markClosed()
		r.hub.Unregister(r.bridge.ID(), r.BaseClient)
		r.Conn.Close()
	}()

	r.Conn.SetReadLimit(ws.MaxMessageSize)
	r.Conn.SetReadDeadline(time.Now().Add(ws.PongWait))
	r.Conn.SetPongHandler(func(string) error {
		r.Conn.SetReadDeadline(time.Now().Add(ws.PongWait))
		return nil
	})

	for {
		_, raw, err := r.Conn.ReadMessage()
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			r.logger.Warn("bad envelope from runtime", "bridge", r.bridge.ID(), "err", err)
			continue
		}
		r.dispatch(env)
	}
}

func (r *Runtime) dispatch(env Envelope) {
	switch env.Type {
	case TypeRegisterFunc:
		if err := r.bridge.AddFunc(env.Name, r.proxyFunc(env.Name)); err != nil {
			r.logger.Warn("register_func rejected", "name", env.Name, "err", err)
			return
		}
		r.logger.Debug("func registered", "bridge", r.bridge.ID(), "name", env.Name)

	case TypeRegisterState:
		value := decodeValue(env.Value)
		name := env.Name
		r.bridge.AddState(name, value, func(v any) error {
			return r.push(Envelope{Type: TypeSetState, Name: name, Value: encodeValue(v)})
		})
		r.logger.Debug("state registered", "bridge", r.bridge.ID(), "name", name)

	case TypeRegisterRef:
		r.bridge.AddRef(env.Name, decodeValue(env.Value))
		r.logger.Debug("ref registered", "bridge", r.bridge.ID(), "name", env.Name)

	case TypeResolve:
		r.bridge.Resolve(env.Name)
		r.logger.Debug("signal resolved", "bridge", r.bridge.ID(), "name", env.Name)

	case TypeResult:
		ch, ok := r.calls.LoadAndDelete(env.ID)
		if !ok {
			return
		}
		res := callResult{value: env.Value}
		if env.Error != "" {
			res.err = fmt.Errorf("hostserver: runtime call failed: %s", env.Error)
		}
		ch <- res

	default:
		r.logger.Warn("unknown envelope type", "type", env.Type)
	}
}

// proxyFunc builds the bridge-side stand-in for a function living in the
// runtime: marshal the arguments, push an invoke frame, wait for the matching
// result.
func (r *Runtime) proxyFunc(name string) pysbridge.Func {
	return func(ctx context.Context, args ...any) (any, error) {
		id := strconv.FormatUint(r.seq.Add(1), 10)
		ch := make(chan callResult, 1)
		r.calls.Store(id, ch)
		defer r.calls.Delete(id)

		if err := r.push(Envelope{Type: TypeInvoke, ID: id, Name: name, Args: args}); err != nil {
			return nil, err
		}

		select {
		case res := <-ch:
			if res.err != nil {
				return nil, res.err
			}
			return decodeValue(res.value), nil
		case <-r.closed:
			return nil, errDisconnected
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// push queues an envelope for the runtime without ever blocking the caller.
// A closed client reads as a disconnect so proxies report the same error
// whether the socket dropped or the host shut the hub down.
func (r *Runtime) push(env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := r.Push(data); err != nil {
		if errors.Is(err, ws.ErrClientClosed) {
			return errDisconnected
		}
		return err
	}
	return nil
}

// markClosed fails every pending call. Push safety is the client's own
// concern; this only settles the proxies still waiting on results.
func (r *Runtime) markClosed() {
	r.closeOnce.Do(func() {
		close(r.closed)

		r.calls.Range(func(id string, _ chan callResult) bool {
			if c, ok := r.calls.LoadAndDelete(id); ok {
				c <- callResult{err: errDisconnected}
			}
			return true
		})
	})
}

func decodeValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func encodeValue(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
