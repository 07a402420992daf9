package ws

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBroadcastReachesRegisteredClients(t *testing.T) {
	t.Parallel()
	hub := newTestHub()

	a := NewBaseClient(nil)
	b := NewBaseClient(nil)
	hub.Register("bridge", a)
	hub.Register("bridge", b)
	hub.Register("other", NewBaseClient(nil))

	hub.Broadcast("bridge", []byte("hello"))

	assert.Equal(t, []byte("hello"), <-a.Send)
	assert.Equal(t, []byte("hello"), <-b.Send)
}

func TestBroadcastNilIsNoop(t *testing.T) {
	t.Parallel()
	hub := newTestHub()

	c := NewBaseClient(nil)
	hub.Register("bridge", c)
	hub.Broadcast("bridge", nil)

	select {
	case <-c.Send:
		t.Fatal("unexpected message")
	default:
	}
}

func TestUnregisterClosesSend(t *testing.T) {
	t.Parallel()
	hub := newTestHub()

	c := NewBaseClient(nil)
	hub.Register("bridge", c)
	hub.Unregister("bridge", c)

	_, ok := <-c.Send
	assert.False(t, ok)

	// Unregistering again must be a no-op, not a double close.
	hub.Unregister("bridge", c)
}

func TestUnregisterUnknownBridge(t *testing.T) {
	t.Parallel()
	hub := newTestHub()
	hub.Unregister("ghost", NewBaseClient(nil))
}

func TestCloseAll(t *testing.T) {
	t.Parallel()
	hub := newTestHub()

	a := NewBaseClient(nil)
	b := NewBaseClient(nil)
	hub.Register("x", a)
	hub.Register("y", b)

	hub.CloseAll()

	_, ok := <-a.Send
	require.False(t, ok)
	_, ok = <-b.Send
	require.False(t, ok)

	// Unregister after CloseAll must not double-close.
	hub.Unregister("x", a)
}
