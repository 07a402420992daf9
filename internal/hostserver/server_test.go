package hostserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pysbridge/pysbridge"
	"github.com/pysbridge/pysbridge/internal/config"
	"github.com/pysbridge/pysbridge/internal/ws"
)

const testToken = "test-pairing-token"

type testHost struct {
	bridge *pysbridge.Bridge
	srv    *Server
	hub    *ws.Hub
	ts     *httptest.Server
}

func newTestHost(t *testing.T) *testHost {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	bridge := pysbridge.NewRegistry().Create("test")
	cfg := &config.Config{BridgeID: "test", PairingToken: testToken}
	hub := ws.NewHub(logger)
	srv := New(bridge, hub, cfg, logger)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	return &testHost{bridge: bridge, srv: srv, hub: hub, ts: ts}
}

func (h *testHost) wsURL(token string) string {
	u := "ws" + strings.TrimPrefix(h.ts.URL, "http") + "/ws"
	if token != "" {
		u += "?token=" + token
	}
	return u
}

func (h *testHost) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(h.wsURL(testToken), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendFrame(t *testing.T, conn *websocket.Conn, env Envelope) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(env))
}

func readFrame(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestWSRejectsBadToken(t *testing.T) {
	h := newTestHost(t)

	_, resp, err := websocket.DefaultDialer.Dial(h.wsURL(""), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(h.wsURL("wrong"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegisterFuncAndCall(t *testing.T) {
	h := newTestHost(t)
	conn := h.dial(t)

	sendFrame(t, conn, Envelope{Type: TypeRegisterFunc, Name: "add"})
	require.Eventually(t, func() bool { return h.bridge.HasFunc("add") }, 2*time.Second, 10*time.Millisecond)

	// Serve exactly one invoke.
	go func() {
		env := readFrame(t, conn)
		if env.Type != TypeInvoke {
			return
		}
		sum := env.Args[0].(float64) + env.Args[1].(float64)
		sendFrame(t, conn, Envelope{Type: TypeResult, ID: env.ID, Value: mustJSON(sum)})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := h.bridge.CallFunc(ctx, "add", 2, 3)
	require.NoError(t, err)
	assert.Equal(t, float64(5), v)
}

func TestCallWaitsForRemoteRegistration(t *testing.T) {
	h := newTestHost(t)
	conn := h.dial(t)

	type outcome struct {
		v   any
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		v, err := h.bridge.CallFunc(ctx, "late")
		done <- outcome{v, err}
	}()

	select {
	case <-done:
		t.Fatal("call completed before the runtime registered")
	case <-time.After(100 * time.Millisecond):
	}

	sendFrame(t, conn, Envelope{Type: TypeRegisterFunc, Name: "late"})

	env := readFrame(t, conn)
	require.Equal(t, TypeInvoke, env.Type)
	require.Equal(t, "late", env.Name)
	sendFrame(t, conn, Envelope{Type: TypeResult, ID: env.ID, Value: mustJSON("done")})

	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, "done", res.v)
}

func TestRemoteCallError(t *testing.T) {
	h := newTestHost(t)
	conn := h.dial(t)

	sendFrame(t, conn, Envelope{Type: TypeRegisterFunc, Name: "fail"})
	require.Eventually(t, func() bool { return h.bridge.HasFunc("fail") }, 2*time.Second, 10*time.Millisecond)

	go func() {
		env := readFrame(t, conn)
		sendFrame(t, conn, Envelope{Type: TypeResult, ID: env.ID, Error: "kaput"})
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := h.bridge.CallFunc(ctx, "fail")
	require.ErrorContains(t, err, "kaput")
}

func TestRegisterStateAndSetStateProxy(t *testing.T) {
	h := newTestHost(t)
	conn := h.dial(t)

	sendFrame(t, conn, Envelope{Type: TypeRegisterState, Name: "counter", Value: mustJSON(1)})
	require.Eventually(t, func() bool { return h.bridge.HasState("counter") }, 2*time.Second, 10*time.Millisecond)

	v, err := h.bridge.State("counter")
	require.NoError(t, err)
	assert.Equal(t, float64(1), v)

	// The setter pushes a set_state frame back to the owning runtime.
	require.NoError(t, h.bridge.SetState("counter", 7))

	env := readFrame(t, conn)
	assert.Equal(t, TypeSetState, env.Type)
	assert.Equal(t, "counter", env.Name)
	assert.Equal(t, "7", string(bytes.TrimSpace(env.Value)))
}

func TestRegisterRefAndResolve(t *testing.T) {
	h := newTestHost(t)
	conn := h.dial(t)

	sendFrame(t, conn, Envelope{Type: TypeRegisterRef, Name: "title", Value: mustJSON("demo")})
	sendFrame(t, conn, Envelope{Type: TypeResolve, Name: "runtime_ready"})

	require.Eventually(t, func() bool { return h.bridge.HasRef("title") }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return h.bridge.Promise("runtime_ready").Resolved() }, 2*time.Second, 10*time.Millisecond)

	v, err := h.bridge.Ref("title")
	require.NoError(t, err)
	assert.Equal(t, "demo", v)
}

func TestDisconnectFailsPendingCalls(t *testing.T) {
	h := newTestHost(t)
	conn := h.dial(t)

	sendFrame(t, conn, Envelope{Type: TypeRegisterFunc, Name: "never"})
	require.Eventually(t, func() bool { return h.bridge.HasFunc("never") }, 2*time.Second, 10*time.Millisecond)

	errs := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := h.bridge.CallFunc(ctx, "never")
		errs <- err
	}()

	// Swallow the invoke, then drop the connection without answering.
	env := readFrame(t, conn)
	require.Equal(t, TypeInvoke, env.Type)
	conn.Close()

	require.ErrorIs(t, <-errs, errDisconnected)
}

func TestSetStateAfterCloseAllReturnsError(t *testing.T) {
	h := newTestHost(t)
	conn := h.dial(t)

	sendFrame(t, conn, Envelope{Type: TypeRegisterState, Name: "counter", Value: mustJSON(1)})
	require.Eventually(t, func() bool { return h.bridge.HasState("counter") }, 2*time.Second, 10*time.Millisecond)

	// Host shutdown must leave proxy setters failing cleanly, not sending
	// on a closed channel.
	h.hub.CloseAll()

	require.ErrorIs(t, h.bridge.SetState("counter", 7), errDisconnected)
}

func TestRegistrySnapshot(t *testing.T) {
	h := newTestHost(t)

	h.bridge.AddState("zeta", 1, nil)
	h.bridge.AddState("alpha", 2, nil)
	h.bridge.AddRef("ref1", nil)
	require.NoError(t, h.bridge.AddFunc("fn1", func(ctx context.Context, args ...any) (any, error) { return nil, nil }))

	resp, err := http.Get(h.ts.URL + "/api/registry")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "test", snap.Bridge)
	assert.Equal(t, []string{"alpha", "zeta"}, snap.States)
	assert.Equal(t, []string{"ref1"}, snap.Refs)
	assert.Equal(t, []string{"fn1"}, snap.Funcs)
}

func TestHealthz(t *testing.T) {
	h := newTestHost(t)

	resp, err := http.Get(h.ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQRCode(t *testing.T) {
	h := newTestHost(t)

	resp, err := http.Get(h.ts.URL + "/qr.png")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))

	resp, err = http.Get(h.ts.URL + "/qr.png?size=9999")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestIndexIssuesCookieAcceptedByWS(t *testing.T) {
	h := newTestHost(t)

	resp, err := http.Get(h.ts.URL + "/")
	require.NoError(t, err)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	cookies := resp.Cookies()
	require.NotEmpty(t, cookies)

	header := http.Header{}
	for _, c := range cookies {
		header.Add("Cookie", c.Name+"="+c.Value)
	}
	conn, _, err := websocket.DefaultDialer.Dial(h.wsURL(""), header)
	require.NoError(t, err)
	conn.Close()
}

func TestEmitEvent(t *testing.T) {
	h := newTestHost(t)
	conn := h.dial(t)

	// Make sure the connection is fully registered before emitting.
	sendFrame(t, conn, Envelope{Type: TypeRegisterFunc, Name: "marker"})
	require.Eventually(t, func() bool { return h.bridge.HasFunc("marker") }, 2*time.Second, 10*time.Millisecond)

	h.srv.Emit("host_shutdown")

	env := readFrame(t, conn)
	assert.Equal(t, TypeEvent, env.Type)
	assert.Equal(t, "host_shutdown", env.Name)
}

func TestSortedNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, []string{"a", "b", "c"}, sortedNames([]string{"c", "a", "b"}))
	assert.Empty(t, sortedNames(nil))
}

func mustJSON(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
