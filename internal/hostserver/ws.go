package hostserver

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/pysbridge/pysbridge/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWS authenticates a runtime (pairing token in the query, or the
// signed cookie the demo page carries) and hands the connection to its
// pumps. The handler returns when the runtime disconnects.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "err", err)
		return
	}

	base := ws.NewBaseClient(conn)
	rt := NewRuntime(base, s.bridge, s.hub, s.logger)

	s.hub.Register(s.bridge.ID(), base)
	go base.WritePump()
	rt.ReadPump()
}

func (s *Server) authorized(r *http.Request) bool {
	token := r.URL.Query().Get("token")
	if token == "" {
		var err error
		token, err = s.codec.Token(r)
		if err != nil {
			return false
		}
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.PairingToken)) == 1
}
