// Package hostserver exposes a bridge to external runtimes over HTTP: a
// websocket endpoint for registrations and invocation, a pairing QR code,
// and a read-only registry snapshot for the demo page.
//
// Trust model: the listener binds the loopback interface by default and
// anything that can reach it is treated as local. The index page and the QR
// code hand out the pairing credential without authentication on that basis;
// the token check on /ws keeps unpaired peers out when the host is
// deliberately bound to a wider interface.
package hostserver

import (
	"encoding/json"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/singleflight"

	"github.com/pysbridge/pysbridge"
	"github.com/pysbridge/pysbridge/internal/cache"
	"github.com/pysbridge/pysbridge/internal/config"
	"github.com/pysbridge/pysbridge/internal/session"
	"github.com/pysbridge/pysbridge/internal/ws"
	"github.com/pysbridge/pysbridge/web"
)

type Server struct {
	bridge *pysbridge.Bridge
	hub    *ws.Hub
	cfg    *config.Config
	logger *slog.Logger
	codec  *session.Codec

	snapshots *xsync.Map[string, cache.Entry[Snapshot]]
	sfg       singleflight.Group
}

func New(bridge *pysbridge.Bridge, hub *ws.Hub, cfg *config.Config, logger *slog.Logger) *Server {
	return &Server{
		bridge:    bridge,
		hub:       hub,
		cfg:       cfg,
		logger:    logger,
		codec:     session.NewCodec(),
		snapshots: xsync.NewMap[string, cache.Entry[Snapshot]](),
	}
}

func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)

	r.Get("/", s.handleIndex)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(web.StaticFS()))))

	r.Get("/ws", s.handleWS)
	r.Get("/qr.png", s.handleQR)
	r.Get("/api/registry", s.handleRegistry)
	r.Get("/healthz", s.handleHealthz)

	return r
}

// handleIndex serves the demo page and issues the signed cookie its socket
// connection authenticates with.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if err := s.codec.Issue(w, s.cfg.PairingToken); err != nil {
		s.serverError(w, err)
		return
	}

	data, err := fs.ReadFile(web.StaticFS(), "index.html")
	if err != nil {
		s.serverError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Snapshot is the read-only registry listing served to the demo page.
type Snapshot struct {
	Bridge string   `json:"bridge"`
	States []string `json:"states"`
	Refs   []string `json:"refs"`
	Funcs  []string `json:"funcs"`
}

func (s *Server) handleRegistry(w http.ResponseWriter, r *http.Request) {
	snap, err := cache.Single(s.snapshots, &s.sfg, "registry", time.Second, func() (Snapshot, error) {
		return Snapshot{
			Bridge: s.bridge.ID(),
			States: sortedNames(s.bridge.StateNames()),
			Refs:   sortedNames(s.bridge.RefNames()),
			Funcs:  sortedNames(s.bridge.FuncNames()),
		}, nil
	})
	if err != nil {
		s.serverError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(snap)
}

// Emit broadcasts a named event to every runtime serving the bridge.
func (s *Server) Emit(name string) {
	data, err := json.Marshal(Envelope{Type: TypeEvent, Name: name})
	if err != nil {
		return
	}
	s.hub.Broadcast(s.bridge.ID(), data)
}

func (s *Server) serverError(w http.ResponseWriter, err error) {
	s.logger.Error("host request failed", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
