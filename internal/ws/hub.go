package ws

import (
	"log/slog"
	"sync"
)

// Hub tracks connected runtime clients per bridge id.
type Hub struct {
	mu       sync.RWMutex
	runtimes map[string]map[*BaseClient]struct{}
	logger   *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		runtimes: make(map[string]map[*BaseClient]struct{}),
		logger:   logger,
	}
}

func (h *Hub) Register(bridgeID string, c *BaseClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.runtimes[bridgeID] == nil {
		h.runtimes[bridgeID] = make(map[*BaseClient]struct{})
	}
	h.runtimes[bridgeID][c] = struct{}{}
	h.logger.Debug("runtime connected",
		"bridge", bridgeID,
		"runtimes", len(h.runtimes[bridgeID]),
	)
}

func (h *Hub) Unregister(bridgeID string, c *BaseClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.runtimes[bridgeID]; !ok {
		return
	}
	if _, ok := h.runtimes[bridgeID][c]; !ok {
		return
	}
	delete(h.runtimes[bridgeID], c)
	c.Close()
	if len(h.runtimes[bridgeID]) == 0 {
		delete(h.runtimes, bridgeID)
	}
	h.logger.Debug("runtime disconnected", "bridge", bridgeID)
}

// Broadcast queues data for every runtime serving bridgeID. Slow consumers
// are skipped rather than blocking the caller.
func (h *Hub) Broadcast(bridgeID string, data []byte) {
	if data == nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.runtimes[bridgeID] {
		if err := c.Push(data); err != nil {
			h.logger.Warn("dropped broadcast", "bridge", bridgeID, "err", err)
		}
	}
}

// CloseAll disconnects every runtime. Used on host shutdown. Closing goes
// through each client's own close path so in-flight pushes see an error
// instead of a closed channel.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for bridgeID, clients := range h.runtimes {
		for c := range clients {
			c.Close()
		}
		delete(h.runtimes, bridgeID)
	}
}
