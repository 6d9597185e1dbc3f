// Package ws is the real-time core: it tracks live connection sessions,
// their room subscriptions, and fans persisted messages out to current
// subscribers.
package ws

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
)

type Config struct {
	// MaxMessageSize bounds a single inbound frame in bytes.
	MaxMessageSize int64
	// SendBufferSize is the per-connection outbound queue; a client that
	// falls this far behind is disconnected.
	SendBufferSize int
	// AllowedOrigins for the upgrade handshake. Empty allows same-origin
	// only (the gorilla default).
	AllowedOrigins []string
}

func DefaultConfig() Config {
	return Config{
		MaxMessageSize: 4096,
		SendBufferSize: 256,
	}
}

// Hub owns the set of live clients and their lifecycle. Registration and
// teardown run on a single goroutine (Run); the registry and dispatcher are
// injected so they can be exercised without a hub in tests.
type Hub struct {
	cfg        Config
	registry   *Registry
	dispatcher *Dispatcher
	logger     *slog.Logger
	validate   *validator.Validate
	upgrader   websocket.Upgrader

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(registry *Registry, dispatcher *Dispatcher, cfg Config, logger *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Hub{
		cfg:        cfg,
		registry:   registry,
		dispatcher: dispatcher,
		logger:     logger,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// Run processes client lifecycle events until Shutdown. Unregistration is
// the single place a session is torn down: subscriptions are removed and
// the send channel closed, exactly once, whether the disconnect was clean
// or abrupt.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client connected",
				"conn", client.ID(),
				"user", client.Username(),
				"authenticated", client.Authenticated(),
				"total", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				h.registry.UnsubscribeAll(client)
				client.closeSend()
				h.logger.Info("client disconnected",
					"conn", client.ID(),
					"user", client.Username(),
					"total", len(h.clients))
			}
		}
	}
}

func (h *Hub) closeAll() {
	for client := range h.clients {
		h.registry.UnsubscribeAll(client)
		client.closeSend()
		client.disconnect()
	}
	h.logger.Info("closed all client connections", "count", len(h.clients))
	clear(h.clients)
}

// Shutdown stops the hub loop and closes every connection, waiting up to
// timeout for the loop to drain.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()
	select {
	case <-h.done:
		return nil
	case <-time.After(timeout):
		return context.DeadlineExceeded
	}
}
