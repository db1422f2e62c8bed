package ws

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/greenhaus/chargesched/control"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const pushInterval = 5 * time.Second

// Handler upgrades /api/ws/status connections and streams the explainer's
// output to the hub on a fixed interval.
type Handler struct {
	hub    *Hub
	loop   *control.Loop
	logger *slog.Logger
}

func NewHandler(hub *Hub, loop *control.Loop) *Handler {
	return &Handler{hub: hub, loop: loop, logger: slog.Default().With("component", "httpapi.ws")}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("status feed upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 8)}
	h.hub.register(c)
	go c.writePump()

	h.sendStatus(c)
	h.drainReads(c)
}

// drainReads discards any inbound frames (this feed is push-only) until the
// client disconnects, matching the read side gorilla/websocket requires to
// observe a close.
func (h *Handler) drainReads(c *client) {
	defer h.hub.unregister(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) sendStatus(c *client) {
	msg, err := json.Marshal(h.loop.Explain())
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}

// RunBroadcastLoop periodically pushes the current explainer output to
// every connected client until ctx is cancelled.
func (h *Handler) RunBroadcastLoop(done <-chan struct{}) {
	ticker := time.NewTicker(pushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			msg, err := json.Marshal(h.loop.Explain())
			if err != nil {
				continue
			}
			h.hub.Broadcast(msg)
		}
	}
}
