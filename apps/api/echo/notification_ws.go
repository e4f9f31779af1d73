package echoapi

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/chakula/core"
	"github.com/trezcool/chakula/core/notification"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsSendBuffer = 16
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// tokens travel in the query string, not in cookies
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan notification.Notification
}

// NotificationHub pushes notifications to the websocket connections of their recipient.
type NotificationHub struct {
	mu          sync.RWMutex
	clients     map[string]map[*wsClient]struct{}
	connections prometheus.Gauge
	logger      core.Logger
}

var _ notification.Publisher = (*NotificationHub)(nil)

func NewNotificationHub(logger core.Logger) *NotificationHub {
	return &NotificationHub{
		clients: make(map[string]map[*wsClient]struct{}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_connections",
			Help: "Number of open notification websockets.",
		}),
		logger: logger,
	}
}

// Publish queues n for every connection of its user. Slow connections miss it.
func (h *NotificationHub) Publish(n notification.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[n.UserID] {
		select {
		case c.send <- n:
		default:
			h.logger.Warn(fmt.Sprintf("notification %s dropped: websocket send buffer full", n.ID))
		}
	}
}

// Connections counts the open websockets of userID.
func (h *NotificationHub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *NotificationHub) register(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*wsClient]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.connections.Inc()
}

func (h *NotificationHub) unregister(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	conns, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok = conns[c]; !ok {
		return
	}
	delete(conns, c)
	if len(conns) == 0 {
		delete(h.clients, c.userID)
	}
	close(c.send)
	h.connections.Dec()
}

// Close disconnects everyone.
func (h *NotificationHub) Close() {
	h.mu.RLock()
	clients := make([]*wsClient, 0)
	for _, conns := range h.clients {
		for c := range conns {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		_ = c.conn.Close()
	}
}

// serve upgrades the request and streams the user's notifications until the connection closes.
func (h *NotificationHub) serve(ctx echo.Context, userID string) error {
	conn, err := wsUpgrader.Upgrade(ctx.Response(), ctx.Request(), nil)
	if err != nil {
		// the upgrader has already replied
		return nil
	}
	c := &wsClient{userID: userID, conn: conn, send: make(chan notification.Notification, wsSendBuffer)}
	h.register(c)

	go c.writePump()
	c.readPump()
	h.unregister(c)
	return nil
}

// readPump discards incoming messages and keeps the connection alive until the peer leaves.
func (c *wsClient) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case n, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(n); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
