// Package ws streams stock changes to merchant dashboards over websockets.
package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"genfity-pricing-service/internal/auth"
	"genfity-pricing-service/internal/events"
	"genfity-pricing-service/internal/stock"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

type StockMessage struct {
	Type       string         `json:"type"`
	MerchantID int64          `json:"merchantId"`
	OrderID    int64          `json:"orderId,omitempty"`
	Changes    []stock.Change `json:"changes"`
	At         time.Time      `json:"at"`
}

type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (c *client) writeJSON(value any) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(value)
}

func (c *client) ping() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// Hub fans stock events out to every socket of the affected merchant.
type Hub struct {
	logger    *zap.Logger
	jwtSecret string
	heartbeat time.Duration

	mu   sync.RWMutex
	subs map[int64]map[*client]struct{}
}

func NewHub(logger *zap.Logger, jwtSecret string, heartbeat time.Duration) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	if heartbeat <= 0 {
		heartbeat = 30 * time.Second
	}
	return &Hub{
		logger:    logger,
		jwtSecret: jwtSecret,
		heartbeat: heartbeat,
		subs:      make(map[int64]map[*client]struct{}),
	}
}

func (h *Hub) subscribe(merchantID int64, c *client) (unsubscribe func()) {
	h.mu.Lock()
	if h.subs[merchantID] == nil {
		h.subs[merchantID] = make(map[*client]struct{})
	}
	h.subs[merchantID][c] = struct{}{}
	h.mu.Unlock()

	return func() { h.remove(merchantID, c) }
}

func (h *Hub) remove(merchantID int64, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients := h.subs[merchantID]
	delete(clients, c)
	if len(clients) == 0 {
		delete(h.subs, merchantID)
	}
}

// Subscribers is the number of open sockets for a merchant.
func (h *Hub) Subscribers(merchantID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[merchantID])
}

// Broadcast writes message to the merchant's sockets. A socket that fails a
// write is closed and dropped.
func (h *Hub) Broadcast(merchantID int64, message any) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.subs[merchantID]))
	for c := range h.subs[merchantID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(message); err != nil {
			_ = c.conn.Close()
			h.remove(merchantID, c)
		}
	}
}

// HandleStockEvent decodes a stock.changed payload and broadcasts it. It is
// both an events.Handler and a queue.HandlerFunc. Malformed bodies are
// returned as errors so the broker can dead-letter them.
func (h *Hub) HandleStockEvent(_ context.Context, body []byte) error {
	var ev events.StockEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	if ev.MerchantID == 0 || len(ev.Changes) == 0 {
		return nil
	}
	h.Broadcast(ev.MerchantID, StockMessage{
		Type:       events.StockChanged,
		MerchantID: ev.MerchantID,
		OrderID:    ev.OrderID,
		Changes:    ev.Changes,
		At:         ev.At,
	})
	return nil
}

// MerchantStockWS authenticates with ?token= since browsers cannot set
// headers on websocket requests.
func (h *Hub) MerchantStockWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	claims, err := auth.VerifyAccessToken(auth.TokenFromQuery(r.URL.Query().Get("token")), h.jwtSecret)
	if err != nil || !claims.IsMerchant() {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "unauthorized"})
		return
	}
	merchantID, err := claims.MerchantIDValue()
	if err != nil {
		_ = conn.WriteJSON(map[string]any{"type": "error", "message": "unauthorized"})
		return
	}

	c := &client{conn: conn}
	unsubscribe := h.subscribe(merchantID, c)
	defer unsubscribe()
	h.logger.Debug("stock stream opened", zap.Int64("merchantId", merchantID))

	_ = c.writeJSON(map[string]any{"type": "stock.subscribed", "merchantId": merchantID})

	clientClosed := make(chan struct{})
	go func() {
		defer close(clientClosed)
		for {
			if _, _, readErr := conn.ReadMessage(); readErr != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-clientClosed:
			return
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		}
	}
}
