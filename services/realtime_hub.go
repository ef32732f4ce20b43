package services

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// WSClient serializes writes: gorilla allows one concurrent writer per
// connection, and the keepalive ping goroutine races the hub's broadcasts
// without this.
type WSClient struct {
	AccountID string
	Conn      *websocket.Conn

	writeMu sync.Mutex
}

func (c *WSClient) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// Ping is the keepalive write, on the same lock as broadcasts.
func (c *WSClient) Ping() error {
	return c.write(websocket.PingMessage, nil)
}

// RealtimeHub pushes pipeline events to an account's open sockets, so the
// meals list refreshes the moment a confirm lands.
type RealtimeHub struct {
	mu      sync.RWMutex
	clients map[string]map[*WSClient]struct{}
}

func NewRealtimeHub() *RealtimeHub {
	return &RealtimeHub{clients: make(map[string]map[*WSClient]struct{})}
}

func (h *RealtimeHub) Register(c *WSClient) {
	h.mu.Lock()
	if h.clients[c.AccountID] == nil {
		h.clients[c.AccountID] = make(map[*WSClient]struct{})
	}
	h.clients[c.AccountID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *RealtimeHub) Unregister(c *WSClient) {
	h.mu.Lock()
	if set := h.clients[c.AccountID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.AccountID)
		}
	}
	h.mu.Unlock()
	_ = c.Conn.Close()
}

// MealLogged implements MealEventSink.
func (h *RealtimeHub) MealLogged(accountID string, mealID uuid.UUID, caloriesTotal int) {
	h.broadcast(accountID, map[string]any{
		"kind":           "meal.logged",
		"meal_id":        mealID.String(),
		"calories_total": caloriesTotal,
	})
}

func (h *RealtimeHub) broadcast(accountID string, payload any) {
	msg, _ := json.Marshal(payload)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[accountID] {
		_ = c.write(websocket.TextMessage, msg)
	}
}
