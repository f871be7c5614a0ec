// Package stream pushes order lifecycle events to connected clients over
// websockets. Each order has its own room; both parties (and admins) may
// subscribe and receive every transition the moment it commits.
package stream

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/fixhub-io/fixhub/internal/order"
)

type wsEvent struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type room struct {
	orderID string
	mu      sync.RWMutex
	clients map[*websocket.Conn]bool
}

func (r *room) broadcast(evt wsEvent) {
	payload, _ := json.Marshal(evt)
	r.mu.RLock()
	defer r.mu.RUnlock()
	for c := range r.clients {
		_ = c.WriteMessage(websocket.TextMessage, payload)
	}
}

func (r *room) register(c *websocket.Conn) {
	r.mu.Lock()
	r.clients[c] = true
	r.mu.Unlock()
}

func (r *room) unregister(c *websocket.Conn) {
	r.mu.Lock()
	delete(r.clients, c)
	r.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub owns one room per order.
type Hub struct {
	orders order.Repository
	mu     sync.Mutex
	rooms  map[string]*room
}

func NewHub(orders order.Repository) *Hub {
	return &Hub{orders: orders, rooms: make(map[string]*room)}
}

func (h *Hub) room(orderID string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[orderID]; ok {
		return r
	}
	r := &room{orderID: orderID, clients: make(map[*websocket.Conn]bool)}
	h.rooms[orderID] = r
	return r
}

// drop removes the room from the hub once its last client has gone, so the
// room map does not grow with every order ever streamed.
func (h *Hub) drop(r *room) {
	h.mu.Lock()
	defer h.mu.Unlock()
	r.mu.RLock()
	empty := len(r.clients) == 0
	r.mu.RUnlock()
	if empty {
		delete(h.rooms, r.orderID)
	}
}

// Broadcast publishes an event to every subscriber of the order's room.
// Orders without subscribers have no room and the event is discarded.
func (h *Hub) Broadcast(orderID string, event any) {
	h.mu.Lock()
	r, ok := h.rooms[orderID]
	h.mu.Unlock()
	if !ok {
		return
	}
	r.broadcast(wsEvent{Type: "order_event", Data: event})
}

// ServeOrder is the websocket endpoint for realtime updates on an order.
// GET /marketplace/orders/:id/stream
func (h *Hub) ServeOrder(c echo.Context) error {
	userID, ok := c.Get("user_id").(string)
	if !ok || userID == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	role, _ := c.Get("role").(string)

	orderID := c.Param("id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing order id"})
	}

	o, err := h.orders.GetOrder(c.Request().Context(), orderID)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "order not found or inaccessible"})
	}
	if userID != o.CustomerID && userID != o.ProviderID && role != order.RoleAdmin {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not a participant in this order"})
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	r := h.room(orderID)
	r.register(ws)
	r.broadcast(wsEvent{Type: "presence_join", Data: echo.Map{"user_id": userID}})

	// Read loop; protocol is server push, client messages are discarded.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			r.unregister(ws)
			_ = ws.Close()
			r.broadcast(wsEvent{Type: "presence_leave", Data: echo.Map{"user_id": userID}})
			h.drop(r)
			break
		}
	}
	return nil
}
