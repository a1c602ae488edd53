package websocket

import (
	"log"
	"sync"

	"github.com/avinashd07/shop_mitra/models"
	"github.com/gofiber/contrib/websocket"
)

// Client is one connected order-status listener. OwnerKey is the user id for
// authenticated customers or the guest session id for guest checkouts.
type Client struct {
	OwnerKey string
	Conn     *websocket.Conn
}

type OrderStatusUpdate struct {
	OrderNumber   string `json:"order_number"`
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	Event         string `json:"event"`
}

// Hub fans order-status updates out to the owner of the order. One connection
// per owner key; a newer connection replaces the old one.
type Hub struct {
	clients   map[string]*websocket.Conn
	clientsMu sync.RWMutex

	Register   chan *Client
	Unregister chan *Client
	updates    chan ownedUpdate
}

type ownedUpdate struct {
	ownerKey string
	update   OrderStatusUpdate
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*websocket.Conn),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		updates:    make(chan ownedUpdate, 64),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			log.Printf("Order status client registered: %s", client.OwnerKey)
			h.clientsMu.Lock()
			h.clients[client.OwnerKey] = client.Conn
			h.clientsMu.Unlock()
		case client := <-h.Unregister:
			log.Printf("Order status client unregistered: %s", client.OwnerKey)
			h.clientsMu.Lock()
			if conn, ok := h.clients[client.OwnerKey]; ok && conn == client.Conn {
				delete(h.clients, client.OwnerKey)
			}
			h.clientsMu.Unlock()
		case msg := <-h.updates:
			h.clientsMu.RLock()
			conn, ok := h.clients[msg.ownerKey]
			h.clientsMu.RUnlock()
			if !ok {
				continue
			}
			if err := conn.WriteJSON(msg.update); err != nil {
				log.Printf("Error pushing order update to %s: %v", msg.ownerKey, err)
				conn.Close()
				h.clientsMu.Lock()
				if current, ok := h.clients[msg.ownerKey]; ok && current == conn {
					delete(h.clients, msg.ownerKey)
				}
				h.clientsMu.Unlock()
			}
		}
	}
}

// OrderEvent implements the payment service's notifier contract: it queues a
// status push for the order's owner without blocking the caller.
func (h *Hub) OrderEvent(order *models.Order, event string) {
	ownerKey := OwnerKeyFor(order)
	if ownerKey == "" {
		return
	}

	update := ownedUpdate{
		ownerKey: ownerKey,
		update: OrderStatusUpdate{
			OrderNumber:   order.OrderNumber,
			Status:        order.Status,
			PaymentStatus: order.PaymentStatus,
			Event:         event,
		},
	}
	select {
	case h.updates <- update:
	default:
		log.Printf("Order update queue full, dropping push for %s", order.OrderNumber)
	}
}

func OwnerKeyFor(order *models.Order) string {
	if order.UserID != nil {
		return order.UserID.String()
	}
	if order.GuestSessionID != nil {
		return *order.GuestSessionID
	}
	return ""
}
