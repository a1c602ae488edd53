package handlers

import (
	"errors"
	"log"

	config "github.com/avinashd07/shop_mitra/configs"
	ws "github.com/avinashd07/shop_mitra/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

type StatusWsHandler struct {
	hub *ws.Hub
}

func NewStatusWsHandler(hub *ws.Hub) *StatusWsHandler {
	return &StatusWsHandler{hub: hub}
}

// ServeWs upgrades a client onto the order-status stream. The first frame must
// be an auth message carrying either a JWT or a guest session id; the
// connection then only receives updates for that owner's orders.
func (h *StatusWsHandler) ServeWs(c *websocketcontrib.Conn) {
	type AuthMessage struct {
		Type         string `json:"type"`
		Token        string `json:"token,omitempty"`
		GuestSession string `json:"guest_session,omitempty"`
	}

	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	var ownerKey string
	switch {
	case authMsg.Token != "":
		claims, err := parseToken(authMsg.Token)
		if err != nil {
			_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
			c.Close()
			return
		}
		userID, ok := claims["user_id"].(string)
		if !ok || userID == "" {
			_ = c.WriteJSON(fiber.Map{"error": "Invalid user ID"})
			c.Close()
			return
		}
		ownerKey = userID
	case authMsg.GuestSession != "":
		ownerKey = authMsg.GuestSession
	default:
		_ = c.WriteJSON(fiber.Map{"error": "Auth message needs a token or guest session"})
		c.Close()
		return
	}

	client := &ws.Client{OwnerKey: ownerKey, Conn: c}
	h.hub.Register <- client
	defer func() {
		h.hub.Unregister <- client
		c.Close()
	}()

	// The stream is push-only; reads just detect disconnects.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("Order status stream closed for %s: %v", ownerKey, err)
			}
			return
		}
	}
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		return []byte(config.Config("JWT_SECRET")), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid claims")
	}
	return claims, nil
}
