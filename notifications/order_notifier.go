package notifications

import (
	"fmt"

	"github.com/avinashd07/shop_mitra/models"
	"github.com/avinashd07/shop_mitra/websocket"
	"gorm.io/gorm"
)

// OrderNotifier fans order lifecycle events out to the websocket hub and, for
// authenticated customers, to email. Guest checkouts only get the push.
type OrderNotifier struct {
	hub *websocket.Hub
	db  *gorm.DB
}

func NewOrderNotifier(hub *websocket.Hub, db *gorm.DB) *OrderNotifier {
	return &OrderNotifier{hub: hub, db: db}
}

func (n *OrderNotifier) OrderEvent(order *models.Order, event string) {
	if n.hub != nil {
		n.hub.OrderEvent(order, event)
	}

	if order.UserID == nil {
		return
	}

	subject, body := emailFor(order, event)
	if subject == "" {
		return
	}

	go func() {
		var user models.User
		if err := n.db.First(&user, "id = ?", *order.UserID).Error; err != nil {
			return
		}
		SendEmail(user.FullName, user.Email, subject, body)
	}()
}

func emailFor(order *models.Order, event string) (string, string) {
	switch event {
	case "confirmed":
		return "Your Order is Confirmed!",
			fmt.Sprintf("<h1>Order Confirmed</h1><p>Your payment was successful and order <b>%s</b> is confirmed. We will notify you when it ships.</p>", order.OrderNumber)
	case "payment_failed":
		return "Payment Failed for Your Order",
			fmt.Sprintf("<h1>Payment Failed</h1><p>The payment for order <b>%s</b> could not be completed. You can retry the payment from your orders page.</p>", order.OrderNumber)
	case "refunded":
		return "Your Refund has been Processed",
			fmt.Sprintf("<h1>Refund Processed</h1><p>The refund for order <b>%s</b> has been initiated. It should reflect in your account within 5-7 business days.</p>", order.OrderNumber)
	}
	return "", ""
}
