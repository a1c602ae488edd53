package models

import (
	"time"

	"github.com/google/uuid"
)

// Order statuses. Confirmed, cancelled and refunded are terminal; a confirmed
// order can still move to refunded through the payment service.
const (
	OrderStatusCreated        = "created"
	OrderStatusPaymentPending = "payment_pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusPaymentFailed  = "payment_failed"
	OrderStatusCancelled      = "cancelled"
	OrderStatusRefunded       = "refunded"
)

// Payment statuses mirrored onto the order record.
const (
	OrderPaymentStatusPending   = "pending"
	OrderPaymentStatusCompleted = "completed"
	OrderPaymentStatusFailed    = "failed"
	OrderPaymentStatusRefunded  = "refunded"
)

type Order struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrderNumber string    `gorm:"size:30;not null;unique" json:"order_number"`

	// Exactly one of UserID / GuestSessionID is set.
	UserID         *uuid.UUID `gorm:"index" json:"user_id,omitempty"`
	GuestSessionID *string    `gorm:"size:64;index" json:"guest_session_id,omitempty"`

	TotalAmount   float64 `gorm:"type:numeric(10,2);not null" json:"total_amount"`
	Status        string  `gorm:"size:20;not null;default:'created'" json:"status"`
	PaymentStatus string  `gorm:"size:20;not null;default:'pending'" json:"payment_status"`

	PaymentID *uuid.UUID `gorm:"index" json:"payment_id,omitempty"`

	ShippingName    string  `gorm:"size:255;not null" json:"shipping_name"`
	ShippingPhone   string  `gorm:"size:20;not null" json:"shipping_phone"`
	ShippingAddress string  `gorm:"size:500;not null" json:"shipping_address"`
	ShippingCity    string  `gorm:"size:100;not null" json:"shipping_city"`
	ShippingState   string  `gorm:"size:100;not null" json:"shipping_state"`
	ShippingPincode string  `gorm:"size:10;not null" json:"shipping_pincode"`
	Notes           *string `gorm:"type:text" json:"notes,omitempty"`

	Items []OrderItem `gorm:"foreignkey:OrderID" json:"items,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsTerminal reports whether no further status transition is expected,
// refund of a confirmed order excepted.
func (o *Order) IsTerminal() bool {
	return o.Status == OrderStatusCancelled || o.Status == OrderStatusRefunded
}

type OrderItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	OrderID   uuid.UUID `gorm:"not null;index" json:"order_id"`
	ProductID uuid.UUID `gorm:"not null" json:"product_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	UnitPrice float64   `gorm:"type:numeric(10,2);not null" json:"unit_price"`
	Quantity  int       `gorm:"not null" json:"quantity"`

	Product Product `gorm:"foreignkey:ProductID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

func (i OrderItem) LineTotal() float64 {
	return i.UnitPrice * float64(i.Quantity)
}
