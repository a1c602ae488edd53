package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment statuses. Completed and refunded are sink states; a failed payment
// is revived by resetting it to pending, never by creating a second record.
const (
	PaymentStatusPending   = "pending"
	PaymentStatusCompleted = "completed"
	PaymentStatusFailed    = "failed"
	PaymentStatusRefunded  = "refunded"
)

const (
	PaymentProviderCOD      = "cod"
	PaymentProviderRazorpay = "razorpay"
)

// CheckoutSession is the remote gateway's view of a newly created checkout:
// the order id under which funds are reserved, the reference its webhook
// events identify the checkout by, and a hosted payment page when the
// provider offers one.
type CheckoutSession struct {
	GatewayOrderID string
	CheckoutID     string
	CheckoutURL    string
}

type Payment struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`

	// One payment record per order; failed attempts are reset to pending and
	// reused, never recreated. The unique index backstops the duplicate check
	// against racing initiations.
	OrderID     uuid.UUID `gorm:"not null;uniqueIndex" json:"order_id"`
	OrderNumber string    `gorm:"size:30;not null;index" json:"order_number"`

	UserID         *uuid.UUID `json:"user_id,omitempty"`
	GuestSessionID *string    `gorm:"size:64" json:"guest_session_id,omitempty"`

	Provider string  `gorm:"size:50;not null" json:"provider"`
	Amount   float64 `gorm:"type:numeric(10,2);not null" json:"amount"`
	Method   *string `gorm:"size:50" json:"method,omitempty"`
	Status   string  `gorm:"size:20;not null;default:'pending'" json:"status"`

	// GatewayOrderID is write-once: stamped when the remote checkout order is
	// created and never changed afterwards.
	GatewayOrderID       *string `gorm:"size:255;unique" json:"gateway_order_id,omitempty"`
	CheckoutID           *string `gorm:"size:255;unique" json:"checkout_id,omitempty"`
	TransactionID        *string `gorm:"size:255;unique" json:"transaction_id,omitempty"`
	GatewayTransactionID *string `gorm:"size:255" json:"gateway_transaction_id,omitempty"`
	CheckoutURL          *string `gorm:"size:500" json:"checkout_url,omitempty"`

	ErrorCode     *string `gorm:"size:100" json:"error_code,omitempty"`
	ErrorMessage  *string `gorm:"size:500" json:"error_message,omitempty"`
	FailureReason *string `gorm:"size:255" json:"failure_reason,omitempty"`

	RefundAmount        *float64 `gorm:"type:numeric(10,2)" json:"refund_amount,omitempty"`
	RefundTransactionID *string  `gorm:"size:255" json:"refund_transaction_id,omitempty"`

	// Metadata holds the raw gateway event payload as JSON text.
	Metadata *string `gorm:"type:text" json:"-"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
