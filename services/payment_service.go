package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/avinashd07/shop_mitra/apperrors"
	"github.com/avinashd07/shop_mitra/models"
	"github.com/avinashd07/shop_mitra/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const gatewayCurrency = "INR"

// PaymentGateway is the external checkout capability. Amounts cross this
// boundary in minor units only.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, receiptID string, amountMinorUnits int64, currency string, notes map[string]string) (*models.CheckoutSession, error)
	VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature string) bool
}

// OrderEventNotifier receives order lifecycle events (status pushes, emails).
// Implementations must not block.
type OrderEventNotifier interface {
	OrderEvent(order *models.Order, event string)
}

// Order lifecycle events fed to the notifier.
const (
	OrderEventPaymentPending = "payment_pending"
	OrderEventConfirmed      = "confirmed"
	OrderEventPaymentFailed  = "payment_failed"
	OrderEventRefunded       = "refunded"
)

// PaymentService is the order–payment state machine. All order and payment
// status transitions go through here; records are only ever mutated via the
// repositories, whose conditional writes are the idempotency gate for the
// webhook / client-callback race.
type PaymentService struct {
	payments repository.PaymentRepository
	orders   repository.OrderRepository
	gateway  PaymentGateway
	notifier OrderEventNotifier
}

func NewPaymentService(payments repository.PaymentRepository, orders repository.OrderRepository, gateway PaymentGateway, notifier OrderEventNotifier) *PaymentService {
	return &PaymentService{
		payments: payments,
		orders:   orders,
		gateway:  gateway,
		notifier: notifier,
	}
}

// CreatePaymentInput describes a new payment attempt for an order.
type CreatePaymentInput struct {
	Order          *models.Order
	Provider       string
	Method         *string
	GatewayOrderID *string
	CheckoutID     *string
	CheckoutURL    *string

	// SelfAttested marks offline methods (cash on delivery) completed
	// immediately, with a transaction id derived from the payment id.
	SelfAttested bool
}

// CreatePayment is the shared payment constructor: it creates the pending
// record, optionally completes it for self-attesting methods, and links the
// payment id onto the order.
func (s *PaymentService) CreatePayment(ctx context.Context, in CreatePaymentInput) (*models.Payment, error) {
	payment := &models.Payment{
		OrderID:        in.Order.ID,
		OrderNumber:    in.Order.OrderNumber,
		UserID:         in.Order.UserID,
		GuestSessionID: in.Order.GuestSessionID,
		Provider:       in.Provider,
		Amount:         in.Order.TotalAmount,
		Method:         in.Method,
		Status:         models.PaymentStatusPending,
		GatewayOrderID: in.GatewayOrderID,
		CheckoutID:     in.CheckoutID,
		CheckoutURL:    in.CheckoutURL,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		return nil, err
	}

	if in.SelfAttested {
		transactionID := fmt.Sprintf("cod_%s", payment.ID)
		completed, err := s.payments.MarkCompleted(ctx, payment.ID, repository.CompletionParams{
			TransactionID: transactionID,
			Method:        in.Method,
		})
		if err != nil {
			return nil, err
		}
		payment = completed
	}

	if err := s.orders.LinkPaymentID(ctx, in.Order.ID, payment.ID); err != nil {
		return nil, err
	}
	return payment, nil
}

// ProcessCODPayment collects an order as cash on delivery: no gateway call,
// the payment is completed synthetically and the order confirmed.
func (s *PaymentService) ProcessCODPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if _, err := s.payments.GetByOrderID(ctx, orderID); err == nil {
		return nil, apperrors.DuplicatePayment("a payment already exists for this order")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	method := models.PaymentProviderCOD
	payment, err := s.CreatePayment(ctx, CreatePaymentInput{
		Order:        order,
		Provider:     models.PaymentProviderCOD,
		Method:       &method,
		SelfAttested: true,
	})
	if err != nil {
		return nil, err
	}

	if err := s.confirmOrder(ctx, order.ID); err != nil {
		return nil, err
	}
	log.Printf("COD payment %s completed for order %s", payment.ID, order.OrderNumber)
	return payment, nil
}

// GatewayCheckout is what the client needs to open (or re-open) checkout.
type GatewayCheckout struct {
	Payment          *models.Payment `json:"payment"`
	GatewayOrderID   string          `json:"gateway_order_id"`
	AmountMinorUnits int64           `json:"amount"`
	Currency         string          `json:"currency"`
}

// InitiateGatewayPayment creates (or returns) the remote checkout order for an
// order. Calling it again before completion returns the same gateway order id
// without touching the gateway, so a client retry can never double-reserve
// funds remotely.
func (s *PaymentService) InitiateGatewayPayment(ctx context.Context, orderID uuid.UUID) (*GatewayCheckout, error) {
	order, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	existing, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if existing != nil {
		if existing.Status == models.PaymentStatusCompleted || existing.Status == models.PaymentStatusRefunded {
			return nil, apperrors.DuplicatePayment("order already has a settled payment")
		}
		if existing.GatewayOrderID != nil {
			return &GatewayCheckout{
				Payment:          existing,
				GatewayOrderID:   *existing.GatewayOrderID,
				AmountMinorUnits: toMinorUnits(existing.Amount),
				Currency:         gatewayCurrency,
			}, nil
		}
	}

	// Remote call first: if it fails, no local record is created or mutated
	// and the order stays in its prior state.
	session, err := s.gateway.CreateOrder(ctx, order.OrderNumber, toMinorUnits(order.TotalAmount), gatewayCurrency, map[string]string{
		"order_number": order.OrderNumber,
	})
	if err != nil {
		return nil, apperrors.GatewayFailure("failed to create gateway order", err)
	}

	var payment *models.Payment
	if existing != nil {
		if err := s.payments.AttachCheckout(ctx, existing.ID, *session); err != nil {
			return nil, err
		}
		payment, err = s.payments.GetByID(ctx, existing.ID)
		if err != nil {
			return nil, err
		}
	} else {
		method := models.PaymentProviderRazorpay
		in := CreatePaymentInput{
			Order:          order,
			Provider:       models.PaymentProviderRazorpay,
			Method:         &method,
			GatewayOrderID: &session.GatewayOrderID,
		}
		if session.CheckoutID != "" {
			in.CheckoutID = &session.CheckoutID
		}
		if session.CheckoutURL != "" {
			in.CheckoutURL = &session.CheckoutURL
		}
		payment, err = s.CreatePayment(ctx, in)
		if err != nil {
			return nil, err
		}
	}

	if err := s.orders.UpdateStatus(ctx, order.ID, models.OrderStatusPaymentPending, models.OrderPaymentStatusPending); err != nil {
		return nil, err
	}
	s.notify(ctx, order.ID, OrderEventPaymentPending)

	return &GatewayCheckout{
		Payment:          payment,
		GatewayOrderID:   session.GatewayOrderID,
		AmountMinorUnits: toMinorUnits(order.TotalAmount),
		Currency:         gatewayCurrency,
	}, nil
}

// VerifyGatewayPayment completes a payment from the client-side checkout
// callback. The signature is checked before anything is touched; an
// already-completed payment is returned unchanged so a double callback (or a
// webhook racing it) cannot re-confirm the order.
func (s *PaymentService) VerifyGatewayPayment(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (*models.Payment, error) {
	if !s.gateway.VerifyPaymentSignature(gatewayOrderID, gatewayPaymentID, signature) {
		return nil, apperrors.InvalidSignature("payment signature verification failed")
	}

	payment, err := s.payments.GetByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("no payment found for gateway order " + gatewayOrderID)
		}
		return nil, err
	}

	if payment.Status == models.PaymentStatusCompleted {
		// A repeated callback must carry the transaction the payment was
		// completed with; anything else is a replay against the wrong record.
		if payment.TransactionID != nil && *payment.TransactionID != gatewayPaymentID {
			return nil, apperrors.InvalidState("payment was completed with a different transaction id")
		}
		return payment, nil
	}

	metadata := fmt.Sprintf(`{"source":"signature_callback","gateway_order_id":%q,"gateway_payment_id":%q}`, gatewayOrderID, gatewayPaymentID)
	completed, err := s.payments.MarkCompleted(ctx, payment.ID, repository.CompletionParams{
		TransactionID:        gatewayPaymentID,
		GatewayTransactionID: &gatewayOrderID,
		Metadata:             &metadata,
	})
	if err != nil {
		return nil, err
	}

	if err := s.confirmOrder(ctx, payment.OrderID); err != nil {
		return nil, err
	}
	return completed, nil
}

// PaymentSuccessEvent is the normalized success payload delivered by the
// webhook transport. Exactly the fields the transport validated; anything
// malformed never reaches this service.
type PaymentSuccessEvent struct {
	CheckoutID           *string
	TransactionID        string
	GatewayTransactionID *string
	OrderNumber          *string
	Method               *string
	Amount               *float64
	RawPayload           string
}

// PaymentFailureEvent is the normalized failure payload.
type PaymentFailureEvent struct {
	CheckoutID    *string
	TransactionID *string
	OrderNumber   *string
	ErrorCode     *string
	ErrorMessage  *string
	FailureReason *string
	RawPayload    string
}

// HandlePaymentSuccess applies a success webhook. Delivery is at-least-once
// and may race the client callback; the ledger's conditional completion write
// keeps a duplicate from confirming the order twice.
func (s *PaymentService) HandlePaymentSuccess(ctx context.Context, event PaymentSuccessEvent) (*models.Payment, error) {
	payment, err := s.resolvePayment(ctx, event.CheckoutID, event.OrderNumber, &event.TransactionID)
	if err != nil {
		return nil, err
	}

	if payment.Status == models.PaymentStatusCompleted {
		return payment, nil
	}

	completed, err := s.payments.MarkCompleted(ctx, payment.ID, repository.CompletionParams{
		TransactionID:        event.TransactionID,
		GatewayTransactionID: event.GatewayTransactionID,
		Method:               event.Method,
		Metadata:             &event.RawPayload,
	})
	if err != nil {
		return nil, err
	}

	if err := s.confirmOrder(ctx, payment.OrderID); err != nil {
		return nil, err
	}
	return completed, nil
}

// HandlePaymentFailure applies a failure webhook. Re-failing an already
// failed payment is harmless; a settled payment can no longer fail.
func (s *PaymentService) HandlePaymentFailure(ctx context.Context, event PaymentFailureEvent) (*models.Payment, error) {
	payment, err := s.resolvePayment(ctx, event.CheckoutID, event.OrderNumber, event.TransactionID)
	if err != nil {
		return nil, err
	}

	failed, err := s.payments.MarkFailed(ctx, payment.ID, repository.FailureParams{
		ErrorCode:     event.ErrorCode,
		ErrorMessage:  event.ErrorMessage,
		FailureReason: event.FailureReason,
		Metadata:      &event.RawPayload,
	})
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, payment.OrderID, models.OrderStatusPaymentFailed, models.OrderPaymentStatusFailed); err != nil {
		return nil, err
	}
	s.notify(ctx, payment.OrderID, OrderEventPaymentFailed)
	return failed, nil
}

// InitiateRefund refunds a completed payment in full or in part. A second
// refund is rejected by the ledger's status condition.
func (s *PaymentService) InitiateRefund(ctx context.Context, paymentID uuid.UUID, refundAmount float64, refundTransactionID *string) (*models.Payment, error) {
	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment not found")
		}
		return nil, err
	}

	if payment.Status != models.PaymentStatusCompleted {
		return nil, apperrors.InvalidState("only a completed payment can be refunded")
	}
	if refundAmount <= 0 || refundAmount > payment.Amount {
		return nil, apperrors.InvalidAmount(fmt.Sprintf("refund amount %.2f exceeds payment amount %.2f", refundAmount, payment.Amount))
	}

	refunded, err := s.payments.InitiateRefund(ctx, paymentID, refundAmount, refundTransactionID)
	if err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, payment.OrderID, models.OrderStatusRefunded, models.OrderPaymentStatusRefunded); err != nil {
		return nil, err
	}
	s.notify(ctx, payment.OrderID, OrderEventRefunded)
	return refunded, nil
}

// RetryPayment revives a non-completed payment and hands back the stored
// checkout URL if one exists; otherwise the caller has to start a fresh
// gateway payment.
func (s *PaymentService) RetryPayment(ctx context.Context, orderID uuid.UUID) (*models.Payment, string, error) {
	payment, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", apperrors.NotFound("no payment found for this order")
		}
		return nil, "", err
	}

	switch payment.Status {
	case models.PaymentStatusCompleted, models.PaymentStatusRefunded:
		return nil, "", apperrors.InvalidState("payment is already completed")
	case models.PaymentStatusFailed:
		payment, err = s.payments.ResetToPending(ctx, payment.ID)
		if err != nil {
			return nil, "", err
		}
		if err := s.orders.UpdateStatus(ctx, orderID, models.OrderStatusPaymentPending, models.OrderPaymentStatusPending); err != nil {
			return nil, "", err
		}
		s.notify(ctx, orderID, OrderEventPaymentPending)
	}

	if payment.CheckoutURL == nil || *payment.CheckoutURL == "" {
		return nil, "", apperrors.NoCheckoutAvailable("no stored checkout to resume, initiate a new gateway payment")
	}
	return payment, *payment.CheckoutURL, nil
}

// GetPaymentForOrder returns the order's payment record, if any.
func (s *PaymentService) GetPaymentForOrder(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	payment, err := s.payments.GetByOrderID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("no payment found for this order")
		}
		return nil, err
	}
	return payment, nil
}

// resolvePayment finds the payment a webhook event refers to, trying the
// identifying fields the event carries in priority order: checkout id, then
// order number, then transaction id.
func (s *PaymentService) resolvePayment(ctx context.Context, checkoutID, orderNumber, transactionID *string) (*models.Payment, error) {
	type strategy struct {
		field  *string
		lookup func(ctx context.Context, value string) (*models.Payment, error)
	}

	strategies := []strategy{
		{checkoutID, s.payments.GetByCheckoutID},
		{orderNumber, s.lookupByOrderNumber},
		{transactionID, s.payments.GetByTransactionID},
	}

	for _, st := range strategies {
		if st.field == nil || *st.field == "" {
			continue
		}
		payment, err := st.lookup(ctx, *st.field)
		if err == nil {
			return payment, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	return nil, apperrors.NotFound("no payment matches the event's identifying fields")
}

func (s *PaymentService) lookupByOrderNumber(ctx context.Context, orderNumber string) (*models.Payment, error) {
	order, err := s.orders.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return s.payments.GetByOrderID(ctx, order.ID)
}

func (s *PaymentService) getOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}
	return order, nil
}

// confirmOrder finalizes an order after a durable payment completion. The
// compound write is idempotent, so the loser of the verify/webhook race can
// safely re-apply it.
func (s *PaymentService) confirmOrder(ctx context.Context, orderID uuid.UUID) error {
	if err := s.orders.UpdateStatus(ctx, orderID, models.OrderStatusConfirmed, models.OrderPaymentStatusCompleted); err != nil {
		return err
	}
	s.notify(ctx, orderID, OrderEventConfirmed)
	return nil
}

func (s *PaymentService) notify(ctx context.Context, orderID uuid.UUID, event string) {
	if s.notifier == nil {
		return
	}
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		log.Printf("Failed to load order %s for %s notification: %v", orderID, event, err)
		return
	}
	s.notifier.OrderEvent(order, event)
}

func toMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
