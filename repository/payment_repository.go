package repository

import (
	"context"
	"errors"
	"time"

	"github.com/avinashd07/shop_mitra/apperrors"
	"github.com/avinashd07/shop_mitra/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CompletionParams carries everything a completing write may stamp onto a
// payment in one update.
type CompletionParams struct {
	TransactionID        string
	GatewayTransactionID *string
	Method               *string
	Metadata             *string
}

// FailureParams carries the structured failure metadata for a failed payment.
type FailureParams struct {
	ErrorCode     *string
	ErrorMessage  *string
	FailureReason *string
	Metadata      *string
}

// PaymentRepository owns payment records. Every state-changing operation is
// atomic per payment id: transitions are issued as single conditional updates
// keyed on the current status, so two racing callers cannot both win.
type PaymentRepository interface {
	// Create inserts the payment record. The unique index on order_id makes
	// this the backstop for the one-payment-per-order invariant: a racing
	// insert for the same order comes back as a DuplicatePayment error.
	Create(ctx context.Context, payment *models.Payment) error

	// AttachCheckout stamps the remote checkout session onto the payment.
	// Write-once: stamping a second, different gateway order id is rejected.
	AttachCheckout(ctx context.Context, paymentID uuid.UUID, session models.CheckoutSession) error

	// MarkCompleted moves a payment to completed. If the payment is already
	// completed the call is a no-op and returns the existing record — this is
	// the single idempotency gate for the webhook/callback race.
	MarkCompleted(ctx context.Context, paymentID uuid.UUID, params CompletionParams) (*models.Payment, error)

	MarkFailed(ctx context.Context, paymentID uuid.UUID, params FailureParams) (*models.Payment, error)

	// ResetToPending revives a failed payment for retry. Only legal from failed.
	ResetToPending(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)

	// InitiateRefund moves a completed payment to refunded. Only legal from
	// completed, so a second refund call is rejected by the status condition.
	InitiateRefund(ctx context.Context, paymentID uuid.UUID, refundAmount float64, refundTransactionID *string) (*models.Payment, error)

	GetByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error)
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error)
	GetByCheckoutID(ctx context.Context, checkoutID string) (*models.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
}

type gormPaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &gormPaymentRepository{db: db}
}

func (r *gormPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.Status == "" {
		payment.Status = models.PaymentStatusPending
	}
	if err := r.db.WithContext(ctx).Create(payment).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.DuplicatePayment("a payment already exists for this order")
		}
		return err
	}
	return nil
}

func (r *gormPaymentRepository) AttachCheckout(ctx context.Context, paymentID uuid.UUID, session models.CheckoutSession) error {
	updates := map[string]interface{}{
		"gateway_order_id": session.GatewayOrderID,
	}
	if session.CheckoutID != "" {
		updates["checkout_id"] = session.CheckoutID
	}
	if session.CheckoutURL != "" {
		updates["checkout_url"] = session.CheckoutURL
	}

	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND gateway_order_id IS NULL", paymentID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	payment, err := r.GetByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.GatewayOrderID != nil && *payment.GatewayOrderID == session.GatewayOrderID {
		return nil
	}
	return apperrors.InvalidState("gateway order id is already set to a different value")
}

func (r *gormPaymentRepository) MarkCompleted(ctx context.Context, paymentID uuid.UUID, params CompletionParams) (*models.Payment, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":         models.PaymentStatusCompleted,
		"transaction_id": params.TransactionID,
		"completed_at":   now,
	}
	if params.GatewayTransactionID != nil {
		updates["gateway_transaction_id"] = *params.GatewayTransactionID
	}
	if params.Method != nil {
		updates["method"] = *params.Method
	}
	if params.Metadata != nil {
		updates["metadata"] = *params.Metadata
	}

	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status IN ?", paymentID, []string{models.PaymentStatusPending, models.PaymentStatusFailed}).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}

	payment, err := r.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected > 0 {
		return payment, nil
	}
	// Lost the race or a repeated delivery: already completed is a no-op
	// success, refunded can never be re-completed.
	if payment.Status == models.PaymentStatusCompleted {
		return payment, nil
	}
	return nil, apperrors.InvalidState("payment cannot be completed from status " + payment.Status)
}

func (r *gormPaymentRepository) MarkFailed(ctx context.Context, paymentID uuid.UUID, params FailureParams) (*models.Payment, error) {
	updates := map[string]interface{}{
		"status": models.PaymentStatusFailed,
	}
	if params.ErrorCode != nil {
		updates["error_code"] = *params.ErrorCode
	}
	if params.ErrorMessage != nil {
		updates["error_message"] = *params.ErrorMessage
	}
	if params.FailureReason != nil {
		updates["failure_reason"] = *params.FailureReason
	}
	if params.Metadata != nil {
		updates["metadata"] = *params.Metadata
	}

	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status IN ?", paymentID, []string{models.PaymentStatusPending, models.PaymentStatusFailed}).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}

	payment, err := r.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected > 0 {
		return payment, nil
	}
	return nil, apperrors.InvalidState("payment cannot be failed from status " + payment.Status)
}

func (r *gormPaymentRepository) ResetToPending(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, models.PaymentStatusFailed).
		Updates(map[string]interface{}{
			"status":         models.PaymentStatusPending,
			"error_code":     nil,
			"error_message":  nil,
			"failure_reason": nil,
		})
	if result.Error != nil {
		return nil, result.Error
	}

	payment, err := r.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.InvalidState("only a failed payment can be reset to pending, current status is " + payment.Status)
	}
	return payment, nil
}

func (r *gormPaymentRepository) InitiateRefund(ctx context.Context, paymentID uuid.UUID, refundAmount float64, refundTransactionID *string) (*models.Payment, error) {
	now := time.Now()
	updates := map[string]interface{}{
		"status":        models.PaymentStatusRefunded,
		"refund_amount": refundAmount,
		"refunded_at":   now,
	}
	if refundTransactionID != nil {
		updates["refund_transaction_id"] = *refundTransactionID
	}

	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ? AND status = ?", paymentID, models.PaymentStatusCompleted).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}

	payment, err := r.GetByID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.InvalidState("only a completed payment can be refunded, current status is " + payment.Status)
	}
	return payment, nil
}

func (r *gormPaymentRepository) GetByID(ctx context.Context, paymentID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", paymentID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "order_id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "gateway_order_id = ?", gatewayOrderID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepository) GetByCheckoutID(ctx context.Context, checkoutID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "checkout_id = ?", checkoutID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *gormPaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "transaction_id = ?", transactionID).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}
