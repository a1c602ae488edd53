package repository

import (
	"context"
	"testing"

	"github.com/avinashd07/shop_mitra/apperrors"
	"github.com/avinashd07/shop_mitra/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	))
	return db
}

func newTestPayment(t *testing.T, repo PaymentRepository) *models.Payment {
	t.Helper()

	payment := &models.Payment{
		OrderID:     uuid.New(),
		OrderNumber: "SM-TEST0001",
		Provider:    models.PaymentProviderRazorpay,
		Amount:      1500.00,
	}
	require.NoError(t, repo.Create(context.Background(), payment))
	return payment
}

func TestPaymentCreateDefaultsToPending(t *testing.T) {
	repo := NewPaymentRepository(newTestDB(t))
	payment := newTestPayment(t, repo)

	assert.Equal(t, models.PaymentStatusPending, payment.Status)
	assert.NotEqual(t, uuid.Nil, payment.ID)
}

func TestCreateRejectsSecondPaymentForOrder(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewPaymentRepository(db)
	payment := newTestPayment(t, repo)

	// The unique index on order_id catches racing initiations that both
	// passed the read-then-create duplicate check.
	err := repo.Create(ctx, &models.Payment{
		OrderID:     payment.OrderID,
		OrderNumber: payment.OrderNumber,
		Provider:    models.PaymentProviderCOD,
		Amount:      payment.Amount,
	})
	assert.Equal(t, apperrors.KindDuplicatePayment, apperrors.KindOf(err))

	var count int64
	require.NoError(t, db.Model(&models.Payment{}).Where("order_id = ?", payment.OrderID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestAttachCheckoutIsWriteOnce(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))
	payment := newTestPayment(t, repo)

	session := models.CheckoutSession{
		GatewayOrderID: "order_gw1",
		CheckoutID:     "chk_1",
		CheckoutURL:    "https://checkout.example.com/session/1",
	}
	require.NoError(t, repo.AttachCheckout(ctx, payment.ID, session))

	// Re-stamping the same session is harmless.
	require.NoError(t, repo.AttachCheckout(ctx, payment.ID, session))

	// A different gateway order id is a logic error.
	err := repo.AttachCheckout(ctx, payment.ID, models.CheckoutSession{GatewayOrderID: "order_gw2"})
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	stored, err := repo.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_gw1", *stored.GatewayOrderID)
	assert.Equal(t, "chk_1", *stored.CheckoutID)
	assert.Equal(t, "https://checkout.example.com/session/1", *stored.CheckoutURL)
}

func TestMarkCompletedIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))
	payment := newTestPayment(t, repo)

	first, err := repo.MarkCompleted(ctx, payment.ID, CompletionParams{TransactionID: "pay_9"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, first.Status)
	assert.Equal(t, "pay_9", *first.TransactionID)
	assert.NotNil(t, first.CompletedAt)

	// A duplicate completion is a no-op success returning the same record.
	second, err := repo.MarkCompleted(ctx, payment.ID, CompletionParams{TransactionID: "pay_other"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, second.Status)
	assert.Equal(t, "pay_9", *second.TransactionID)
}

func TestMarkCompletedFromFailed(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))
	payment := newTestPayment(t, repo)

	_, err := repo.MarkFailed(ctx, payment.ID, FailureParams{})
	require.NoError(t, err)

	// A late success event still wins over an earlier failure.
	completed, err := repo.MarkCompleted(ctx, payment.ID, CompletionParams{TransactionID: "pay_late"})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCompleted, completed.Status)
}

func TestMarkCompletedRejectedFromRefunded(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))
	payment := newTestPayment(t, repo)

	_, err := repo.MarkCompleted(ctx, payment.ID, CompletionParams{TransactionID: "pay_1"})
	require.NoError(t, err)
	_, err = repo.InitiateRefund(ctx, payment.ID, 1500.00, nil)
	require.NoError(t, err)

	_, err = repo.MarkCompleted(ctx, payment.ID, CompletionParams{TransactionID: "pay_2"})
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestMarkFailedStoresMetadataAndAllowsRefailing(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))
	payment := newTestPayment(t, repo)

	code := "BAD_CARD"
	message := "card declined"
	reason := "issuer_declined"
	failed, err := repo.MarkFailed(ctx, payment.ID, FailureParams{
		ErrorCode:     &code,
		ErrorMessage:  &message,
		FailureReason: &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, failed.Status)
	assert.Equal(t, "BAD_CARD", *failed.ErrorCode)
	assert.Equal(t, "issuer_declined", *failed.FailureReason)

	// Re-failing an already failed payment is permitted.
	_, err = repo.MarkFailed(ctx, payment.ID, FailureParams{})
	assert.NoError(t, err)
}

func TestMarkFailedRejectedAfterCompletion(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))
	payment := newTestPayment(t, repo)

	_, err := repo.MarkCompleted(ctx, payment.ID, CompletionParams{TransactionID: "pay_1"})
	require.NoError(t, err)

	_, err = repo.MarkFailed(ctx, payment.ID, FailureParams{})
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestResetToPendingOnlyFromFailed(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))
	payment := newTestPayment(t, repo)

	_, err := repo.ResetToPending(ctx, payment.ID)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = repo.MarkFailed(ctx, payment.ID, FailureParams{})
	require.NoError(t, err)

	reset, err := repo.ResetToPending(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, reset.Status)
	assert.Nil(t, reset.ErrorCode)
	assert.Nil(t, reset.FailureReason)
}

func TestInitiateRefundOnlyFromCompleted(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(newTestDB(t))
	payment := newTestPayment(t, repo)

	_, err := repo.InitiateRefund(ctx, payment.ID, 1000.00, nil)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = repo.MarkCompleted(ctx, payment.ID, CompletionParams{TransactionID: "pay_1"})
	require.NoError(t, err)

	refundTxn := "rfnd_1"
	refunded, err := repo.InitiateRefund(ctx, payment.ID, 1000.00, &refundTxn)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusRefunded, refunded.Status)
	assert.Equal(t, 1000.00, *refunded.RefundAmount)
	assert.Equal(t, "rfnd_1", *refunded.RefundTransactionID)
	assert.NotNil(t, refunded.RefundedAt)

	// A second refund is rejected by the status condition.
	_, err = repo.InitiateRefund(ctx, payment.ID, 500.00, nil)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestPaymentLookups(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewPaymentRepository(db)
	payment := newTestPayment(t, repo)

	require.NoError(t, repo.AttachCheckout(ctx, payment.ID, models.CheckoutSession{
		GatewayOrderID: "order_gw1",
		CheckoutID:     "chk_1",
	}))
	_, err := repo.MarkCompleted(ctx, payment.ID, CompletionParams{TransactionID: "pay_9"})
	require.NoError(t, err)

	byOrder, err := repo.GetByOrderID(ctx, payment.OrderID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, byOrder.ID)

	byGateway, err := repo.GetByGatewayOrderID(ctx, "order_gw1")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, byGateway.ID)

	byCheckout, err := repo.GetByCheckoutID(ctx, "chk_1")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, byCheckout.ID)

	byTxn, err := repo.GetByTransactionID(ctx, "pay_9")
	require.NoError(t, err)
	assert.Equal(t, payment.ID, byTxn.ID)

	_, err = repo.GetByGatewayOrderID(ctx, "order_missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
