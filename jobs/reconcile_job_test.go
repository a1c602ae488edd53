package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/avinashd07/shop_mitra/models"
	"github.com/avinashd07/shop_mitra/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type reconcileFixture struct {
	db       *gorm.DB
	job      *ReconcileJob
	payments repository.PaymentRepository
	orders   repository.OrderRepository
}

func newReconcileFixture(t *testing.T) *reconcileFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.Payment{}))

	payments := repository.NewPaymentRepository(db)
	orders := repository.NewOrderRepository(db)
	return &reconcileFixture{
		db:       db,
		job:      NewReconcileJob(db, payments, orders),
		payments: payments,
		orders:   orders,
	}
}

func (f *reconcileFixture) seedPendingPayment(t *testing.T, orderStatus string, age time.Duration) (*models.Order, *models.Payment) {
	t.Helper()
	ctx := context.Background()

	userID := uuid.New()
	order := &models.Order{
		OrderNumber:   "SM-" + uuid.New().String()[:8],
		UserID:        &userID,
		TotalAmount:   1500.00,
		Status:        orderStatus,
		PaymentStatus: models.OrderPaymentStatusPending,
	}
	require.NoError(t, f.orders.Create(ctx, order))

	payment := &models.Payment{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Provider:    models.PaymentProviderRazorpay,
		Amount:      order.TotalAmount,
	}
	require.NoError(t, f.payments.Create(ctx, payment))

	// Back-date the record past the reconciliation cutoff.
	require.NoError(t, f.db.Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("updated_at", time.Now().Add(-age)).Error)
	return order, payment
}

func TestReconcileFailsStalePayments(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture(t)
	order, payment := f.seedPendingPayment(t, models.OrderStatusPaymentPending, 25*time.Hour)

	f.job.Run()

	stored, err := f.payments.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)
	assert.Equal(t, "payment_timeout", *stored.FailureReason)

	reloaded, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPaymentFailed, reloaded.Status)
	assert.Equal(t, models.OrderPaymentStatusFailed, reloaded.PaymentStatus)
}

func TestReconcileSkipsFreshPayments(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture(t)
	_, payment := f.seedPendingPayment(t, models.OrderStatusPaymentPending, time.Hour)

	f.job.Run()

	stored, err := f.payments.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
}

func TestReconcileLeavesCancelledOrdersAlone(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture(t)
	order, payment := f.seedPendingPayment(t, models.OrderStatusCancelled, 25*time.Hour)

	f.job.Run()

	// The payment record is closed out but the order keeps its terminal status.
	stored, err := f.payments.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, stored.Status)

	reloaded, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, reloaded.Status)
}

func TestReconcileIgnoresOfflinePayments(t *testing.T) {
	ctx := context.Background()
	f := newReconcileFixture(t)

	userID := uuid.New()
	order := &models.Order{
		OrderNumber:   "SM-" + uuid.New().String()[:8],
		UserID:        &userID,
		TotalAmount:   499.00,
		Status:        models.OrderStatusConfirmed,
		PaymentStatus: models.OrderPaymentStatusPending,
	}
	require.NoError(t, f.orders.Create(ctx, order))

	payment := &models.Payment{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Provider:    models.PaymentProviderCOD,
		Amount:      order.TotalAmount,
	}
	require.NoError(t, f.payments.Create(ctx, payment))
	require.NoError(t, f.db.Model(&models.Payment{}).
		Where("id = ?", payment.ID).
		Update("updated_at", time.Now().Add(-48*time.Hour)).Error)

	f.job.Run()

	stored, err := f.payments.GetByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPending, stored.Status)
}
