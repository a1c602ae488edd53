package jobs

import (
	"context"
	"log"
	"time"

	"github.com/avinashd07/shop_mitra/models"
	"github.com/avinashd07/shop_mitra/repository"
	"gorm.io/gorm"
)

// Payments stuck pending longer than this are considered abandoned. Webhooks
// can no longer be expected for them; a retry creates a fresh gateway order.
const stalePaymentCutoff = 24 * time.Hour

// ReconcileJob sweeps gateway payments that never received a completion or
// failure event and fails them through the same ledger operations the webhook
// path uses, so the cross-ledger invariants keep holding.
type ReconcileJob struct {
	db       *gorm.DB
	payments repository.PaymentRepository
	orders   repository.OrderRepository
}

func NewReconcileJob(db *gorm.DB, payments repository.PaymentRepository, orders repository.OrderRepository) *ReconcileJob {
	return &ReconcileJob{db: db, payments: payments, orders: orders}
}

func (j *ReconcileJob) Run() {
	log.Println("Running job: ReconcileStalePayments...")
	ctx := context.Background()

	cutoff := time.Now().Add(-stalePaymentCutoff)

	var stale []models.Payment
	err := j.db.
		Where("status = ? AND provider = ? AND updated_at < ?",
			models.PaymentStatusPending, models.PaymentProviderRazorpay, cutoff).
		Limit(100).
		Find(&stale).Error
	if err != nil {
		log.Printf("Error finding stale pending payments: %v", err)
		return
	}

	if len(stale) == 0 {
		return
	}

	reason := "payment_timeout"
	message := "No gateway confirmation received within the reconciliation window"
	for _, payment := range stale {
		if _, err := j.payments.MarkFailed(ctx, payment.ID, repository.FailureParams{
			ErrorMessage:  &message,
			FailureReason: &reason,
		}); err != nil {
			log.Printf("Failed to reconcile payment %s: %v", payment.ID, err)
			continue
		}

		order, err := j.orders.GetByID(ctx, payment.OrderID)
		if err != nil {
			log.Printf("Failed to load order %s during reconciliation: %v", payment.OrderID, err)
			continue
		}
		// A cancelled order keeps its terminal status; only the payment record
		// is closed out.
		if order.Status == models.OrderStatusCancelled {
			continue
		}

		if err := j.orders.UpdateStatus(ctx, payment.OrderID, models.OrderStatusPaymentFailed, models.OrderPaymentStatusFailed); err != nil {
			log.Printf("Failed to fail order %s during reconciliation: %v", payment.OrderID, err)
			continue
		}
		log.Printf("Reconciled stale payment %s for order %s as failed", payment.ID, payment.OrderNumber)
	}
}
