package repository

import (
	"context"
	"testing"

	"github.com/avinashd07/shop_mitra/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestOrder(t *testing.T, repo OrderRepository, owner *uuid.UUID, guest *string) *models.Order {
	t.Helper()

	order := &models.Order{
		OrderNumber:    "SM-" + uuid.New().String()[:8],
		UserID:         owner,
		GuestSessionID: guest,
		TotalAmount:    1500.00,
		Status:         models.OrderStatusCreated,
		PaymentStatus:  models.OrderPaymentStatusPending,
		Items: []models.OrderItem{
			{ProductID: uuid.New(), Name: "Steel Water Bottle", Quantity: 2, UnitPrice: 750.00},
		},
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestOrderGetByIDPreloadsItems(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(newTestDB(t))
	userID := uuid.New()
	order := newTestOrder(t, repo, &userID, nil)

	fetched, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, fetched.Items, 1)
	assert.Equal(t, 2, fetched.Items[0].Quantity)

	byNumber, err := repo.GetByOrderNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, byNumber.ID)
}

func TestOrderUpdateStatusIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(newTestDB(t))
	userID := uuid.New()
	order := newTestOrder(t, repo, &userID, nil)

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, models.OrderStatusConfirmed, models.OrderPaymentStatusCompleted))
	// Reapplying the same transition is harmless.
	require.NoError(t, repo.UpdateStatus(ctx, order.ID, models.OrderStatusConfirmed, models.OrderPaymentStatusCompleted))

	fetched, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, fetched.Status)
	assert.Equal(t, models.OrderPaymentStatusCompleted, fetched.PaymentStatus)

	err = repo.UpdateStatus(ctx, uuid.New(), models.OrderStatusConfirmed, models.OrderPaymentStatusCompleted)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderLinkPaymentID(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(newTestDB(t))
	userID := uuid.New()
	order := newTestOrder(t, repo, &userID, nil)

	paymentID := uuid.New()
	require.NoError(t, repo.LinkPaymentID(ctx, order.ID, paymentID))

	fetched, err := repo.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched.PaymentID)
	assert.Equal(t, paymentID, *fetched.PaymentID)

	err = repo.LinkPaymentID(ctx, uuid.New(), paymentID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderListByOwner(t *testing.T) {
	ctx := context.Background()
	repo := NewOrderRepository(newTestDB(t))

	userID := uuid.New()
	newTestOrder(t, repo, &userID, nil)
	newTestOrder(t, repo, &userID, nil)

	guest := "guest-session-1"
	newTestOrder(t, repo, nil, &guest)

	byUser, err := repo.ListByUser(ctx, userID, 50)
	require.NoError(t, err)
	assert.Len(t, byUser, 2)

	byGuest, err := repo.ListByGuestSession(ctx, guest, 50)
	require.NoError(t, err)
	assert.Len(t, byGuest, 1)

	none, err := repo.ListByGuestSession(ctx, "guest-session-other", 50)
	require.NoError(t, err)
	assert.Empty(t, none)
}
