package services

import (
	"context"
	"testing"

	"github.com/avinashd07/shop_mitra/apperrors"
	"github.com/avinashd07/shop_mitra/models"
	"github.com/avinashd07/shop_mitra/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderFixture struct {
	db      *gorm.DB
	service *OrderService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	db := newTestDB(t)
	return &orderFixture{
		db:      db,
		service: NewOrderService(db, repository.NewOrderRepository(db)),
	}
}

func (f *orderFixture) createProduct(t *testing.T, name string, price float64, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:     name,
		Price:    price,
		Stock:    stock,
		IsActive: true,
	}
	require.NoError(t, f.db.Create(product).Error)
	return product
}

func (f *orderFixture) stockOf(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, f.db.First(&product, "id = ?", productID).Error)
	return product.Stock
}

func TestCreateOrderReservesStock(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	bottle := f.createProduct(t, "Steel Water Bottle", 750.00, 10)
	mug := f.createProduct(t, "Ceramic Mug", 250.00, 5)

	userID := uuid.New()
	order, err := f.service.CreateOrder(ctx, CreateOrderInput{
		UserID: &userID,
		Items: []OrderItemInput{
			{ProductID: bottle.ID, Quantity: 2},
			{ProductID: mug.ID, Quantity: 1},
		},
		ShippingName:    "Asha Nair",
		ShippingPhone:   "9876543210",
		ShippingAddress: "12 MG Road",
		ShippingCity:    "Bengaluru",
		ShippingState:   "Karnataka",
		ShippingPincode: "560001",
	})
	require.NoError(t, err)

	assert.Equal(t, 1750.00, order.TotalAmount)
	assert.Equal(t, models.OrderStatusCreated, order.Status)
	assert.Len(t, order.Items, 2)
	assert.Contains(t, order.OrderNumber, "SM-")

	assert.Equal(t, 8, f.stockOf(t, bottle.ID))
	assert.Equal(t, 4, f.stockOf(t, mug.ID))
}

func TestCreateOrderInsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	bottle := f.createProduct(t, "Steel Water Bottle", 750.00, 10)
	mug := f.createProduct(t, "Ceramic Mug", 250.00, 1)

	userID := uuid.New()
	_, err := f.service.CreateOrder(ctx, CreateOrderInput{
		UserID: &userID,
		Items: []OrderItemInput{
			{ProductID: bottle.ID, Quantity: 2},
			{ProductID: mug.ID, Quantity: 3},
		},
	})
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	// The bottle decrement from earlier in the transaction was rolled back.
	assert.Equal(t, 10, f.stockOf(t, bottle.ID))
	assert.Equal(t, 1, f.stockOf(t, mug.ID))
}

func TestCreateOrderOwnerIsExclusive(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	userID := uuid.New()
	guest := "guest-1"

	_, err := f.service.CreateOrder(ctx, CreateOrderInput{
		UserID:         &userID,
		GuestSessionID: &guest,
		Items:          []OrderItemInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = f.service.CreateOrder(ctx, CreateOrderInput{
		Items: []OrderItemInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestCreateOrderValidation(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	bottle := f.createProduct(t, "Steel Water Bottle", 750.00, 10)
	userID := uuid.New()

	// An empty item list is a state problem, not an amount bound.
	_, err := f.service.CreateOrder(ctx, CreateOrderInput{UserID: &userID})
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = f.service.CreateOrder(ctx, CreateOrderInput{
		UserID: &userID,
		Items:  []OrderItemInput{{ProductID: bottle.ID, Quantity: 0}},
	})
	assert.Equal(t, apperrors.KindInvalidAmount, apperrors.KindOf(err))

	_, err = f.service.CreateOrder(ctx, CreateOrderInput{
		UserID: &userID,
		Items:  []OrderItemInput{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestCancelOrderRestoresStock(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	bottle := f.createProduct(t, "Steel Water Bottle", 750.00, 10)

	userID := uuid.New()
	order, err := f.service.CreateOrder(ctx, CreateOrderInput{
		UserID: &userID,
		Items:  []OrderItemInput{{ProductID: bottle.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, 6, f.stockOf(t, bottle.ID))

	cancelled, err := f.service.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 10, f.stockOf(t, bottle.ID))

	// Cancelling again is a no-op, stock is not restored twice.
	again, err := f.service.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCancelled, again.Status)
	assert.Equal(t, 10, f.stockOf(t, bottle.ID))
}

func TestCancelOrderRejectedWhenPaid(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	bottle := f.createProduct(t, "Steel Water Bottle", 750.00, 10)

	userID := uuid.New()
	order, err := f.service.CreateOrder(ctx, CreateOrderInput{
		UserID: &userID,
		Items:  []OrderItemInput{{ProductID: bottle.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.service.UpdateOrderStatus(ctx, order.ID, models.OrderStatusConfirmed, models.OrderPaymentStatusCompleted)
	require.NoError(t, err)

	_, err = f.service.CancelOrder(ctx, order.ID)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
}

func TestUpdateOrderStatusValidatesDomains(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)

	_, err := f.service.UpdateOrderStatus(ctx, uuid.New(), "shipped", models.OrderPaymentStatusCompleted)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = f.service.UpdateOrderStatus(ctx, uuid.New(), models.OrderStatusConfirmed, "settled")
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = f.service.UpdateOrderStatus(ctx, uuid.New(), models.OrderStatusConfirmed, models.OrderPaymentStatusCompleted)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestGetOrderByNumber(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t)
	bottle := f.createProduct(t, "Steel Water Bottle", 750.00, 10)

	guest := "guest-session-9"
	order, err := f.service.CreateOrder(ctx, CreateOrderInput{
		GuestSessionID: &guest,
		Items:          []OrderItemInput{{ProductID: bottle.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	fetched, err := f.service.GetOrderByNumber(ctx, order.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, order.ID, fetched.ID)

	_, err = f.service.GetOrderByNumber(ctx, "SM-MISSING1")
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}
