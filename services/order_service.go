package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/avinashd07/shop_mitra/apperrors"
	"github.com/avinashd07/shop_mitra/models"
	"github.com/avinashd07/shop_mitra/repository"
	"github.com/avinashd07/shop_mitra/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var validOrderStatuses = map[string]bool{
	models.OrderStatusCreated:        true,
	models.OrderStatusPaymentPending: true,
	models.OrderStatusConfirmed:      true,
	models.OrderStatusPaymentFailed:  true,
	models.OrderStatusCancelled:      true,
	models.OrderStatusRefunded:       true,
}

var validOrderPaymentStatuses = map[string]bool{
	models.OrderPaymentStatusPending:   true,
	models.OrderPaymentStatusCompleted: true,
	models.OrderPaymentStatusFailed:    true,
	models.OrderPaymentStatusRefunded:  true,
}

// OrderService handles the order lifecycle outside of payment transitions:
// creation with stock reservation, reads, cancellation and admin overrides.
type OrderService struct {
	db     *gorm.DB
	orders repository.OrderRepository
}

func NewOrderService(db *gorm.DB, orders repository.OrderRepository) *OrderService {
	return &OrderService{db: db, orders: orders}
}

type OrderItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

type CreateOrderInput struct {
	UserID         *uuid.UUID
	GuestSessionID *string
	Items          []OrderItemInput

	ShippingName    string
	ShippingPhone   string
	ShippingAddress string
	ShippingCity    string
	ShippingState   string
	ShippingPincode string
	Notes           *string
}

// CreateOrder reserves stock for every line item and creates the order in a
// single transaction; any unavailable product rolls the whole thing back.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	if (in.UserID == nil) == (in.GuestSessionID == nil) {
		return nil, apperrors.InvalidState("an order must belong to either a user or a guest session")
	}
	if len(in.Items) == 0 {
		return nil, apperrors.InvalidState("an order needs at least one item")
	}

	var order models.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total float64
		items := make([]models.OrderItem, 0, len(in.Items))

		for _, item := range in.Items {
			if item.Quantity <= 0 {
				return apperrors.InvalidAmount("item quantity must be positive")
			}

			var product models.Product
			if err := tx.First(&product, "id = ? AND is_active = ?", item.ProductID, true).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NotFound(fmt.Sprintf("product %s not found", item.ProductID))
				}
				return err
			}

			result := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
				Update("stock", gorm.Expr("stock - ?", item.Quantity))
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return apperrors.InvalidState(fmt.Sprintf("insufficient stock for %s", product.Name))
			}

			total += product.Price * float64(item.Quantity)
			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Name:      product.Name,
				UnitPrice: product.Price,
				Quantity:  item.Quantity,
			})
		}

		orderNumber, err := utils.GenerateUniqueOrderNumber(tx)
		if err != nil {
			return err
		}

		order = models.Order{
			OrderNumber:     orderNumber,
			UserID:          in.UserID,
			GuestSessionID:  in.GuestSessionID,
			TotalAmount:     total,
			Status:          models.OrderStatusCreated,
			PaymentStatus:   models.OrderPaymentStatusPending,
			ShippingName:    in.ShippingName,
			ShippingPhone:   in.ShippingPhone,
			ShippingAddress: in.ShippingAddress,
			ShippingCity:    in.ShippingCity,
			ShippingState:   in.ShippingState,
			ShippingPincode: in.ShippingPincode,
			Notes:           in.Notes,
			Items:           items,
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %s created with %d items, total %.2f", order.OrderNumber, len(order.Items), order.TotalAmount)
	return &order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	order, err := s.orders.GetByOrderNumber(ctx, orderNumber)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *OrderService) ListUserOrders(ctx context.Context, userID uuid.UUID, limit int) ([]*models.Order, error) {
	return s.orders.ListByUser(ctx, userID, limit)
}

func (s *OrderService) ListGuestOrders(ctx context.Context, sessionID string, limit int) ([]*models.Order, error) {
	return s.orders.ListByGuestSession(ctx, sessionID, limit)
}

// CancelOrder cancels an unpaid order and restores its reserved stock. Paid
// orders must go through the refund path instead.
func (s *OrderService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	switch order.Status {
	case models.OrderStatusCancelled:
		return order, nil
	case models.OrderStatusConfirmed, models.OrderStatusRefunded:
		return nil, apperrors.InvalidState("a paid order cannot be cancelled, request a refund instead")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range order.Items {
			if err := tx.Model(&models.Product{}).
				Where("id = ?", item.ProductID).
				Update("stock", gorm.Expr("stock + ?", item.Quantity)).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Order{}).
			Where("id = ?", order.ID).
			Update("status", models.OrderStatusCancelled).Error
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Order %s cancelled, stock restored", order.OrderNumber)
	return s.GetOrder(ctx, orderID)
}

// UpdateOrderStatus is the admin override for fulfilment transitions. Both
// fields must come from the known status domains.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status, paymentStatus string) (*models.Order, error) {
	if !validOrderStatuses[status] {
		return nil, apperrors.InvalidState("unknown order status " + status)
	}
	if !validOrderPaymentStatuses[paymentStatus] {
		return nil, apperrors.InvalidState("unknown payment status " + paymentStatus)
	}

	if err := s.orders.UpdateStatus(ctx, orderID, status, paymentStatus); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}
	return s.GetOrder(ctx, orderID)
}
