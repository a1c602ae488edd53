package handlers

import (
	"errors"
	"fmt"

	"github.com/avinashd07/shop_mitra/middleware"
	"github.com/avinashd07/shop_mitra/models"
	"github.com/avinashd07/shop_mitra/repository"
	"github.com/avinashd07/shop_mitra/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultOrderListLimit = 50

type OrderHandler struct {
	orders   *services.OrderService
	invoices *services.InvoiceService
	payments repository.PaymentRepository
}

func NewOrderHandler(orders *services.OrderService, invoices *services.InvoiceService, payments repository.PaymentRepository) *OrderHandler {
	return &OrderHandler{orders: orders, invoices: invoices, payments: payments}
}

type OrderItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid4"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
}

type CreateOrderRequest struct {
	Items           []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingName    string             `json:"shipping_name" validate:"required"`
	ShippingPhone   string             `json:"shipping_phone" validate:"required"`
	ShippingAddress string             `json:"shipping_address" validate:"required"`
	ShippingCity    string             `json:"shipping_city" validate:"required"`
	ShippingState   string             `json:"shipping_state" validate:"required"`
	ShippingPincode string             `json:"shipping_pincode" validate:"required,len=6"`
	Notes           *string            `json:"notes,omitempty"`
}

func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	var req CreateOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	userID, guestSessionID := middleware.ResolveOwner(c)
	if userID == nil && guestSessionID == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Login or supply a guest session header to place an order"})
	}

	items := make([]services.OrderItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid product ID format"})
		}
		items = append(items, services.OrderItemInput{ProductID: productID, Quantity: item.Quantity})
	}

	order, err := h.orders.CreateOrder(c.Context(), services.CreateOrderInput{
		UserID:          userID,
		GuestSessionID:  guestSessionID,
		Items:           items,
		ShippingName:    req.ShippingName,
		ShippingPhone:   req.ShippingPhone,
		ShippingAddress: req.ShippingAddress,
		ShippingCity:    req.ShippingCity,
		ShippingState:   req.ShippingState,
		ShippingPincode: req.ShippingPincode,
		Notes:           req.Notes,
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID format"})
	}

	order, err := h.orders.GetOrder(c.Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	if !h.canAccess(c, order) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this order"})
	}

	return c.JSON(order)
}

func (h *OrderHandler) GetOrderByNumber(c *fiber.Ctx) error {
	order, err := h.orders.GetOrderByNumber(c.Context(), c.Params("orderNumber"))
	if err != nil {
		return respondError(c, err)
	}
	if !h.canAccess(c, order) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this order"})
	}

	return c.JSON(order)
}

func (h *OrderHandler) ListMyOrders(c *fiber.Ctx) error {
	userID, _ := middleware.ResolveOwner(c)
	if userID == nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Authentication required"})
	}

	orders, err := h.orders.ListUserOrders(c.Context(), *userID, defaultOrderListLimit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list orders"})
	}
	return c.JSON(fiber.Map{"orders": orders})
}

func (h *OrderHandler) ListGuestOrders(c *fiber.Ctx) error {
	session := c.Get(middleware.GuestSessionHeader)
	if session == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing guest session header"})
	}

	orders, err := h.orders.ListGuestOrders(c.Context(), session, defaultOrderListLimit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to list orders"})
	}
	return c.JSON(fiber.Map{"orders": orders})
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID format"})
	}

	order, err := h.orders.GetOrder(c.Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	if !h.canAccess(c, order) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this order"})
	}

	cancelled, err := h.orders.CancelOrder(c.Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(cancelled)
}

type UpdateOrderStatusRequest struct {
	Status        string `json:"status" validate:"required"`
	PaymentStatus string `json:"payment_status" validate:"required"`
}

func (h *OrderHandler) UpdateOrderStatus(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID format"})
	}

	var req UpdateOrderStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	order, err := h.orders.UpdateOrderStatus(c.Context(), orderID, req.Status, req.PaymentStatus)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

func (h *OrderHandler) DownloadInvoice(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID format"})
	}

	order, err := h.orders.GetOrder(c.Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	if !h.canAccess(c, order) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this order"})
	}

	payment, err := h.payments.GetByOrderID(c.Context(), orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No payment found for this order"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Database error"})
	}

	pdfBytes, err := h.invoices.GenerateInvoice(c.Context(), order, payment)
	if err != nil {
		return respondError(c, err)
	}

	c.Set("Content-Type", "application/pdf")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="invoice-%s.pdf"`, order.OrderNumber))
	return c.Send(pdfBytes)
}

func (h *OrderHandler) canAccess(c *fiber.Ctx, order *models.Order) bool {
	return canAccessOrder(c, order)
}
