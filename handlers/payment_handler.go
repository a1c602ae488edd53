package handlers

import (
	"log"

	"github.com/avinashd07/shop_mitra/apperrors"
	"github.com/avinashd07/shop_mitra/models"
	"github.com/avinashd07/shop_mitra/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type PaymentHandler struct {
	payments *services.PaymentService
	orders   *services.OrderService
}

func NewPaymentHandler(payments *services.PaymentService, orders *services.OrderService) *PaymentHandler {
	return &PaymentHandler{payments: payments, orders: orders}
}

type InitiatePaymentRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid4"`
	Method  string `json:"method" validate:"required,oneof=cod razorpay"`
}

func (h *PaymentHandler) InitiatePayment(c *fiber.Ctx) error {
	var req InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID format"})
	}

	order, err := h.orders.GetOrder(c.Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	if !canAccessOrder(c, order) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this order"})
	}

	if req.Method == models.PaymentProviderCOD {
		payment, err := h.payments.ProcessCODPayment(c.Context(), orderID)
		if err != nil {
			return respondError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Order confirmed with cash on delivery",
			"payment": payment,
		})
	}

	checkout, err := h.payments.InitiateGatewayPayment(c.Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(checkout)
}

type VerifyPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// VerifyPayment is the client-side checkout completion callback. It may race
// the gateway webhook for the same payment; the service treats a repeat as a
// no-op and returns the payment unchanged.
func (h *PaymentHandler) VerifyPayment(c *fiber.Ctx) error {
	var req VerifyPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, err := h.payments.VerifyGatewayPayment(c.Context(), req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Payment verified and order confirmed",
		"payment": payment,
	})
}

// WebhookRequest is the normalized event shape the transport delivers. The
// gateway-specific payload shape is unwrapped before it gets here; anything
// that fails validation is a transport error, not a state-machine concern.
type WebhookRequest struct {
	Event                string   `json:"event" validate:"required,oneof=payment.success payment.failed"`
	CheckoutID           *string  `json:"checkout_id,omitempty"`
	TransactionID        *string  `json:"transaction_id,omitempty"`
	GatewayTransactionID *string  `json:"gateway_transaction_id,omitempty"`
	OrderNumber          *string  `json:"order_number,omitempty"`
	Method               *string  `json:"method,omitempty"`
	Amount               *float64 `json:"amount,omitempty"`
	ErrorCode            *string  `json:"error_code,omitempty"`
	ErrorMessage         *string  `json:"error_message,omitempty"`
	FailureReason        *string  `json:"failure_reason,omitempty"`
}

// HandleWebhook ingests gateway payment webhooks. Delivery is at-least-once,
// so business-level misses (unknown payment, already settled) are still
// acknowledged with 200 to stop the gateway from redelivering forever.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	var req WebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse webhook payload"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	rawPayload := string(c.Body())

	var err error
	switch req.Event {
	case "payment.success":
		if req.TransactionID == nil || *req.TransactionID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "A success event requires a transaction_id"})
		}
		_, err = h.payments.HandlePaymentSuccess(c.Context(), services.PaymentSuccessEvent{
			CheckoutID:           req.CheckoutID,
			TransactionID:        *req.TransactionID,
			GatewayTransactionID: req.GatewayTransactionID,
			OrderNumber:          req.OrderNumber,
			Method:               req.Method,
			Amount:               req.Amount,
			RawPayload:           rawPayload,
		})
	case "payment.failed":
		_, err = h.payments.HandlePaymentFailure(c.Context(), services.PaymentFailureEvent{
			CheckoutID:    req.CheckoutID,
			TransactionID: req.TransactionID,
			OrderNumber:   req.OrderNumber,
			ErrorCode:     req.ErrorCode,
			ErrorMessage:  req.ErrorMessage,
			FailureReason: req.FailureReason,
			RawPayload:    rawPayload,
		})
	}

	if err != nil {
		if kind := apperrors.KindOf(err); kind != "" {
			log.Printf("Webhook %s resolved to a business error, acknowledging anyway: %v", req.Event, err)
			return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Acknowledged", "kind": string(kind)})
		}
		log.Printf("🔥 Failed to process %s webhook: %v", req.Event, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process webhook"})
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "Webhook processed successfully"})
}

func (h *PaymentHandler) RetryPayment(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID format"})
	}

	order, err := h.orders.GetOrder(c.Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	if !canAccessOrder(c, order) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this order"})
	}

	payment, checkoutURL, err := h.payments.RetryPayment(c.Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"payment":      payment,
		"checkout_url": checkoutURL,
	})
}

func (h *PaymentHandler) GetOrderPayment(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("orderId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid order ID format"})
	}

	order, err := h.orders.GetOrder(c.Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	if !canAccessOrder(c, order) {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You do not have access to this order"})
	}

	payment, err := h.payments.GetPaymentForOrder(c.Context(), orderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(payment)
}

type RefundRequest struct {
	RefundAmount        float64 `json:"refund_amount" validate:"required,gt=0"`
	RefundTransactionID *string `json:"refund_transaction_id,omitempty"`
}

func (h *PaymentHandler) InitiateRefund(c *fiber.Ctx) error {
	paymentID, err := uuid.Parse(c.Params("paymentId"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payment ID format"})
	}

	var req RefundRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	payment, err := h.payments.InitiateRefund(c.Context(), paymentID, req.RefundAmount, req.RefundTransactionID)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"message": "Refund initiated successfully",
		"payment": payment,
	})
}
