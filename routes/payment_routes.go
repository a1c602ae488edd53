package routes

import (
	"github.com/avinashd07/shop_mitra/handlers"
	"github.com/avinashd07/shop_mitra/middleware"
	"github.com/gofiber/fiber/v2"
)

func PaymentRoutes(app *fiber.App, h *handlers.PaymentHandler) {
	api := app.Group("/api/v1")

	api.Post("/payments/webhook", h.HandleWebhook)

	payments := api.Group("/payments", middleware.OptionalAuth())
	payments.Post("/initiate", h.InitiatePayment)
	payments.Post("/verify", h.VerifyPayment)
	payments.Post("/retry/:orderId", h.RetryPayment)
	payments.Get("/order/:orderId", h.GetOrderPayment)

	admin := api.Group("/admin/payments", middleware.Protected(), middleware.AdminRequired())
	admin.Post("/:paymentId/refund", h.InitiateRefund)
}
