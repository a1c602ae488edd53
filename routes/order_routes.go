package routes

import (
	"github.com/avinashd07/shop_mitra/handlers"
	"github.com/avinashd07/shop_mitra/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func OrderRoutes(app *fiber.App, h *handlers.OrderHandler, ws *handlers.StatusWsHandler) {
	api := app.Group("/api/v1")

	orders := api.Group("/orders", middleware.OptionalAuth())
	orders.Post("", h.CreateOrder)
	orders.Get("/me", middleware.Protected(), h.ListMyOrders)
	orders.Get("/guest", h.ListGuestOrders)
	orders.Get("/number/:orderNumber", h.GetOrderByNumber)
	orders.Get("/:orderId", h.GetOrder)
	orders.Post("/:orderId/cancel", h.CancelOrder)
	orders.Get("/:orderId/invoice", h.DownloadInvoice)

	admin := api.Group("/admin/orders", middleware.Protected(), middleware.AdminRequired())
	admin.Patch("/:orderId/status", h.UpdateOrderStatus)

	api.Use("/ws/orders", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws/orders", websocket.New(ws.ServeWs))
}
