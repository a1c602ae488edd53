package routes

import (
	"github.com/avinashd07/shop_mitra/handlers"
	"github.com/avinashd07/shop_mitra/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProductRoutes(app *fiber.App, h *handlers.ProductHandler) {
	api := app.Group("/api/v1")

	products := api.Group("/products")
	products.Get("", h.ListProducts)
	products.Get("/:productId", h.GetProduct)

	admin := api.Group("/admin/products", middleware.Protected(), middleware.AdminRequired())
	admin.Post("", h.CreateProduct)
	admin.Patch("/:productId/stock", h.UpdateStock)
}
