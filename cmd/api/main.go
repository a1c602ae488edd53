package main

import (
	"log"
	"time"

	"github.com/avinashd07/shop_mitra/database"
	"github.com/avinashd07/shop_mitra/handlers"
	"github.com/avinashd07/shop_mitra/jobs"
	"github.com/avinashd07/shop_mitra/notifications"
	"github.com/avinashd07/shop_mitra/payments"
	"github.com/avinashd07/shop_mitra/repository"
	"github.com/avinashd07/shop_mitra/routes"
	"github.com/avinashd07/shop_mitra/services"
	"github.com/avinashd07/shop_mitra/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	db := database.ConnectDB()
	database.Migrate(db)
	database.SeedAdmin(db)
	notifications.InitEmailService()

	hub := websocket.NewHub()
	go hub.Run()

	paymentRepo := repository.NewPaymentRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	gateway := payments.NewRazorpayClient()
	notifier := notifications.NewOrderNotifier(hub, db)

	orderService := services.NewOrderService(db, orderRepo)
	paymentService := services.NewPaymentService(paymentRepo, orderRepo, gateway, notifier)
	invoiceService := services.NewInvoiceService()

	c := cron.New()
	reconcile := jobs.NewReconcileJob(db, paymentRepo, orderRepo)
	c.AddFunc("*/30 * * * *", reconcile.Run)
	go c.Start()
	log.Println("✅ Cron job for payment reconciliation scheduled successfully.")

	app := fiber.New(fiber.Config{
		Prefork:           false,
		AppName:           "ShopMitra",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Guest-Session, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "Asia/Kolkata",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "success",
			"message": "Welcome to ShopMitra API",
		})
	})

	authHandler := handlers.NewAuthHandler(db)
	productHandler := handlers.NewProductHandler(db)
	orderHandler := handlers.NewOrderHandler(orderService, invoiceService, paymentRepo)
	paymentHandler := handlers.NewPaymentHandler(paymentService, orderService)
	wsHandler := handlers.NewStatusWsHandler(hub)

	routes.AuthRoutes(app, authHandler)
	routes.ProductRoutes(app, productHandler)
	routes.OrderRoutes(app, orderHandler, wsHandler)
	routes.PaymentRoutes(app, paymentHandler)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	log.Println("✅ Server is running on port 8080")
	err := app.Listen(":8080")
	if err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
