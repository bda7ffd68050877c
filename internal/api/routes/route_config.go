package routes

import (
	"ReceiptRadar-Backend/internal/api/handlers"
	"ReceiptRadar-Backend/internal/middleware"
	"ReceiptRadar-Backend/pkg/jwt"

	"github.com/gofiber/fiber/v2"
)

type Config struct {
	App                 *fiber.App
	ReceiptHandler      handlers.ReceiptHandler
	PriceHistoryHandler handlers.PriceHistoryHandler
	Middleware          middleware.Middleware
	JWTService          jwt.JWTService
}

func (c *Config) Setup() {
	c.App.Use(c.Middleware.CORSMiddleware())
	c.Receipts()
	c.PriceHistory()
	c.GuestRoute()
}

func (c *Config) Receipts() {
	receipts := c.App.Group("/api/v1/receipts", c.Middleware.AuthMiddleware(c.JWTService))

	receipts.Post("/scan", c.ReceiptHandler.SubmitReceipt)
	receipts.Get("/scan/:id", c.ReceiptHandler.GetScanStatus)

	receipts.Get("", c.ReceiptHandler.GetReceipts)
	receipts.Get("/:id", c.ReceiptHandler.GetReceiptDetails)
}

func (c *Config) PriceHistory() {
	priceHistory := c.App.Group("/api/v1/price-history", c.Middleware.AuthMiddleware(c.JWTService))

	priceHistory.Get("", c.PriceHistoryHandler.GetProductHistory)
	priceHistory.Get("/summary", c.PriceHistoryHandler.GetProductSummary)
}

func (c *Config) GuestRoute() {
	c.App.Get("/api/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "pong"})
	})
}
