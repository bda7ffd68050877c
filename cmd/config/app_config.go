package config

import (
	"os"
	"time"

	"ReceiptRadar-Backend/internal/api/handlers"
	"ReceiptRadar-Backend/internal/api/routes"
	"ReceiptRadar-Backend/internal/middleware"
	"ReceiptRadar-Backend/internal/utils"
	"ReceiptRadar-Backend/internal/utils/storage"
	"ReceiptRadar-Backend/pkg/extraction"
	"ReceiptRadar-Backend/pkg/jwt"
	"ReceiptRadar-Backend/pkg/pricehistory"
	"ReceiptRadar-Backend/pkg/receipt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"gorm.io/gorm"
)

func NewApp(db *gorm.DB) (*fiber.App, error) {
	utils.InitValidator()
	app := fiber.New(fiber.Config{
		EnablePrintRoutes: true,
	})
	middlewares := middleware.NewMiddleware()
	validator := utils.Validate

	// setting up logging and limiter
	err := os.MkdirAll("./logs", os.ModePerm)
	if err != nil {
		log.Fatalf("error creating logs directory: %v", err)
	}
	file, err := os.OpenFile(
		"./logs/app.log",
		os.O_RDWR|os.O_CREATE|os.O_APPEND,
		0666,
	)
	if err != nil {
		log.Fatalf("error opening file: %v", err)
	}
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   "UTC",
		Output:     file,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        10,
		Expiration: 1 * time.Second,
	}))

	// utils
	s3 := storage.NewAwsS3()

	// Repository
	receiptRepository := receipt.NewReceiptRepository(db)
	priceHistoryRepository := pricehistory.NewPriceHistoryRepository(db)

	// Service
	jwtService := jwt.NewJWTService()
	extractionClient := extraction.NewClient()
	receiptService := receipt.NewReceiptService(receiptRepository, extractionClient, s3)
	priceHistoryService := pricehistory.NewPriceHistoryService(priceHistoryRepository)

	// Handler
	receiptHandler := handlers.NewReceiptHandler(receiptService, validator)
	priceHistoryHandler := handlers.NewPriceHistoryHandler(priceHistoryService)

	// routes
	routesConfig := routes.Config{
		App:                 app,
		ReceiptHandler:      receiptHandler,
		PriceHistoryHandler: priceHistoryHandler,
		Middleware:          middlewares,
		JWTService:          jwtService,
	}
	routesConfig.Setup()
	return app, nil
}
