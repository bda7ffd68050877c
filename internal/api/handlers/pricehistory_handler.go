package handlers

import (
	"errors"
	"strconv"

	"ReceiptRadar-Backend/domain"
	"ReceiptRadar-Backend/internal/api/presenters"
	"ReceiptRadar-Backend/pkg/pricehistory"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type (
	PriceHistoryHandler interface {
		GetProductHistory(c *fiber.Ctx) error
		GetProductSummary(c *fiber.Ctx) error
	}

	priceHistoryHandler struct {
		priceHistoryService pricehistory.PriceHistoryService
	}
)

func NewPriceHistoryHandler(priceHistoryService pricehistory.PriceHistoryService) PriceHistoryHandler {
	return &priceHistoryHandler{
		priceHistoryService: priceHistoryService,
	}
}

func (h *priceHistoryHandler) GetProductHistory(c *fiber.Ctx) error {
	merchantID := c.Query("merchant_id")
	product := c.Query("product")

	if _, err := uuid.Parse(merchantID); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetPriceHistory, domain.ErrParseUUID)
	}
	if product == "" {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetPriceHistory, nil)
	}

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	observations, count, err := h.priceHistoryService.GetProductHistory(c.Context(), merchantID, product, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetPriceHistory, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"observations": observations,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       count,
			"total_pages": (count + int64(limit) - 1) / int64(limit),
		},
	}, fiber.StatusOK, domain.MessageSuccessGetPriceHistory)
}

func (h *priceHistoryHandler) GetProductSummary(c *fiber.Ctx) error {
	merchantID := c.Query("merchant_id")
	product := c.Query("product")

	if _, err := uuid.Parse(merchantID); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetPriceSummary, domain.ErrParseUUID)
	}
	if product == "" {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetPriceSummary, nil)
	}

	summary, err := h.priceHistoryService.GetProductSummary(c.Context(), merchantID, product)
	if err != nil {
		if errors.Is(err, domain.ErrNoObservations) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedGetPriceSummary, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetPriceSummary, err)
	}

	return presenters.SuccessResponse(c, summary, fiber.StatusOK, domain.MessageSuccessGetPriceSummary)
}
