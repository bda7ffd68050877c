package handlers

import (
	"errors"
	"strconv"

	"ReceiptRadar-Backend/domain"
	"ReceiptRadar-Backend/internal/api/presenters"
	"ReceiptRadar-Backend/pkg/receipt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type (
	ReceiptHandler interface {
		SubmitReceipt(c *fiber.Ctx) error
		GetScanStatus(c *fiber.Ctx) error
		GetReceipts(c *fiber.Ctx) error
		GetReceiptDetails(c *fiber.Ctx) error
	}

	receiptHandler struct {
		receiptService receipt.ReceiptService
		validator      *validator.Validate
	}
)

func NewReceiptHandler(receiptService receipt.ReceiptService, validator *validator.Validate) ReceiptHandler {
	return &receiptHandler{
		receiptService: receiptService,
		validator:      validator,
	}
}

func (h *receiptHandler) SubmitReceipt(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	req := new(domain.SubmitReceiptRequest)

	file, err := c.FormFile("receipt_image")
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedBodyRequest, err)
	}

	req.ReceiptImage = file

	if err := h.validator.Struct(req); err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedSubmitReceipt, err)
	}

	res, err := h.receiptService.SubmitReceipt(c.Context(), *req, userID)
	if err != nil {
		// Failed is retryable, unlike a rejected scan.
		return presenters.ErrorResponse(c, fiber.StatusBadGateway, domain.MessageFailedSubmitReceipt, err)
	}

	if res.Status == "rejected" {
		return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageReceiptRejected)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessSubmitReceipt)
}

func (h *receiptHandler) GetScanStatus(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	scanID := c.Params("id")

	res, err := h.receiptService.GetScanStatus(c.Context(), scanID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrScanNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedGetScanStatus, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetScanStatus, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetScanStatus)
}

func (h *receiptHandler) GetReceipts(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	page, err := strconv.Atoi(c.Query("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}

	limit, err := strconv.Atoi(c.Query("limit", "20"))
	if err != nil || limit < 1 {
		limit = 20
	}

	receipts, count, err := h.receiptService.GetReceipts(c.Context(), userID, page, limit)
	if err != nil {
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetReceipts, err)
	}

	return presenters.SuccessResponse(c, fiber.Map{
		"receipts": receipts,
		"pagination": fiber.Map{
			"page":        page,
			"limit":       limit,
			"total":       count,
			"total_pages": (count + int64(limit) - 1) / int64(limit),
		},
	}, fiber.StatusOK, domain.MessageSuccessGetReceipts)
}

func (h *receiptHandler) GetReceiptDetails(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	receiptID := c.Params("id")

	res, err := h.receiptService.GetReceiptByID(c.Context(), receiptID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrReceiptNotFound) {
			return presenters.ErrorResponse(c, fiber.StatusNotFound, domain.MessageFailedGetReceipt, err)
		}
		return presenters.ErrorResponse(c, fiber.StatusBadRequest, domain.MessageFailedGetReceipt, err)
	}

	return presenters.SuccessResponse(c, res, fiber.StatusOK, domain.MessageSuccessGetReceipt)
}
