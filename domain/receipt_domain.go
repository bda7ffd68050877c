package domain

import (
	"errors"
	"mime/multipart"
	"time"

	"github.com/google/uuid"
)

var (
	MessageSuccessSubmitReceipt = "receipt processed successfully"
	MessageSuccessGetScanStatus = "scan status retrieved successfully"
	MessageSuccessGetReceipts   = "receipts retrieved successfully"
	MessageSuccessGetReceipt    = "receipt retrieved successfully"
	MessageReceiptRejected      = "this doesn't look like a receipt"
	MessageFailedSubmitReceipt  = "failed to process receipt, please try again"
	MessageFailedGetScanStatus  = "failed to retrieve scan status"
	MessageFailedGetReceipts    = "failed to retrieve receipts"
	MessageFailedGetReceipt     = "failed to retrieve receipt"

	ErrReceiptNotFound    = errors.New("receipt not found")
	ErrScanNotFound       = errors.New("receipt scan not found")
	ErrUnauthorizedAccess = errors.New("unauthorized access to receipt")
	ErrReceiptImageUnread = errors.New("receipt image could not be read")
	ErrIngestionAbandoned = errors.New("ingestion abandoned before saving")
)

// IngestStage is the user-visible progress value of one ingestion. The first
// four stages are decorative pacing; Saving is gated strictly on the real
// extraction result.
type IngestStage string

const (
	StageAnalyzing    IngestStage = "Analyzing"
	StageExtracting   IngestStage = "Extracting"
	StageCategorizing IngestStage = "Categorizing"
	StageTotaling     IngestStage = "Totaling"
	StageSaving       IngestStage = "Saving"
	StageComplete     IngestStage = "Complete"
	StageRejected     IngestStage = "Rejected"
	StageFailed       IngestStage = "Failed"
)

type (
	// ExtractionValidation is the semantic verdict the recognition service
	// reports about its own output.
	ExtractionValidation struct {
		IsValid         bool     `json:"is_valid"`
		ConfidenceScore float64  `json:"confidence_score"`
		Issues          []string `json:"issues"`
	}

	ExtractedItem struct {
		Name       string  `json:"name"`
		Price      float64 `json:"price"`
		Quantity   int     `json:"quantity"`
		Category   string  `json:"category,omitempty"`
		Confidence float64 `json:"confidence,omitempty"`
	}

	// ExtractionResult is the raw output of the recognition step. Immutable
	// after creation; the extraction client guarantees Validation and Items
	// are always present on anything it returns.
	ExtractionResult struct {
		StoreName      string                `json:"store_name,omitempty"`
		Date           string                `json:"date,omitempty"` // ISO date, may be absent or malformed
		Total          float64               `json:"total"`
		Subtotal       *float64              `json:"subtotal,omitempty"`
		Tax            *float64              `json:"tax,omitempty"`
		ReceiptNumber  string                `json:"receipt_number,omitempty"`
		Items          []ExtractedItem       `json:"items"`
		Validation     *ExtractionValidation `json:"validation"`
		ProcessingTime float64               `json:"processing_time"`
		Enhanced       bool                  `json:"enhanced"`
	}

	CanonicalItem struct {
		Name       string  `json:"name"`
		Price      float64 `json:"price"`
		Quantity   int     `json:"quantity"`
		Category   string  `json:"category,omitempty"`
		Confidence float64 `json:"confidence"`
	}

	// CanonicalReceipt is the normalized record ready for durable storage.
	// Built once from an accepted ExtractionResult, never mutated after.
	CanonicalReceipt struct {
		UserID       uuid.UUID       `json:"user_id"`
		ScanID       uuid.UUID       `json:"scan_id"`
		MerchantName string          `json:"merchant_name"`
		Total        float64         `json:"total"`
		Date         time.Time       `json:"date"`
		Items        []CanonicalItem `json:"items"`
		ImageURL     string          `json:"image_url"`
	}

	SubmitReceiptRequest struct {
		ReceiptImage *multipart.FileHeader `json:"receipt_image" form:"receipt_image" validate:"required"`
	}

	SubmitReceiptResponse struct {
		ScanID  string            `json:"scan_id"`
		Status  string            `json:"status"` // "completed" or "rejected"
		Reason  string            `json:"reason,omitempty"`
		Receipt *CanonicalReceipt `json:"receipt,omitempty"`
	}

	ScanStatusResponse struct {
		ScanID    string    `json:"scan_id"`
		Status    string    `json:"status"`
		Stage     string    `json:"stage"`
		ImageURL  string    `json:"image_url"`
		ReceiptID string    `json:"receipt_id,omitempty"`
		CreatedAt time.Time `json:"created_at"`
	}

	ReceiptItemResponse struct {
		ID         string  `json:"id"`
		Name       string  `json:"name"`
		Price      float64 `json:"price"`
		Quantity   int     `json:"quantity"`
		Category   string  `json:"category,omitempty"`
		Confidence float64 `json:"confidence"`
	}

	ReceiptResponse struct {
		ID           string                `json:"id"`
		MerchantID   string                `json:"merchant_id"`
		MerchantName string                `json:"merchant_name"`
		Total        float64               `json:"total"`
		Date         time.Time             `json:"date"`
		ImageURL     string                `json:"image_url,omitempty"`
		Items        []ReceiptItemResponse `json:"items,omitempty"`
		CreatedAt    time.Time             `json:"created_at"`
	}
)
