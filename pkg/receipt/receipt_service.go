package receipt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"ReceiptRadar-Backend/domain"
	"ReceiptRadar-Backend/entities"
	"ReceiptRadar-Backend/internal/utils"
	"ReceiptRadar-Backend/internal/utils/mailing"
	"ReceiptRadar-Backend/internal/utils/storage"
	"ReceiptRadar-Backend/pkg/extraction"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const defaultMerchantName = "Unknown Store"

type (
	ReceiptService interface {
		SubmitReceipt(ctx context.Context, req domain.SubmitReceiptRequest, userID string) (domain.SubmitReceiptResponse, error)
		GetScanStatus(ctx context.Context, scanID string, userID string) (domain.ScanStatusResponse, error)
		GetReceipts(ctx context.Context, userID string, page, limit int) ([]domain.ReceiptResponse, int64, error)
		GetReceiptByID(ctx context.Context, id string, userID string) (domain.ReceiptResponse, error)
	}

	receiptService struct {
		receiptRepository ReceiptRepository
		extractor         extraction.Client
		s3                storage.AwsS3
		stageInterval     time.Duration
	}
)

func NewReceiptService(receiptRepository ReceiptRepository, extractor extraction.Client, s3 storage.AwsS3) ReceiptService {
	interval := 400 * time.Millisecond
	if raw := utils.GetConfig("INGEST_STAGE_INTERVAL_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			interval = time.Duration(ms) * time.Millisecond
		}
	}

	return &receiptService{
		receiptRepository: receiptRepository,
		extractor:         extractor,
		s3:                s3,
		stageInterval:     interval,
	}
}

func (s *receiptService) SubmitReceipt(ctx context.Context, req domain.SubmitReceiptRequest, userID string) (domain.SubmitReceiptResponse, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return domain.SubmitReceiptResponse{}, domain.ErrParseUUID
	}

	file, err := req.ReceiptImage.Open()
	if err != nil {
		return domain.SubmitReceiptResponse{}, domain.ErrReceiptImageUnread
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		return domain.SubmitReceiptResponse{}, domain.ErrReceiptImageUnread
	}

	scanID := uuid.New()
	fileName := fmt.Sprintf("receipt-%s", scanID.String())
	objectKey, err := s.s3.UploadFile(fileName, req.ReceiptImage, "receipts", storage.AllowImage...)
	if err != nil {
		return domain.SubmitReceiptResponse{}, err
	}

	scan := &entities.ReceiptScan{
		ID:       scanID,
		UserID:   userUUID,
		ImageURL: s.s3.GetPublicLinkKey(objectKey),
		Status:   "Processing",
		Stage:    string(domain.StageAnalyzing),
	}
	if err := s.receiptRepository.CreateReceiptScan(ctx, scan); err != nil {
		_ = s.s3.DeleteFile(objectKey)
		return domain.SubmitReceiptResponse{}, err
	}

	contentType := req.ReceiptImage.Header.Get("Content-Type")
	return s.runIngestion(ctx, scan, imageData, req.ReceiptImage.Filename, contentType)
}

// runIngestion drives one ingestion: a decorative stage ticker paces the
// user-visible progress while the real extraction call runs; Saving is gated
// strictly on the real result, and the ticker is allowed to finish its bounded
// run when the result arrives early.
func (s *receiptService) runIngestion(ctx context.Context, scan *entities.ReceiptScan, image []byte, filename string, contentType string) (domain.SubmitReceiptResponse, error) {
	tickerDone := make(chan struct{})
	go func() {
		defer close(tickerDone)
		for _, stage := range []domain.IngestStage{domain.StageExtracting, domain.StageCategorizing, domain.StageTotaling} {
			select {
			case <-time.After(s.stageInterval):
				s.setStage(scan, stage)
			case <-ctx.Done():
				return
			}
		}
	}()

	result := s.extractor.Parse(ctx, image, filename, contentType)
	<-tickerDone

	if ctx.Err() != nil {
		// Abandoned before Saving: the result is discarded, nothing persists.
		s.markScanFailed(scan, "ingestion abandoned")
		return domain.SubmitReceiptResponse{}, domain.ErrIngestionAbandoned
	}

	if !result.Validation.IsValid {
		issues, _ := json.Marshal(result.Validation.Issues)
		scan.Status = "Rejected"
		scan.Stage = string(domain.StageRejected)
		scan.Result = string(issues)
		if err := s.receiptRepository.UpdateReceiptScan(context.Background(), scan); err != nil {
			log.Errorf("failed to mark scan %s rejected: %v", scan.ID, err)
		}
		return domain.SubmitReceiptResponse{
			ScanID: scan.ID.String(),
			Status: "rejected",
			Reason: rejectionReason(result),
		}, nil
	}

	canonical := buildCanonicalReceipt(scan, result)
	s.setStage(scan, domain.StageSaving)

	resultJSON, _ := json.Marshal(result)
	scan.Status = "Processed"
	scan.Stage = string(domain.StageComplete)
	scan.Result = string(resultJSON)
	if err := s.receiptRepository.UpdateReceiptScan(context.Background(), scan); err != nil {
		log.Errorf("failed to mark scan %s processed: %v", scan.ID, err)
	}

	// Fire-and-forget, dispatched after the final scan update so the save's
	// receipt-id back-fill cannot race a foreground write. A failed save never
	// changes the Complete outcome already returned.
	go s.persistInBackground(scan.ID, canonical)

	return domain.SubmitReceiptResponse{
		ScanID:  scan.ID.String(),
		Status:  "completed",
		Receipt: canonical,
	}, nil
}

func (s *receiptService) persistInBackground(scanID uuid.UUID, canonical *domain.CanonicalReceipt) {
	receipt, err := s.receiptRepository.SaveCanonicalReceipt(context.Background(), canonical)
	if err != nil {
		log.Errorf("background save failed for scan %s: %v", scanID, err)
		if mailErr := mailing.SendOpsAlert(
			"receipt background save failed",
			fmt.Sprintf("scan %s (user %s, merchant %q): %v", scanID, canonical.UserID, canonical.MerchantName, err),
		); mailErr != nil {
			log.Errorf("ops alert failed for scan %s: %v", scanID, mailErr)
		}
		return
	}

	if err := s.receiptRepository.AttachReceiptToScan(context.Background(), scanID.String(), receipt.ID); err != nil {
		log.Errorf("failed to attach receipt %s to scan %s: %v", receipt.ID, scanID, err)
	}
}

func (s *receiptService) setStage(scan *entities.ReceiptScan, stage domain.IngestStage) {
	scan.Stage = string(stage)
	if err := s.receiptRepository.UpdateReceiptScan(context.Background(), scan); err != nil {
		log.Warnf("failed to record stage %s for scan %s: %v", stage, scan.ID, err)
	}
}

func (s *receiptService) markScanFailed(scan *entities.ReceiptScan, reason string) {
	scan.Status = "Failed"
	scan.Stage = string(domain.StageFailed)
	scan.Result = reason
	if err := s.receiptRepository.UpdateReceiptScan(context.Background(), scan); err != nil {
		log.Errorf("failed to mark scan %s failed: %v", scan.ID, err)
	}
}

// buildCanonicalReceipt maps an accepted ExtractionResult into the normalized
// record: merchant defaults to "Unknown Store", an absent or malformed date
// defaults to today, and quantity is floored at 1.
func buildCanonicalReceipt(scan *entities.ReceiptScan, result *domain.ExtractionResult) *domain.CanonicalReceipt {
	merchantName := strings.TrimSpace(result.StoreName)
	if merchantName == "" {
		merchantName = defaultMerchantName
	}

	date, err := time.Parse("2006-01-02", result.Date)
	if err != nil {
		date = time.Now()
	}

	items := make([]domain.CanonicalItem, 0, len(result.Items))
	for _, item := range result.Items {
		quantity := item.Quantity
		if quantity < 1 {
			quantity = 1
		}
		items = append(items, domain.CanonicalItem{
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   quantity,
			Category:   item.Category,
			Confidence: item.Confidence,
		})
	}

	return &domain.CanonicalReceipt{
		UserID:       scan.UserID,
		ScanID:       scan.ID,
		MerchantName: merchantName,
		Total:        result.Total,
		Date:         date,
		Items:        items,
		ImageURL:     scan.ImageURL,
	}
}

func rejectionReason(result *domain.ExtractionResult) string {
	if len(result.Validation.Issues) > 0 {
		return result.Validation.Issues[0]
	}
	return domain.MessageReceiptRejected
}

func (s *receiptService) GetScanStatus(ctx context.Context, scanID string, userID string) (domain.ScanStatusResponse, error) {
	scan, err := s.receiptRepository.GetReceiptScanByID(ctx, scanID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ScanStatusResponse{}, domain.ErrScanNotFound
		}
		return domain.ScanStatusResponse{}, err
	}

	if scan.UserID.String() != userID {
		return domain.ScanStatusResponse{}, domain.ErrUnauthorizedAccess
	}

	response := domain.ScanStatusResponse{
		ScanID:    scan.ID.String(),
		Status:    scan.Status,
		Stage:     scan.Stage,
		ImageURL:  scan.ImageURL,
		CreatedAt: scan.CreatedAt,
	}
	if scan.ReceiptID != nil {
		response.ReceiptID = scan.ReceiptID.String()
	}
	return response, nil
}

func (s *receiptService) GetReceipts(ctx context.Context, userID string, page, limit int) ([]domain.ReceiptResponse, int64, error) {
	receipts, count, err := s.receiptRepository.GetReceipts(ctx, userID, page, limit)
	if err != nil {
		return nil, 0, err
	}

	var response []domain.ReceiptResponse
	for _, r := range receipts {
		response = append(response, domain.ReceiptResponse{
			ID:           r.ID.String(),
			MerchantID:   r.MerchantID.String(),
			MerchantName: r.MerchantName,
			Total:        r.Total,
			Date:         r.Date,
			ImageURL:     r.ImageURL,
			CreatedAt:    r.CreatedAt,
		})
	}

	return response, count, nil
}

func (s *receiptService) GetReceiptByID(ctx context.Context, id string, userID string) (domain.ReceiptResponse, error) {
	receipt, err := s.receiptRepository.GetReceiptByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ReceiptResponse{}, domain.ErrReceiptNotFound
		}
		return domain.ReceiptResponse{}, err
	}

	if receipt.UserID.String() != userID {
		return domain.ReceiptResponse{}, domain.ErrUnauthorizedAccess
	}

	items := make([]domain.ReceiptItemResponse, 0, len(receipt.Items))
	for _, item := range receipt.Items {
		items = append(items, domain.ReceiptItemResponse{
			ID:         item.ID.String(),
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   item.Quantity,
			Category:   item.Category,
			Confidence: item.Confidence,
		})
	}

	return domain.ReceiptResponse{
		ID:           receipt.ID.String(),
		MerchantID:   receipt.MerchantID.String(),
		MerchantName: receipt.MerchantName,
		Total:        receipt.Total,
		Date:         receipt.Date,
		ImageURL:     receipt.ImageURL,
		Items:        items,
		CreatedAt:    receipt.CreatedAt,
	}, nil
}
