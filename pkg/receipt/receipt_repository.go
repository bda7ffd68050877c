package receipt

import (
	"context"
	"errors"
	"fmt"

	"ReceiptRadar-Backend/domain"
	"ReceiptRadar-Backend/entities"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const priceObservationSource = "receipt"

type (
	ReceiptRepository interface {
		SaveCanonicalReceipt(ctx context.Context, canonical *domain.CanonicalReceipt) (*entities.Receipt, error)
		FindMerchantByName(ctx context.Context, name string) (*entities.Merchant, error)

		CreateReceiptScan(ctx context.Context, scan *entities.ReceiptScan) error
		UpdateReceiptScan(ctx context.Context, scan *entities.ReceiptScan) error
		GetReceiptScanByID(ctx context.Context, id string) (*entities.ReceiptScan, error)
		AttachReceiptToScan(ctx context.Context, scanID string, receiptID uuid.UUID) error

		GetReceiptByID(ctx context.Context, id string) (*entities.Receipt, error)
		GetReceipts(ctx context.Context, userID string, page, limit int) ([]*entities.Receipt, int64, error)
	}

	receiptRepository struct {
		db *gorm.DB
	}
)

func NewReceiptRepository(db *gorm.DB) ReceiptRepository {
	return &receiptRepository{db: db}
}

// SaveCanonicalReceipt records a canonical receipt across the merchant,
// receipt, item and price-history tables, strictly in that order. Merchant
// resolution, the header insert and the item insert are fatal on failure; the
// price-history insert is an analytical side-channel and only logged. The
// header is deliberately not rolled back when the item insert fails, and none
// of the steps is idempotent under retry.
func (r *receiptRepository) SaveCanonicalReceipt(ctx context.Context, canonical *domain.CanonicalReceipt) (*entities.Receipt, error) {
	merchant, err := r.resolveMerchant(ctx, canonical.MerchantName)
	if err != nil {
		return nil, fmt.Errorf("resolve merchant: %w", err)
	}

	receipt := &entities.Receipt{
		ID:           uuid.New(),
		UserID:       canonical.UserID,
		MerchantID:   merchant.ID,
		MerchantName: merchant.Name,
		Total:        canonical.Total,
		Date:         canonical.Date,
		ImageURL:     canonical.ImageURL,
	}
	if err := r.db.WithContext(ctx).Create(receipt).Error; err != nil {
		return nil, fmt.Errorf("insert receipt header: %w", err)
	}

	if len(canonical.Items) > 0 {
		items := make([]*entities.ReceiptItem, 0, len(canonical.Items))
		for _, item := range canonical.Items {
			items = append(items, &entities.ReceiptItem{
				ID:         uuid.New(),
				ReceiptID:  receipt.ID,
				Name:       item.Name,
				Price:      item.Price,
				Quantity:   item.Quantity,
				Category:   item.Category,
				Confidence: item.Confidence,
			})
		}
		if err := r.db.WithContext(ctx).Create(&items).Error; err != nil {
			return nil, fmt.Errorf("insert receipt items: %w", err)
		}

		observations := make([]*entities.PriceObservation, 0, len(canonical.Items))
		for _, item := range canonical.Items {
			observations = append(observations, &entities.PriceObservation{
				ID:          uuid.New(),
				MerchantID:  merchant.ID,
				ProductName: item.Name,
				Price:       item.Price,
				ObservedAt:  canonical.Date,
				Source:      priceObservationSource,
			})
		}
		if err := r.db.WithContext(ctx).Create(&observations).Error; err != nil {
			log.Errorf("price history insert failed for receipt %s: %v", receipt.ID, err)
		}
	}

	return receipt, nil
}

func (r *receiptRepository) FindMerchantByName(ctx context.Context, name string) (*entities.Merchant, error) {
	var merchant entities.Merchant
	if err := r.db.WithContext(ctx).
		Where("LOWER(name) = LOWER(?)", name).
		First(&merchant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &merchant, nil
}

// resolveMerchant reuses the existing merchant regardless of letter case and
// creates it on a miss. A failed create is re-read once: a concurrent
// first-time submission may have won the unique index.
func (r *receiptRepository) resolveMerchant(ctx context.Context, name string) (*entities.Merchant, error) {
	merchant, err := r.FindMerchantByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if merchant != nil {
		return merchant, nil
	}

	merchant = &entities.Merchant{
		ID:   uuid.New(),
		Name: name,
	}
	if createErr := r.db.WithContext(ctx).Create(merchant).Error; createErr != nil {
		existing, findErr := r.FindMerchantByName(ctx, name)
		if findErr == nil && existing != nil {
			return existing, nil
		}
		return nil, createErr
	}
	return merchant, nil
}

func (r *receiptRepository) CreateReceiptScan(ctx context.Context, scan *entities.ReceiptScan) error {
	return r.db.WithContext(ctx).Create(scan).Error
}

// UpdateReceiptScan writes the foreground-owned columns only. receipt_id
// belongs to the background save (AttachReceiptToScan) and must never be
// clobbered by a concurrent status update.
func (r *receiptRepository) UpdateReceiptScan(ctx context.Context, scan *entities.ReceiptScan) error {
	return r.db.WithContext(ctx).Model(&entities.ReceiptScan{}).
		Where("id = ?", scan.ID).
		Updates(map[string]interface{}{
			"status": scan.Status,
			"stage":  scan.Stage,
			"result": scan.Result,
		}).Error
}

func (r *receiptRepository) GetReceiptScanByID(ctx context.Context, id string) (*entities.ReceiptScan, error) {
	var scan entities.ReceiptScan
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&scan).Error; err != nil {
		return nil, err
	}
	return &scan, nil
}

func (r *receiptRepository) AttachReceiptToScan(ctx context.Context, scanID string, receiptID uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entities.ReceiptScan{}).
		Where("id = ?", scanID).
		Updates(map[string]interface{}{"receipt_id": receiptID}).Error
}

func (r *receiptRepository) GetReceiptByID(ctx context.Context, id string) (*entities.Receipt, error) {
	var receipt entities.Receipt
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", id).
		First(&receipt).Error; err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (r *receiptRepository) GetReceipts(ctx context.Context, userID string, page, limit int) ([]*entities.Receipt, int64, error) {
	var receipts []*entities.Receipt
	var count int64

	offset := (page - 1) * limit

	query := r.db.WithContext(ctx).Where("user_id = ?", userID)

	if err := query.Model(&entities.Receipt{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("date desc").Find(&receipts).Error; err != nil {
		return nil, 0, err
	}

	return receipts, count, nil
}
