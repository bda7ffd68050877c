package pricehistory

import (
	"context"
	"errors"

	"ReceiptRadar-Backend/entities"

	"gorm.io/gorm"
)

type (
	PriceHistoryRepository interface {
		GetObservations(ctx context.Context, merchantID string, product string, page, limit int) ([]*entities.PriceObservation, int64, error)
		GetSummary(ctx context.Context, merchantID string, product string) (map[string]interface{}, error)
	}

	priceHistoryRepository struct {
		db *gorm.DB
	}
)

func NewPriceHistoryRepository(db *gorm.DB) PriceHistoryRepository {
	return &priceHistoryRepository{db: db}
}

func (r *priceHistoryRepository) GetObservations(ctx context.Context, merchantID string, product string, page, limit int) ([]*entities.PriceObservation, int64, error) {
	var observations []*entities.PriceObservation
	var count int64

	offset := (page - 1) * limit

	query := r.db.WithContext(ctx).
		Where("merchant_id = ? AND LOWER(product_name) = LOWER(?)", merchantID, product)

	if err := query.Model(&entities.PriceObservation{}).Count(&count).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Offset(offset).Limit(limit).Order("observed_at desc").Find(&observations).Error; err != nil {
		return nil, 0, err
	}

	return observations, count, nil
}

func (r *priceHistoryRepository) GetSummary(ctx context.Context, merchantID string, product string) (map[string]interface{}, error) {
	var aggregate struct {
		Observations int64
		MinPrice     float64
		MaxPrice     float64
		AvgPrice     float64
	}

	if err := r.db.WithContext(ctx).Model(&entities.PriceObservation{}).
		Select("COUNT(*) as observations, COALESCE(MIN(price), 0) as min_price, COALESCE(MAX(price), 0) as max_price, COALESCE(AVG(price), 0) as avg_price").
		Where("merchant_id = ? AND LOWER(product_name) = LOWER(?)", merchantID, product).
		Scan(&aggregate).Error; err != nil {
		return nil, err
	}

	summary := map[string]interface{}{
		"observations": aggregate.Observations,
		"min_price":    aggregate.MinPrice,
		"max_price":    aggregate.MaxPrice,
		"avg_price":    aggregate.AvgPrice,
	}

	var latest entities.PriceObservation
	err := r.db.WithContext(ctx).
		Where("merchant_id = ? AND LOWER(product_name) = LOWER(?)", merchantID, product).
		Order("observed_at desc").
		First(&latest).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		summary["latest_price"] = latest.Price
		summary["latest_at"] = latest.ObservedAt
	}

	return summary, nil
}
