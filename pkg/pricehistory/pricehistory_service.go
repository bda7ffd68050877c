package pricehistory

import (
	"context"
	"time"

	"ReceiptRadar-Backend/domain"
)

type (
	PriceHistoryService interface {
		GetProductHistory(ctx context.Context, merchantID string, product string, page, limit int) ([]domain.PriceObservationResponse, int64, error)
		GetProductSummary(ctx context.Context, merchantID string, product string) (domain.PriceSummaryResponse, error)
	}

	priceHistoryService struct {
		priceHistoryRepository PriceHistoryRepository
	}
)

func NewPriceHistoryService(priceHistoryRepository PriceHistoryRepository) PriceHistoryService {
	return &priceHistoryService{
		priceHistoryRepository: priceHistoryRepository,
	}
}

func (s *priceHistoryService) GetProductHistory(ctx context.Context, merchantID string, product string, page, limit int) ([]domain.PriceObservationResponse, int64, error) {
	observations, count, err := s.priceHistoryRepository.GetObservations(ctx, merchantID, product, page, limit)
	if err != nil {
		return nil, 0, err
	}

	var response []domain.PriceObservationResponse
	for _, obs := range observations {
		response = append(response, domain.PriceObservationResponse{
			ID:          obs.ID.String(),
			MerchantID:  obs.MerchantID.String(),
			ProductName: obs.ProductName,
			Price:       obs.Price,
			ObservedAt:  obs.ObservedAt,
			Source:      obs.Source,
		})
	}

	return response, count, nil
}

func (s *priceHistoryService) GetProductSummary(ctx context.Context, merchantID string, product string) (domain.PriceSummaryResponse, error) {
	summary, err := s.priceHistoryRepository.GetSummary(ctx, merchantID, product)
	if err != nil {
		return domain.PriceSummaryResponse{}, err
	}

	observations := summary["observations"].(int64)
	if observations == 0 {
		return domain.PriceSummaryResponse{}, domain.ErrNoObservations
	}

	response := domain.PriceSummaryResponse{
		MerchantID:   merchantID,
		ProductName:  product,
		Observations: observations,
		MinPrice:     summary["min_price"].(float64),
		MaxPrice:     summary["max_price"].(float64),
		AvgPrice:     summary["avg_price"].(float64),
	}
	if latest, ok := summary["latest_price"].(float64); ok {
		response.LatestPrice = latest
	}
	if latestAt, ok := summary["latest_at"].(time.Time); ok {
		response.LatestAt = latestAt
	}

	return response, nil
}
