package domain

import (
	"errors"
	"time"
)

var (
	MessageSuccessGetPriceHistory = "price history retrieved successfully"
	MessageSuccessGetPriceSummary = "price summary retrieved successfully"
	MessageFailedGetPriceHistory  = "failed to retrieve price history"
	MessageFailedGetPriceSummary  = "failed to retrieve price summary"

	ErrNoObservations = errors.New("no price observations for product")
)

type (
	PriceObservationResponse struct {
		ID          string    `json:"id"`
		MerchantID  string    `json:"merchant_id"`
		ProductName string    `json:"product_name"`
		Price       float64   `json:"price"`
		ObservedAt  time.Time `json:"observed_at"`
		Source      string    `json:"source"`
	}

	PriceSummaryResponse struct {
		MerchantID   string    `json:"merchant_id"`
		ProductName  string    `json:"product_name"`
		Observations int64     `json:"observations"`
		MinPrice     float64   `json:"min_price"`
		MaxPrice     float64   `json:"max_price"`
		AvgPrice     float64   `json:"avg_price"`
		LatestPrice  float64   `json:"latest_price"`
		LatestAt     time.Time `json:"latest_at"`
	}
)
