package entities

import (
	"time"

	"github.com/google/uuid"
)

// PriceObservation is one historical price data point for a product at a
// merchant. Product names are stored unnormalized, exactly as extracted.
type PriceObservation struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	MerchantID  uuid.UUID `json:"merchant_id"`
	ProductName string    `json:"product_name"`
	Price       float64   `json:"price"`
	ObservedAt  time.Time `json:"observed_at"`
	Source      string    `json:"source"` // "receipt"

	Merchant *Merchant `gorm:"foreignKey:MerchantID"`
	Timestamp
}
