package entities

import (
	"time"

	"github.com/google/uuid"
)

type Receipt struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID       uuid.UUID `json:"user_id"`
	MerchantID   uuid.UUID `json:"merchant_id"`
	MerchantName string    `json:"merchant_name"` // denormalized for list reads
	Total        float64   `json:"total"`
	Date         time.Time `json:"date"`
	ImageURL     string    `json:"image_url,omitempty"`

	User     *User          `gorm:"foreignKey:UserID"`
	Merchant *Merchant      `gorm:"foreignKey:MerchantID"`
	Items    []*ReceiptItem `gorm:"foreignKey:ReceiptID"`
	Timestamp
}

type ReceiptItem struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	ReceiptID  uuid.UUID `json:"receipt_id"`
	Name       string    `json:"name"`
	Price      float64   `json:"price"`
	Quantity   int       `json:"quantity"`
	Category   string    `json:"category,omitempty"`
	Confidence float64   `json:"confidence"`

	Timestamp
}
