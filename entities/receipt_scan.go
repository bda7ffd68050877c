package entities

import (
	"github.com/google/uuid"
)

type ReceiptScan struct {
	ID       uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	ImageURL string    `json:"image_url"`
	Status   string    `json:"status"` // "Processing", "Processed", "Rejected", "Failed"
	Stage    string    `json:"stage"`  // current ingestion stage, for progress polling
	Result   string    `json:"result,omitempty" gorm:"type:text"`

	// ReceiptID is back-filled by the background save once the header lands.
	ReceiptID *uuid.UUID `json:"receipt_id,omitempty"`

	User    *User    `gorm:"foreignKey:UserID"`
	Receipt *Receipt `gorm:"foreignKey:ReceiptID"`
	Timestamp
}
