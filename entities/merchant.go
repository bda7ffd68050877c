package entities

import (
	"github.com/google/uuid"
)

// Merchant is deduplicated by name, case-insensitively. The migration adds a
// unique index on LOWER(name) so a concurrent first-time insert surfaces as a
// unique violation instead of a silent duplicate.
type Merchant struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name string    `gorm:"not null" json:"name"`

	Timestamp
}
