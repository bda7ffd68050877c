package entities

import (
	"github.com/google/uuid"
)

type User struct {
	ID    uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name  string    `json:"name"`
	Email string    `gorm:"unique" json:"email"`

	Timestamp
}
