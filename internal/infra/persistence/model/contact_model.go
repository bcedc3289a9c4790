package model

import (
	"time"

	"github.com/google/uuid"
)

// ContactModel is the GORM-specific struct for the 'contacts' table.
// It represents one imported address-book contact.
type ContactModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	ExternalID  string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	DisplayName string    `gorm:"type:varchar(255);not null"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName explicitly sets the table name for GORM.
func (ContactModel) TableName() string {
	return "contacts"
}
