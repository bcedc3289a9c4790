package model

import (
	"time"

	"github.com/google/uuid"
)

// ContactAddressModel is the GORM-specific struct for the 'contact_addresses'
// table. Position records the address's index within the contact's ordered
// collection; the collection is replaced wholesale on every sync, so
// (contact_id, position) is unique.
type ContactAddressModel struct {
	ID         uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	ContactID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_contact_addresses_on_position"`
	Position   int       `gorm:"not null;uniqueIndex:idx_contact_addresses_on_position"`
	Label      string    `gorm:"type:varchar(100);not null;default:''"`
	Street     string    `gorm:"type:text;not null;default:''"`
	City       string    `gorm:"type:varchar(255);not null;default:''"`
	State      string    `gorm:"type:varchar(255);not null;default:''"`
	PostalCode string    `gorm:"type:varchar(50);not null;default:''"`
	Country    string    `gorm:"type:varchar(255);not null;default:''"`

	// Geocode metadata: all four are set together or not at all.
	Latitude           *float64   `gorm:"type:decimal(10,8)"`
	Longitude          *float64   `gorm:"type:decimal(11,8)"`
	GeocodedFieldsHash string     `gorm:"type:char(64);not null;default:''"`
	GeocodedAt         *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (ContactAddressModel) TableName() string {
	return "contact_addresses"
}
