package usecase

import (
	"context"

	"contactmap/internal/domain/entity"

	"github.com/google/uuid"
)

// AddressInput is one freshly observed address from the device address book:
// label plus the five identity fields, no geocoding metadata.
type AddressInput struct {
	Label      string `json:"label"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// ContactInput is one contact as observed by the device on a sync cycle.
type ContactInput struct {
	ExternalID  string         `json:"external_id"`
	DisplayName string         `json:"display_name"`
	Addresses   []AddressInput `json:"addresses"`
}

// SyncResult summarizes one import cycle.
type SyncResult struct {
	Imported       int         `json:"imported"`
	Removed        int64       `json:"removed"`
	PendingGeocode int         `json:"pending_geocode"`
	ContactIDs     []uuid.UUID `json:"contact_ids"`
}

// SyncUsecase defines the contact import and read use cases. The incoming
// batch is authoritative: contacts and addresses absent from it are dropped,
// while geocoding results are carried forward for addresses whose identity
// fields are unchanged.
type SyncUsecase interface {
	ImportContacts(ctx context.Context, batch []ContactInput) (*SyncResult, error)
	ListContacts(ctx context.Context) ([]*entity.Contact, error)
	GetContact(ctx context.Context, id uuid.UUID) (*entity.Contact, error)
}
