// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"
	"time"

	"contactmap/internal/domain/entity"
	"contactmap/internal/errors"

	"github.com/google/uuid"
)

// Domain-specific errors for contact persistence.
var (
	// ErrContactNotFound is returned when a contact is not found.
	ErrContactNotFound = errors.New("contact not found")
	// ErrAddressIndexOutOfRange is returned when a geocode write targets an
	// address index the contact no longer has.
	ErrAddressIndexOutOfRange = errors.New("address index out of range")
)

// ContactRepository defines the interface for contact-related database
// operations. A contact owns an ordered collection of addresses; the
// collection is always replaced wholesale, never merged field-by-field.
type ContactRepository interface {
	// CreateContact persists a new contact with its addresses.
	CreateContact(ctx context.Context, contact *entity.Contact) error

	// FindContactByID retrieves a contact, addresses included, by its unique ID.
	FindContactByID(ctx context.Context, id uuid.UUID) (*entity.Contact, error)

	// FindContactByExternalID retrieves a contact by the identifier assigned
	// by the device address book. Returns ErrContactNotFound if absent.
	FindContactByExternalID(ctx context.Context, externalID string) (*entity.Contact, error)

	// ListContacts retrieves all contacts with their addresses, ordered by
	// display name.
	ListContacts(ctx context.Context) ([]*entity.Contact, error)

	// ReplaceAddresses replaces the contact's whole address collection with
	// the given one, preserving collection order, and updates the display
	// name. The replacement is atomic.
	ReplaceAddresses(ctx context.Context, contactID uuid.UUID, displayName string, addresses []entity.Address) error

	// UpdateAddressGeocode writes a geocoding result onto one address of a
	// contact, identified by its position in the collection. The four
	// geocode-metadata columns are written in a single statement. Returns
	// ErrAddressIndexOutOfRange when the position no longer exists.
	UpdateAddressGeocode(ctx context.Context, contactID uuid.UUID, position int, lat, lng float64, fieldsHash string, geocodedAt time.Time) error

	// DeleteContactsNotIn removes contacts whose external ID is not in the
	// given set. Used after a full import: the external source is
	// authoritative for which contacts exist.
	DeleteContactsNotIn(ctx context.Context, externalIDs []string) (int64, error)
}
