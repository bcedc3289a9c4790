package entity

import (
	"time"

	"github.com/google/uuid"
)

// Contact is the owner entity for addresses: one imported address-book
// contact. Its ID is the stable opaque identifier used for queue
// de-duplication and logging; ExternalID is the identifier assigned by the
// device address book and is the unit of matching across sync cycles.
type Contact struct {
	ID          uuid.UUID `json:"id"`
	ExternalID  string    `json:"external_id"`
	DisplayName string    `json:"display_name"`
	Addresses   []Address `json:"addresses"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AddressAt returns the address at the given index, or nil when the index is
// out of range for the current collection. Queue items re-validate through
// this before any external call.
func (c *Contact) AddressAt(index int) *Address {
	if index < 0 || index >= len(c.Addresses) {
		return nil
	}

	return &c.Addresses[index]
}

// PendingAddressIndexes returns the indexes of all addresses that still need
// geocoding, in collection order.
func (c *Contact) PendingAddressIndexes() []int {
	var pending []int
	for i := range c.Addresses {
		if c.Addresses[i].NeedsGeocoding() {
			pending = append(pending, i)
		}
	}

	return pending
}
