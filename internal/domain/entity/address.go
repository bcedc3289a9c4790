// Package entity contains the core business objects of the project.
package entity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// fieldsHashSeparator joins the normalized identity fields before hashing.
// The unit separator is not expected to occur in postal address text.
const fieldsHashSeparator = "\x1f"

// Address is one postal address belonging to a contact, together with its
// geocoding state. The five identity fields (street, city, state, postal
// code, country) determine whether two addresses are "the same" for
// geocoding-validity purposes; the label is presentation only.
type Address struct {
	Label      string `json:"label"`
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`

	// Geocoding result. Set together by SetCoordinates, never piecemeal.
	Latitude           *float64   `json:"latitude,omitempty"`
	Longitude          *float64   `json:"longitude,omitempty"`
	GeocodedFieldsHash string     `json:"geocoded_fields_hash,omitempty"`
	GeocodedAt         *time.Time `json:"geocoded_at,omitempty"`
}

// FieldsHash returns a deterministic digest of the five identity fields.
// Each field is trimmed of surrounding whitespace and lowercased, the fields
// are joined in fixed order and hashed with SHA-256, rendered as lowercase
// hex. The digest is stable across processes and machines for identical
// normalized input; it must never be replaced with a per-process-seeded hash.
func (a *Address) FieldsHash() string {
	joined := strings.Join([]string{
		normalizeField(a.Street),
		normalizeField(a.City),
		normalizeField(a.State),
		normalizeField(a.PostalCode),
		normalizeField(a.Country),
	}, fieldsHashSeparator)

	sum := sha256.Sum256([]byte(joined))

	return hex.EncodeToString(sum[:])
}

// HasValidCoordinates reports whether the stored coordinate still applies to
// the current identity fields: a coordinate is present and the hash recorded
// at geocoding time equals the hash of the fields as they are now.
func (a *Address) HasValidCoordinates() bool {
	if a.Latitude == nil || a.Longitude == nil || a.GeocodedFieldsHash == "" {
		return false
	}

	return a.GeocodedFieldsHash == a.FieldsHash()
}

// NeedsGeocoding reports whether the address should be (re-)geocoded.
func (a *Address) NeedsGeocoding() bool {
	return !a.HasValidCoordinates()
}

// IsBlank reports whether all five identity fields are empty after trimming.
// Blank addresses are never submitted to the geocoding provider.
func (a *Address) IsBlank() bool {
	return normalizeField(a.Street) == "" &&
		normalizeField(a.City) == "" &&
		normalizeField(a.State) == "" &&
		normalizeField(a.PostalCode) == "" &&
		normalizeField(a.Country) == ""
}

// SetCoordinates writes a geocoding result onto the address as one unit.
// The hash must be the FieldsHash of the address instance that was actually
// submitted to the provider, not one recomputed after later mutation.
func (a *Address) SetCoordinates(lat, lng float64, fieldsHash string, at time.Time) {
	a.Latitude = &lat
	a.Longitude = &lng
	a.GeocodedFieldsHash = fieldsHash
	a.GeocodedAt = &at
}

// IdentityEquals reports whether two addresses carry the same identity
// fields under the hash normalization (trim + lowercase).
func (a *Address) IdentityEquals(other *Address) bool {
	return normalizeField(a.Street) == normalizeField(other.Street) &&
		normalizeField(a.City) == normalizeField(other.City) &&
		normalizeField(a.State) == normalizeField(other.State) &&
		normalizeField(a.PostalCode) == normalizeField(other.PostalCode) &&
		normalizeField(a.Country) == normalizeField(other.Country)
}

func normalizeField(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
