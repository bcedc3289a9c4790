package impl

import (
	"contactmap/internal/domain/entity"
	"contactmap/internal/usecase"
)

// ReconcileAddresses merges a freshly imported address list into a contact's
// stored one. For each incoming item it looks for a previous address whose
// five identity fields are exactly equal under the hash normalization
// (trim + lowercase) and, if found, carries the geocoding metadata forward
// verbatim under the incoming label. Anything new or changed comes out with
// the metadata unset, which forces re-geocoding.
//
// The output is ordered as the incoming list; previous entries with no
// incoming counterpart are dropped - the external source is authoritative
// for which addresses exist. Matching is first-match, not best-match: when
// the previous list holds duplicate identity fields under different labels,
// the first unconsumed occurrence wins. That tie-break is a compatibility
// guarantee, not an accident.
func ReconcileAddresses(previous []entity.Address, incoming []usecase.AddressInput) []entity.Address {
	consumed := make([]bool, len(previous))
	result := make([]entity.Address, 0, len(incoming))

	for _, in := range incoming {
		next := entity.Address{
			Label:      in.Label,
			Street:     in.Street,
			City:       in.City,
			State:      in.State,
			PostalCode: in.PostalCode,
			Country:    in.Country,
		}

		for i := range previous {
			if consumed[i] || !previous[i].IdentityEquals(&next) {
				continue
			}

			next.Latitude = previous[i].Latitude
			next.Longitude = previous[i].Longitude
			next.GeocodedFieldsHash = previous[i].GeocodedFieldsHash
			next.GeocodedAt = previous[i].GeocodedAt
			consumed[i] = true

			break
		}

		result = append(result, next)
	}

	return result
}
