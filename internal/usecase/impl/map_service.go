package impl

import (
	"context"

	"contactmap/internal/domain/repository"
	"contactmap/internal/errors"
	"contactmap/internal/usecase"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

type mapService struct {
	contactRepo repository.ContactRepository
}

// NewMapService creates the map pins usecase.
func NewMapService(contactRepo repository.ContactRepository) usecase.MapUsecase {
	return &mapService{contactRepo: contactRepo}
}

func (s *mapService) Pins(ctx context.Context) (*geojson.FeatureCollection, error) {
	contacts, err := s.contactRepo.ListContacts(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list contacts for map pins")
	}

	collection := geojson.NewFeatureCollection()

	for _, contact := range contacts {
		for index, addr := range contact.Addresses {
			if !addr.HasValidCoordinates() {
				continue
			}

			feature := geojson.NewFeature(orb.Point{*addr.Longitude, *addr.Latitude})
			feature.Properties = geojson.Properties{
				"contact_id":    contact.ID.String(),
				"display_name":  contact.DisplayName,
				"label":         addr.Label,
				"address_index": index,
			}
			if addr.GeocodedAt != nil {
				feature.Properties["geocoded_at"] = addr.GeocodedAt
			}

			collection.Append(feature)
		}
	}

	return collection, nil
}
