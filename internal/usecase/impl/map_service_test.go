package impl

import (
	"context"
	"testing"
	"time"

	"contactmap/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapService_PinsOnlyValidCoordinates(t *testing.T) {
	geocoded := entity.Address{Label: "home", Street: "123 Main St", City: "Springfield"}
	geocoded.SetCoordinates(39.7817, -89.6501, geocoded.FieldsHash(), time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))

	// Geocoded once, then the street changed: the stored hash no longer
	// matches, so the pin must not be rendered at the stale location.
	stale := entity.Address{Label: "work", Street: "456 Oak Ave", City: "Springfield"}
	stale.SetCoordinates(39.80, -89.60, stale.FieldsHash(), time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	stale.Street = "789 Elm Rd"

	pending := entity.Address{Label: "cabin", Street: "1 Lake Way", City: "Petersburg"}

	contact := &entity.Contact{
		ID:          uuid.New(),
		ExternalID:  "device-1",
		DisplayName: "Alice Chen",
		Addresses:   []entity.Address{geocoded, stale, pending},
	}
	repo := newStubContactRepo(contact)

	collection, err := NewMapService(repo).Pins(context.Background())
	require.NoError(t, err)
	require.Len(t, collection.Features, 1)

	feature := collection.Features[0]
	point := feature.Point()
	assert.InDelta(t, -89.6501, point.Lon(), 1e-9)
	assert.InDelta(t, 39.7817, point.Lat(), 1e-9)
	assert.Equal(t, contact.ID.String(), feature.Properties["contact_id"])
	assert.Equal(t, "Alice Chen", feature.Properties["display_name"])
	assert.Equal(t, "home", feature.Properties["label"])
	assert.Equal(t, 0, feature.Properties["address_index"])
}

func TestMapService_PinsEmptyDatabase(t *testing.T) {
	collection, err := NewMapService(newStubContactRepo()).Pins(context.Background())
	require.NoError(t, err)
	assert.Empty(t, collection.Features)
}
