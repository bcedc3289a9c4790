package usecase

import (
	"context"

	"github.com/paulmach/orb/geojson"
)

// MapUsecase serves the geocoded pins the map UI renders.
type MapUsecase interface {
	// Pins returns a GeoJSON FeatureCollection with one point feature per
	// address that currently has valid coordinates.
	Pins(ctx context.Context) (*geojson.FeatureCollection, error)
}
