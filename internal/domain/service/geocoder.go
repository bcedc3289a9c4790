// Package service defines domain service contracts implemented by the
// infrastructure layer.
package service

import (
	"context"

	"contactmap/internal/errors"

	"github.com/paulmach/orb"
)

// Sentinel errors the geocoding adapter maps provider responses onto.
// Classification of opaque provider errors is inherently provider-coupled,
// so it is isolated here: swapping the provider only means reimplementing
// the adapter's mapping onto these values.
var (
	// ErrNoResult means the provider found no match for a well-formed address.
	ErrNoResult = errors.New("geocoding: no result for address")
	// ErrRateLimited means the provider signalled throttling (or a proxy for
	// it, such as burst-correlated unavailability).
	ErrRateLimited = errors.New("geocoding: rate limited")
	// ErrPermissionDenied means the provider rejected our credentials or
	// usage policy; typically a deployment-wide condition, not per-address.
	ErrPermissionDenied = errors.New("geocoding: permission denied")
)

// AddressQuery carries the identity fields of one address to the provider.
type AddressQuery struct {
	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
}

// Geocoder converts one postal address into a coordinate. Implementations
// wrap an external lookup service; they must honor ctx cancellation and
// apply their own per-call timeout so a hung call cannot stall the caller
// indefinitely.
type Geocoder interface {
	Geocode(ctx context.Context, query AddressQuery) (orb.Point, error)
}

// FailureKind classifies a failed geocoding attempt for the queue's
// backoff and retry policy.
type FailureKind int

const (
	// FailureOrdinary is a normal transient failure, retry-eligible.
	FailureOrdinary FailureKind = iota
	// FailureNoResult is a transient-ish miss; retried, never proves throttling.
	FailureNoResult
	// FailureRateLimited triggers backoff escalation.
	FailureRateLimited
	// FailureCancelled is a deliberate cancellation; not counted as failure.
	FailureCancelled
	// FailureDenied is a permission/access denial; reported prominently, the
	// queue keeps attempting other items.
	FailureDenied
)

// ClassifyFailure maps a geocoding error onto a FailureKind.
func ClassifyFailure(err error) FailureKind {
	switch {
	case errors.Is(err, context.Canceled):
		return FailureCancelled
	case errors.Is(err, ErrRateLimited):
		return FailureRateLimited
	case errors.Is(err, ErrPermissionDenied):
		return FailureDenied
	case errors.Is(err, ErrNoResult):
		return FailureNoResult
	default:
		return FailureOrdinary
	}
}
