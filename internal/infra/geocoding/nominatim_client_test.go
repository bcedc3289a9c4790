package geocoding

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"contactmap/config"
	"contactmap/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) service.Geocoder {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Geocoding: &config.GeocodingConfig{
			BaseURL:        server.URL,
			UserAgent:      "contactmap-test",
			RequestTimeout: 5 * time.Second,
		},
	}

	return NewNominatimClient(cfg, slog.New(slog.DiscardHandler))
}

func TestNominatimClient_Geocode(t *testing.T) {
	var gotQuery map[string]string

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"street":     r.URL.Query().Get("street"),
			"city":       r.URL.Query().Get("city"),
			"postalcode": r.URL.Query().Get("postalcode"),
			"format":     r.URL.Query().Get("format"),
			"user-agent": r.Header.Get("User-Agent"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"lat":"37.7749295","lon":"-122.4194155"}]`))
	})

	point, err := client.Geocode(context.Background(), service.AddressQuery{
		Street:     "1 Market St",
		City:       "San Francisco",
		PostalCode: "94105",
	})
	require.NoError(t, err)

	assert.InDelta(t, 37.7749295, point.Lat(), 1e-9)
	assert.InDelta(t, -122.4194155, point.Lon(), 1e-9)

	assert.Equal(t, "1 Market St", gotQuery["street"])
	assert.Equal(t, "San Francisco", gotQuery["city"])
	assert.Equal(t, "94105", gotQuery["postalcode"])
	assert.Equal(t, "jsonv2", gotQuery["format"])
	assert.Equal(t, "contactmap-test", gotQuery["user-agent"])
}

func TestNominatimClient_NoResult(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := client.Geocode(context.Background(), service.AddressQuery{City: "Nowhereville"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, service.ErrNoResult))
	assert.Equal(t, service.FailureNoResult, service.ClassifyFailure(err))
}

func TestNominatimClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name         string
		status       int
		wantSentinel error
		wantKind     service.FailureKind
	}{
		{"too many requests", http.StatusTooManyRequests, service.ErrRateLimited, service.FailureRateLimited},
		{"service unavailable", http.StatusServiceUnavailable, service.ErrRateLimited, service.FailureRateLimited},
		{"unauthorized", http.StatusUnauthorized, service.ErrPermissionDenied, service.FailureDenied},
		{"forbidden", http.StatusForbidden, service.ErrPermissionDenied, service.FailureDenied},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.Geocode(context.Background(), service.AddressQuery{City: "Anywhere"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantSentinel))
			assert.Equal(t, tt.wantKind, service.ClassifyFailure(err))
		})
	}
}

func TestNominatimClient_ServerErrorIsOrdinary(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := client.Geocode(context.Background(), service.AddressQuery{City: "Anywhere"})
	require.Error(t, err)
	assert.Equal(t, service.FailureOrdinary, service.ClassifyFailure(err))
}

func TestNominatimClient_CancelledContext(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Geocode(ctx, service.AddressQuery{City: "Anywhere"})
	require.Error(t, err)
	assert.Equal(t, service.FailureCancelled, service.ClassifyFailure(err))
}
