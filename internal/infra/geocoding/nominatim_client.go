// Package geocoding implements the Geocoder domain service against a
// Nominatim-compatible HTTP API.
package geocoding

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"contactmap/config"
	"contactmap/internal/domain/service"

	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

const (
	defaultBaseURL   = "https://nominatim.openstreetmap.org/search"
	defaultUserAgent = "contactmap/1.0"

	// Results past the first are never used; keep responses small.
	resultLimit = "1"

	maxResponseBytes = 1 << 20
)

// nominatimClient implements service.Geocoder against the Nominatim search
// API using its structured-query parameters.
type nominatimClient struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNominatimClient is the constructor for nominatimClient.
func NewNominatimClient(cfg *config.Config, logger *slog.Logger) service.Geocoder {
	geo := cfg.GeocodingOrDefault()

	baseURL := geo.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	userAgent := geo.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &nominatimClient{
		baseURL:   baseURL,
		userAgent: userAgent,
		timeout:   geo.RequestTimeout,
		httpClient: &http.Client{
			Timeout: geo.RequestTimeout,
		},
		logger: logger,
	}
}

// nominatimResult is the subset of the search response we consume.
// Nominatim returns coordinates as strings.
type nominatimResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Geocode looks up one address and returns its coordinate. Provider
// responses are mapped onto the domain's sentinel errors so callers never
// inspect HTTP details.
func (c *nominatimClient) Geocode(ctx context.Context, query service.AddressQuery) (orb.Point, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, c.buildURL(query), nil)
	if err != nil {
		return orb.Point{}, errors.Wrap(err, "failed to build geocoding request")
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Propagate the caller's cancellation unchanged so the queue can
		// classify it; timeouts and transport failures stay ordinary.
		if ctx.Err() != nil {
			return orb.Point{}, ctx.Err()
		}

		return orb.Point{}, errors.Wrap(err, "geocoding request failed")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return orb.Point{}, errors.Wrapf(service.ErrRateLimited, "provider returned status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return orb.Point{}, errors.Wrapf(service.ErrPermissionDenied, "provider returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return orb.Point{}, errors.Errorf("provider returned unexpected status %d", resp.StatusCode)
	}

	var results []nominatimResult
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&results); err != nil {
		return orb.Point{}, errors.Wrap(err, "failed to decode geocoding response")
	}

	if len(results) == 0 {
		return orb.Point{}, service.ErrNoResult
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return orb.Point{}, errors.Wrap(err, "provider returned malformed latitude")
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return orb.Point{}, errors.Wrap(err, "provider returned malformed longitude")
	}

	c.logger.Debug("Geocoding lookup succeeded",
		slog.Float64("lat", lat),
		slog.Float64("lon", lon),
	)

	return orb.Point{lon, lat}, nil
}

// buildURL renders the structured search query. Empty fields are omitted;
// the queue never submits fully blank addresses.
func (c *nominatimClient) buildURL(query service.AddressQuery) string {
	params := url.Values{}
	params.Set("format", "jsonv2")
	params.Set("limit", resultLimit)

	if query.Street != "" {
		params.Set("street", query.Street)
	}
	if query.City != "" {
		params.Set("city", query.City)
	}
	if query.State != "" {
		params.Set("state", query.State)
	}
	if query.PostalCode != "" {
		params.Set("postalcode", query.PostalCode)
	}
	if query.Country != "" {
		params.Set("country", query.Country)
	}

	return c.baseURL + "?" + params.Encode()
}
