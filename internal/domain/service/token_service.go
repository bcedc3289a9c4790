package service

import (
	"time"
)

// TokenService defines the interface for generating and validating the JWTs
// that authenticate synced devices against the API.
type TokenService interface {
	// GenerateTokens creates a new access token and refresh token for a device.
	GenerateTokens(deviceID string) (accessToken string, refreshToken string, err error)

	// ValidateAccessToken checks an access token and returns the device ID it
	// was issued to.
	ValidateAccessToken(tokenString string) (deviceID string, err error)

	// GetRefreshTokenDuration returns the configured duration for refresh tokens.
	GetRefreshTokenDuration() time.Duration
}
