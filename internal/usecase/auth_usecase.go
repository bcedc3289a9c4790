package usecase

import "context"

// TokenPair carries the tokens issued to a device.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthUsecase exchanges the shared device secret for JWTs.
type AuthUsecase interface {
	// IssueTokens verifies the device secret and issues a token pair.
	IssueTokens(ctx context.Context, deviceID, deviceSecret string) (*TokenPair, error)
}
