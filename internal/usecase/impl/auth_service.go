package impl

import (
	"context"
	"log/slog"

	"contactmap/config"
	"contactmap/internal/domain/errors"
	"contactmap/internal/domain/service"
	"contactmap/internal/usecase"
)

type authService struct {
	tokenService     service.TokenService
	secretHasher     service.SecretHasher
	deviceSecretHash string
	logger           *slog.Logger
}

// NewAuthService creates the device authentication usecase.
func NewAuthService(
	cfg *config.Config,
	tokenService service.TokenService,
	secretHasher service.SecretHasher,
	logger *slog.Logger,
) usecase.AuthUsecase {
	return &authService{
		tokenService:     tokenService,
		secretHasher:     secretHasher,
		deviceSecretHash: cfg.Auth.DeviceSecretHash,
		logger:           logger,
	}
}

func (s *authService) IssueTokens(_ context.Context, deviceID, deviceSecret string) (*usecase.TokenPair, error) {
	if !s.secretHasher.Check(deviceSecret, s.deviceSecretHash) {
		s.logger.Warn("Device presented an invalid secret", slog.String("device_id", deviceID))

		return nil, errors.ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.tokenService.GenerateTokens(deviceID)
	if err != nil {
		return nil, errors.ErrInternalError.WrapMessage("failed to generate tokens")
	}

	return &usecase.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
