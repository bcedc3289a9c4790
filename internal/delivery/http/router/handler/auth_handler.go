// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"contactmap/internal/delivery/http/response"
	"contactmap/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// AuthHandler holds dependencies for device authentication handlers.
type AuthHandler struct {
	uc     usecase.AuthUsecase
	logger *slog.Logger
}

// NewAuthHandler is the constructor for AuthHandler, injected by Fx.
func NewAuthHandler(uc usecase.AuthUsecase, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		uc:     uc,
		logger: logger,
	}
}

type tokenRequest struct {
	DeviceID     string `json:"device_id" validate:"required"`
	DeviceSecret string `json:"device_secret" validate:"required"`
}

// IssueToken exchanges the shared device secret for a JWT pair.
func (h *AuthHandler) IssueToken(c echo.Context) error {
	var input tokenRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid token request")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	pair, err := h.uc.IssueTokens(c.Request().Context(), input.DeviceID, input.DeviceSecret)
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, pair, "Tokens issued successfully")
}
