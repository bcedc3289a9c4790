// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"

	"contactmap/internal/delivery/http/response"
	"contactmap/internal/domain/repository"
	"contactmap/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// ContactHandler holds dependencies for contact sync and read handlers.
type ContactHandler struct {
	uc     usecase.SyncUsecase
	logger *slog.Logger
}

// NewContactHandler is the constructor for ContactHandler, injected by Fx.
func NewContactHandler(uc usecase.SyncUsecase, logger *slog.Logger) *ContactHandler {
	return &ContactHandler{
		uc:     uc,
		logger: logger,
	}
}

type syncRequest struct {
	Contacts []usecase.ContactInput `json:"contacts" validate:"required,dive"`
}

// SyncContacts imports a full address-book snapshot. The snapshot is
// authoritative: contacts missing from it are removed.
func (h *ContactHandler) SyncContacts(c echo.Context) error {
	var input syncRequest
	if err := c.Bind(&input); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid sync payload")
	}
	if err := c.Validate(&input); err != nil {
		return err
	}

	result, err := h.uc.ImportContacts(c.Request().Context(), input.Contacts)
	if err != nil {
		return errors.WithStack(err)
	}

	h.logger.Info("Contact sync completed",
		slog.Int("imported", result.Imported),
		slog.Int64("removed", result.Removed),
		slog.Int("pending_geocode", result.PendingGeocode),
	)

	return response.Success(c, http.StatusOK, result, "Contacts synced successfully")
}

// ListContacts returns all stored contacts with their addresses.
func (h *ContactHandler) ListContacts(c echo.Context) error {
	contacts, err := h.uc.ListContacts(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, contacts, "")
}

// GetContact returns one contact by its ID.
func (h *ContactHandler) GetContact(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_CONTACT_ID", "Contact ID must be a UUID")
	}

	contact, err := h.uc.GetContact(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return response.NotFound(c, "CONTACT_NOT_FOUND", "Contact not found")
		}

		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, contact, "")
}
