// Package handler contains the HTTP handlers for the application.
package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"contactmap/internal/delivery/http/response"
	"contactmap/internal/domain/repository"
	"contactmap/internal/domain/service"
	"contactmap/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// MapHandler holds dependencies for map pin and location-sharing handlers.
type MapHandler struct {
	mapUC  usecase.MapUsecase
	syncUC usecase.SyncUsecase
	qrSvc  service.QRCodeService
	logger *slog.Logger
}

// NewMapHandler is the constructor for MapHandler, injected by Fx.
func NewMapHandler(mapUC usecase.MapUsecase, syncUC usecase.SyncUsecase, qrSvc service.QRCodeService, logger *slog.Logger) *MapHandler {
	return &MapHandler{
		mapUC:  mapUC,
		syncUC: syncUC,
		qrSvc:  qrSvc,
		logger: logger,
	}
}

// Pins returns a GeoJSON FeatureCollection of all geocoded addresses,
// ready for the map UI to render.
func (h *MapHandler) Pins(c echo.Context) error {
	collection, err := h.mapUC.Pins(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, collection)
}

// LocationQR renders a QR code for one geocoded address so another device
// can open the pin in its own map app.
func (h *MapHandler) LocationQR(c echo.Context) error {
	contactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_CONTACT_ID", "Contact ID must be a UUID")
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		return response.BadRequest(c, "INVALID_ADDRESS_INDEX", "Address index must be a non-negative integer")
	}

	contact, err := h.syncUC.GetContact(c.Request().Context(), contactID)
	if err != nil {
		if errors.Is(err, repository.ErrContactNotFound) {
			return response.NotFound(c, "CONTACT_NOT_FOUND", "Contact not found")
		}

		return errors.WithStack(err)
	}

	addr := contact.AddressAt(index)
	if addr == nil {
		return response.NotFound(c, "ADDRESS_NOT_FOUND", "Address index out of range")
	}
	if !addr.HasValidCoordinates() {
		return response.Conflict(c, "ADDRESS_NOT_GEOCODED", "Address has no coordinates yet")
	}

	label := addr.Label
	if label == "" {
		label = contact.DisplayName
	}

	png, err := h.qrSvc.GenerateLocationQR(*addr.Latitude, *addr.Longitude, label)
	if err != nil {
		return errors.WithStack(err)
	}

	return c.Blob(http.StatusOK, "image/png", png)
}
