// Package handler contains the worker's HTTP handlers.
package handler

import (
	"log/slog"
	"net/http"

	"contactmap/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// GeocodeHandler exposes manual controls over the geocoding queue.
type GeocodeHandler struct {
	uc     usecase.GeocodingUsecase
	logger *slog.Logger
}

// NewGeocodeHandler is the constructor for GeocodeHandler, injected by Fx.
func NewGeocodeHandler(uc usecase.GeocodingUsecase, logger *slog.Logger) *GeocodeHandler {
	return &GeocodeHandler{
		uc:     uc,
		logger: logger,
	}
}

// Status reports the queue's current state.
func (h *GeocodeHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.uc.Status())
}

// Scan enqueues every address that still needs geocoding.
func (h *GeocodeHandler) Scan(c echo.Context) error {
	enqueued, err := h.uc.ScanAndEnqueueAll(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	return c.JSON(http.StatusOK, map[string]int{"enqueued": enqueued})
}

// Retry clears failure state and rescans.
func (h *GeocodeHandler) Retry(c echo.Context) error {
	enqueued, err := h.uc.RetryFailed(c.Request().Context())
	if err != nil {
		return errors.WithStack(err)
	}

	h.logger.Info("[Worker] Retry requested", slog.Int("enqueued", enqueued))

	return c.JSON(http.StatusOK, map[string]int{"enqueued": enqueued})
}

// Cancel empties the queue and halts the worker at its next safe point.
func (h *GeocodeHandler) Cancel(c echo.Context) error {
	h.uc.Cancel()
	h.logger.Info("[Worker] Queue cancelled")

	return c.NoContent(http.StatusNoContent)
}
