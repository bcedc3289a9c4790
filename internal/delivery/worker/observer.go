package worker

import (
	"context"
	"log/slog"
	"time"

	"contactmap/internal/domain/service"
)

const publishTimeout = 10 * time.Second

// queueObserver reports geocoding queue progress to the logs and publishes
// batch summaries so out-of-process status displays stay current.
type queueObserver struct {
	logger    *slog.Logger
	publisher service.EventPublisher
}

// NewQueueObserver is the constructor for queueObserver.
func NewQueueObserver(logger *slog.Logger, publisher service.EventPublisher) service.QueueObserver {
	return &queueObserver{
		logger:    logger,
		publisher: publisher,
	}
}

func (o *queueObserver) BatchStarted(total int) {
	o.logger.Info("[Worker] Geocode batch started", slog.Int("total", total))
}

func (o *queueObserver) Progress(processed, total, depth int) {
	o.logger.Debug("[Worker] Geocode progress",
		slog.Int("processed", processed),
		slog.Int("total", total),
		slog.Int("depth", depth),
	)
}

func (o *queueObserver) BatchFinished(succeeded, failed int) {
	o.logger.Info("[Worker] Geocode batch finished",
		slog.Int("succeeded", succeeded),
		slog.Int("failed", failed),
	)

	if o.publisher == nil {
		return
	}

	// The worker loop must not block on publishing; bound it.
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	event := &service.GeocodeEvent{
		Event:     service.EventGeocodeBatchFinished,
		Succeeded: succeeded,
		Failed:    failed,
	}
	if err := o.publisher.PublishGeocodeEvent(ctx, event); err != nil {
		o.logger.Error("[Worker] Failed to publish batch summary", slog.Any("error", err))
	}
}

func (o *queueObserver) Denied(err error) {
	o.logger.Error("[Worker] Geocoding provider denied access; check credentials and usage policy",
		slog.Any("error", err),
	)
}
