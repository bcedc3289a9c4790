package service

import (
	"context"
)

// Event names carried in the "event" attribute of published messages.
const (
	EventGeocodeScanRequested = "geocode_scan_requested"
	EventGeocodeBatchFinished = "geocode_batch_finished"
)

// GeocodeEvent is the message exchanged between the API server and the geo
// worker. A scan-requested event asks the worker to scan all contacts and
// enqueue pending addresses; a batch-finished event reports a drain cycle's
// outcome for out-of-process status displays.
type GeocodeEvent struct {
	RequestID  string   `json:"request_id,omitempty"` // For distributed tracing
	Event      string   `json:"event"`
	ContactIDs []string `json:"contact_ids,omitempty"` // Contacts touched by the import, if known
	Succeeded  int      `json:"succeeded,omitempty"`
	Failed     int      `json:"failed,omitempty"`
}

// EventPublisher defines the interface for publishing events to a message queue
type EventPublisher interface {
	// PublishGeocodeEvent publishes a geocode event for async processing
	PublishGeocodeEvent(ctx context.Context, event *GeocodeEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
