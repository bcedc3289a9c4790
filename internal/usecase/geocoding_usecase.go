package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// QueueStatus is a snapshot of the geocoding queue for status displays.
type QueueStatus struct {
	Running      bool          `json:"running"`
	Depth        int           `json:"depth"`
	Processed    int           `json:"processed"`
	Total        int           `json:"total"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	CurrentDelay time.Duration `json:"current_delay"`
}

// GeocodingUsecase exposes the manual controls of the geocoding queue.
type GeocodingUsecase interface {
	// Enqueue adds one (contact, address index) item. Idempotent: an item
	// already queued for the same pair is not added again.
	Enqueue(contactID uuid.UUID, addressIndex int)

	// ScanAndEnqueueAll enqueues every address of every contact that still
	// needs geocoding. Returns the number of items enqueued.
	ScanAndEnqueueAll(ctx context.Context) (int, error)

	// RetryFailed resets the failure counters and the backoff delay to the
	// floor, then rescans. Successes are not cleared.
	RetryFailed(ctx context.Context) (int, error)

	// Cancel halts the worker at the next iteration boundary and empties the
	// queue. In-flight calls are cancelled best-effort; no partial write is
	// made for a cancelled call.
	Cancel()

	// Status reports the queue's current state.
	Status() QueueStatus
}
