package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"contactmap/config"
	"contactmap/internal/domain/repository"
	"contactmap/internal/domain/service"
	"contactmap/internal/errors"
	"contactmap/internal/usecase"
	"contactmap/internal/util"

	"github.com/google/uuid"
)

// queueItem identifies one address awaiting geocoding: the owning contact
// and the address's index in that contact's collection. Transient; never
// persisted.
type queueItem struct {
	contactID    uuid.UUID
	addressIndex int
}

// geocodeQueue drains (contact, address index) items strictly sequentially
// through the external geocoder, with a mandatory minimum delay between
// external calls. The delay grows exponentially on rate-limit signals or
// repeated failures and decays back toward the floor on sustained success.
//
// Only one worker goroutine exists per queue; it suspends in exactly two
// places: awaiting the geocoder call and waiting out the inter-request
// delay. Enqueue is safe to call while the worker drains.
type geocodeQueue struct {
	repo     repository.ContactRepository
	geocoder service.Geocoder
	observer service.QueueObserver
	logger   *slog.Logger
	clk      clock

	minDelay          time.Duration
	maxDelay          time.Duration
	failureThreshold  int
	backoffMultiplier float64
	decayMultiplier   float64

	mu             sync.Mutex
	items          []queueItem
	queued         map[queueItem]struct{}
	running        bool
	cancelRun      context.CancelFunc
	delay          time.Duration
	consecFailures int
	succeeded      int // cumulative across drain cycles
	failed         int
	processed      int // current drain cycle
	total          int
	batchSucceeded int
	batchFailed    int
}

// NewGeocodeQueue creates the geocoding queue from configuration.
func NewGeocodeQueue(
	cfg *config.Config,
	repo repository.ContactRepository,
	geocoder service.Geocoder,
	observer service.QueueObserver,
	logger *slog.Logger,
) usecase.GeocodingUsecase {
	return newGeocodeQueue(cfg.GeocodingOrDefault(), repo, geocoder, observer, logger, realClock{})
}

func newGeocodeQueue(
	geo *config.GeocodingConfig,
	repo repository.ContactRepository,
	geocoder service.Geocoder,
	observer service.QueueObserver,
	logger *slog.Logger,
	clk clock,
) *geocodeQueue {
	if observer == nil {
		observer = service.NopQueueObserver{}
	}

	return &geocodeQueue{
		repo:              repo,
		geocoder:          geocoder,
		observer:          observer,
		logger:            logger,
		clk:               clk,
		minDelay:          geo.MinInterRequestDelay,
		maxDelay:          geo.MaxInterRequestDelay,
		failureThreshold:  geo.ConsecutiveFailureThreshold,
		backoffMultiplier: geo.BackoffMultiplier,
		decayMultiplier:   geo.DecayMultiplier,
		queued:            make(map[queueItem]struct{}),
		delay:             geo.MinInterRequestDelay,
	}
}

// Enqueue appends one item to the FIFO, starting the worker if the queue was
// idle. Enqueueing an already-queued (contact, index) pair is a no-op.
func (q *geocodeQueue) Enqueue(contactID uuid.UUID, addressIndex int) {
	q.enqueue(queueItem{contactID: contactID, addressIndex: addressIndex})
}

func (q *geocodeQueue) enqueue(item queueItem) bool {
	q.mu.Lock()

	if _, exists := q.queued[item]; exists {
		q.mu.Unlock()

		return false
	}

	q.items = append(q.items, item)
	q.queued[item] = struct{}{}

	if q.running {
		q.total++
		q.mu.Unlock()

		return true
	}

	// Idle -> Processing.
	q.running = true
	q.processed = 0
	q.total = len(q.items)
	q.batchSucceeded = 0
	q.batchFailed = 0

	runCtx, cancel := context.WithCancel(context.Background())
	q.cancelRun = cancel
	total := q.total
	q.mu.Unlock()

	q.observer.BatchStarted(total)
	go q.run(runCtx)

	return true
}

// ScanAndEnqueueAll enqueues every pending address of every contact.
func (q *geocodeQueue) ScanAndEnqueueAll(ctx context.Context) (int, error) {
	contacts, err := q.repo.ListContacts(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "failed to list contacts for geocode scan")
	}

	enqueued := 0
	for _, contact := range contacts {
		for _, index := range contact.PendingAddressIndexes() {
			if q.enqueue(queueItem{contactID: contact.ID, addressIndex: index}) {
				enqueued++
			}
		}
	}

	if enqueued > 0 {
		q.logger.Info("Geocode scan enqueued pending addresses", slog.Int("enqueued", enqueued))
	}

	return enqueued, nil
}

// RetryFailed resets the failure counters and backoff to the floor, then
// rescans. Cumulative successes are kept.
func (q *geocodeQueue) RetryFailed(ctx context.Context) (int, error) {
	q.mu.Lock()
	q.failed = 0
	q.consecFailures = 0
	q.delay = q.minDelay
	q.mu.Unlock()

	return q.ScanAndEnqueueAll(ctx)
}

// Cancel empties the queue and halts the worker at its next safe point.
func (q *geocodeQueue) Cancel() {
	q.mu.Lock()
	q.items = nil
	q.queued = make(map[queueItem]struct{})
	cancel := q.cancelRun
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Status reports a snapshot of the queue.
func (q *geocodeQueue) Status() usecase.QueueStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	return usecase.QueueStatus{
		Running:      q.running,
		Depth:        len(q.items),
		Processed:    q.processed,
		Total:        q.total,
		Succeeded:    q.succeeded,
		Failed:       q.failed,
		CurrentDelay: q.delay,
	}
}

// run is the worker loop. It exits when the queue drains or the run context
// is cancelled; both paths transition back to idle and emit a batch summary.
func (q *geocodeQueue) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			q.finish("cancelled")

			return
		}

		q.mu.Lock()
		if len(q.items) == 0 {
			q.mu.Unlock()
			q.finish("drained")

			return
		}
		item := q.items[0]
		q.items = q.items[1:]
		delete(q.queued, item)
		q.mu.Unlock()

		q.process(ctx, item)
	}
}

func (q *geocodeQueue) finish(reason string) {
	q.mu.Lock()
	q.running = false
	q.cancelRun = nil
	succeeded, failed := q.batchSucceeded, q.batchFailed
	q.mu.Unlock()

	q.logger.Info("Geocode batch finished",
		slog.String("reason", reason),
		slog.Int("succeeded", succeeded),
		slog.Int("failed", failed),
	)
	q.observer.BatchFinished(succeeded, failed)
}

// process handles one dequeued item: re-validate, call the geocoder, write
// the result, adjust backoff, report progress, and wait out the delay.
func (q *geocodeQueue) process(ctx context.Context, item queueItem) {
	contact, err := q.repo.FindContactByID(ctx, item.contactID)
	if err != nil {
		// The owner disappeared between enqueue and processing; discard
		// without an external call or delay.
		q.logger.Debug("Discarding queue item for missing contact",
			slog.String("contact_id", item.contactID.String()),
			slog.Any("error", err),
		)
		q.advance(false, false)

		return
	}

	addr := contact.AddressAt(item.addressIndex)
	if addr == nil || !addr.NeedsGeocoding() {
		// Already resolved by a concurrent path, or the index no longer
		// exists. Skip silently; no external call, no delay.
		q.advance(false, false)

		return
	}

	if addr.IsBlank() {
		// Permanent for this content: nothing to submit. Counted as a
		// failure but never feeds backoff, and no delay is owed since no
		// external call was made.
		q.logger.Warn("Address has no usable identity fields, skipping geocode",
			slog.String("contact_id", item.contactID.String()),
			slog.Int("address_index", item.addressIndex),
		)
		q.advance(false, true)

		return
	}

	// Work on a copy of the exact instance being submitted so the stored
	// hash can never describe fields mutated mid-flight.
	submitted := *addr
	fieldsHash := submitted.FieldsHash()

	point, err := q.geocoder.Geocode(ctx, service.AddressQuery{
		Street:     submitted.Street,
		City:       submitted.City,
		State:      submitted.State,
		PostalCode: submitted.PostalCode,
		Country:    submitted.Country,
	})
	if err != nil {
		q.handleFailure(ctx, item, err)

		return
	}

	geocodedAt := q.clk.Now()
	if err := q.repo.UpdateAddressGeocode(ctx, item.contactID, item.addressIndex,
		point.Lat(), point.Lon(), fieldsHash, geocodedAt); err != nil {
		// The lookup succeeded but the result did not land; the address
		// still reads as pending, so the next scan retries it.
		q.logger.Error("Failed to persist geocoding result",
			slog.String("contact_id", item.contactID.String()),
			slog.Int("address_index", item.addressIndex),
			slog.Any("error", err),
		)
		q.recordFailure(false)
		q.advanceAndWait(ctx)

		return
	}

	q.mu.Lock()
	q.succeeded++
	q.batchSucceeded++
	q.consecFailures = 0
	if q.delay > q.minDelay {
		q.delay = maxDuration(q.minDelay, time.Duration(float64(q.delay)*q.decayMultiplier))
	}
	q.mu.Unlock()

	q.logger.Debug("Address geocoded",
		slog.String("contact_id", item.contactID.String()),
		slog.Int("address_index", item.addressIndex),
		slog.Float64("lat", point.Lat()),
		slog.Float64("lng", point.Lon()),
	)
	q.advanceAndWait(ctx)
}

func (q *geocodeQueue) handleFailure(ctx context.Context, item queueItem, err error) {
	switch service.ClassifyFailure(err) {
	case service.FailureCancelled:
		// Deliberate cancellation: not a failure, no backoff change. The
		// loop's next iteration observes the cancelled context.
		return

	case service.FailureRateLimited:
		q.logger.Warn("Geocoder signalled rate limiting",
			slog.String("contact_id", item.contactID.String()),
			slog.Any("error", err),
		)
		q.recordFailure(true)

	case service.FailureDenied:
		// Typically a deployment-wide condition; report prominently but keep
		// attempting other items.
		q.logger.Error("Geocoder denied access", slog.Any("error", err))
		q.observer.Denied(err)
		q.recordFailure(false)

	default:
		q.logger.Debug("Geocoding attempt failed",
			slog.String("contact_id", item.contactID.String()),
			slog.Int("address_index", item.addressIndex),
			slog.Any("error", err),
		)
		q.recordFailure(false)
	}

	q.advanceAndWait(ctx)
}

// recordFailure bumps the failure counters and escalates the delay when the
// failure was rate-limit-like or the consecutive-failure threshold is hit.
func (q *geocodeQueue) recordFailure(rateLimited bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.failed++
	q.batchFailed++
	q.consecFailures++

	if !rateLimited && q.consecFailures < q.failureThreshold {
		return
	}

	escalated := minDuration(q.maxDelay, time.Duration(float64(q.delay)*q.backoffMultiplier))
	if escalated != q.delay {
		q.delay = escalated
		q.logger.Warn("Geocode backoff escalated",
			slog.String("delay", util.FormatDuration(escalated)),
			slog.Int("consecutive_failures", q.consecFailures),
		)
	}
}

// advance records one processed item without waiting; used for discarded
// items that made no external call.
func (q *geocodeQueue) advance(succeeded, failed bool) {
	q.mu.Lock()
	q.processed++
	if succeeded {
		q.succeeded++
		q.batchSucceeded++
	}
	if failed {
		q.failed++
		q.batchFailed++
	}
	processed, total, depth := q.processed, q.total, len(q.items)
	q.mu.Unlock()

	q.observer.Progress(processed, total, depth)
}

// advanceAndWait reports progress and waits out the current inter-request
// delay; an external call was made, so the spacing floor applies.
func (q *geocodeQueue) advanceAndWait(ctx context.Context) {
	q.mu.Lock()
	q.processed++
	processed, total, depth := q.processed, q.total, len(q.items)
	delay := q.delay
	q.mu.Unlock()

	q.observer.Progress(processed, total, depth)

	// A cancelled wait just returns; the loop notices the context.
	_ = q.clk.Sleep(ctx, delay)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}

	return b
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}

	return b
}
