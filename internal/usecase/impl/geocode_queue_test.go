package impl

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"contactmap/config"
	"contactmap/internal/domain/entity"
	"contactmap/internal/domain/repository"
	"contactmap/internal/domain/service"
	"contactmap/internal/errors"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWait = 5 * time.Second

// fakeClock records sleeps instead of waiting them out, so backoff behavior
// is asserted on recorded durations rather than wall time.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()

	return ctx.Err()
}

func (c *fakeClock) sleepDurations() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]time.Duration(nil), c.sleeps...)
}

type geoUpdate struct {
	contactID  uuid.UUID
	position   int
	lat, lng   float64
	fieldsHash string
	geocodedAt time.Time
}

// stubContactRepo is an in-memory ContactRepository good enough for the
// queue: lookups return copies, geocode updates are recorded and applied.
type stubContactRepo struct {
	mu       sync.Mutex
	contacts map[uuid.UUID]*entity.Contact
	updates  []geoUpdate
	listErr  error
}

func newStubContactRepo(contacts ...*entity.Contact) *stubContactRepo {
	repo := &stubContactRepo{contacts: make(map[uuid.UUID]*entity.Contact)}
	for _, contact := range contacts {
		repo.contacts[contact.ID] = contact
	}

	return repo
}

func copyContact(c *entity.Contact) *entity.Contact {
	clone := *c
	clone.Addresses = append([]entity.Address(nil), c.Addresses...)

	return &clone
}

func (r *stubContactRepo) CreateContact(_ context.Context, contact *entity.Contact) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts[contact.ID] = copyContact(contact)

	return nil
}

func (r *stubContactRepo) FindContactByID(_ context.Context, id uuid.UUID) (*entity.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contact, ok := r.contacts[id]
	if !ok {
		return nil, repository.ErrContactNotFound
	}

	return copyContact(contact), nil
}

func (r *stubContactRepo) FindContactByExternalID(_ context.Context, externalID string) (*entity.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, contact := range r.contacts {
		if contact.ExternalID == externalID {
			return copyContact(contact), nil
		}
	}

	return nil, repository.ErrContactNotFound
}

func (r *stubContactRepo) ListContacts(_ context.Context) ([]*entity.Contact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.listErr != nil {
		return nil, r.listErr
	}

	contacts := make([]*entity.Contact, 0, len(r.contacts))
	for _, contact := range r.contacts {
		contacts = append(contacts, copyContact(contact))
	}

	return contacts, nil
}

func (r *stubContactRepo) ReplaceAddresses(_ context.Context, contactID uuid.UUID, displayName string, addresses []entity.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contact, ok := r.contacts[contactID]
	if !ok {
		return repository.ErrContactNotFound
	}
	contact.DisplayName = displayName
	contact.Addresses = append([]entity.Address(nil), addresses...)

	return nil
}

func (r *stubContactRepo) UpdateAddressGeocode(_ context.Context, contactID uuid.UUID, position int, lat, lng float64, fieldsHash string, geocodedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	contact, ok := r.contacts[contactID]
	if !ok || position < 0 || position >= len(contact.Addresses) {
		return repository.ErrAddressIndexOutOfRange
	}

	contact.Addresses[position].SetCoordinates(lat, lng, fieldsHash, geocodedAt)
	r.updates = append(r.updates, geoUpdate{
		contactID:  contactID,
		position:   position,
		lat:        lat,
		lng:        lng,
		fieldsHash: fieldsHash,
		geocodedAt: geocodedAt,
	})

	return nil
}

func (r *stubContactRepo) DeleteContactsNotIn(_ context.Context, externalIDs []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	keep := make(map[string]struct{}, len(externalIDs))
	for _, id := range externalIDs {
		keep[id] = struct{}{}
	}

	var removed int64
	for id, contact := range r.contacts {
		if _, ok := keep[contact.ExternalID]; !ok {
			delete(r.contacts, id)
			removed++
		}
	}

	return removed, nil
}

func (r *stubContactRepo) recordedUpdates() []geoUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]geoUpdate(nil), r.updates...)
}

// scriptedGeocoder returns scripted results in call order. With a gate it
// blocks each call until released, which lets tests line items up
// deterministically while the worker is mid-call.
type scriptedGeocoder struct {
	mu      sync.Mutex
	script  []func() (orb.Point, error)
	calls   int
	started chan struct{}
	proceed chan struct{}
}

func (g *scriptedGeocoder) Geocode(ctx context.Context, _ service.AddressQuery) (orb.Point, error) {
	if g.started != nil {
		g.started <- struct{}{}
	}
	if g.proceed != nil {
		select {
		case <-ctx.Done():
			return orb.Point{}, ctx.Err()
		case <-g.proceed:
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	call := g.calls
	g.calls++
	if call < len(g.script) {
		return g.script[call]()
	}

	return orb.Point{}, errors.New("geocoder script exhausted")
}

func (g *scriptedGeocoder) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.calls
}

func succeedWith(lng, lat float64) func() (orb.Point, error) {
	return func() (orb.Point, error) {
		return orb.Point{lng, lat}, nil
	}
}

func failWith(err error) func() (orb.Point, error) {
	return func() (orb.Point, error) {
		return orb.Point{}, err
	}
}

// recordingObserver captures queue reports; finished is buffered so the
// worker never blocks on it.
type recordingObserver struct {
	mu            sync.Mutex
	startedTotals []int
	finishedPairs [][2]int
	denied        []error
	finished      chan struct{}
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{finished: make(chan struct{}, 16)}
}

func (o *recordingObserver) BatchStarted(total int) {
	o.mu.Lock()
	o.startedTotals = append(o.startedTotals, total)
	o.mu.Unlock()
}

func (o *recordingObserver) Progress(int, int, int) {}

func (o *recordingObserver) BatchFinished(succeeded, failed int) {
	o.mu.Lock()
	o.finishedPairs = append(o.finishedPairs, [2]int{succeeded, failed})
	o.mu.Unlock()
	o.finished <- struct{}{}
}

func (o *recordingObserver) Denied(err error) {
	o.mu.Lock()
	o.denied = append(o.denied, err)
	o.mu.Unlock()
}

func (o *recordingObserver) waitFinished(t *testing.T) {
	t.Helper()

	select {
	case <-o.finished:
	case <-time.After(testWait):
		t.Fatal("timed out waiting for the batch to finish")
	}
}

func (o *recordingObserver) lastFinished(t *testing.T) [2]int {
	t.Helper()

	o.mu.Lock()
	defer o.mu.Unlock()

	require.NotEmpty(t, o.finishedPairs)

	return o.finishedPairs[len(o.finishedPairs)-1]
}

func testGeoConfig() *config.GeocodingConfig {
	return &config.GeocodingConfig{
		MinInterRequestDelay:        time.Second,
		MaxInterRequestDelay:        60 * time.Second,
		ConsecutiveFailureThreshold: 3,
		BackoffMultiplier:           2.0,
		DecayMultiplier:             0.8,
		RequestTimeout:              5 * time.Second,
	}
}

func pendingContact(addresses ...entity.Address) *entity.Contact {
	return &entity.Contact{
		ID:          uuid.New(),
		ExternalID:  "ext-" + uuid.NewString(),
		DisplayName: "Test Contact",
		Addresses:   addresses,
	}
}

func newTestQueue(repo repository.ContactRepository, geocoder service.Geocoder, observer service.QueueObserver, clk clock) *geocodeQueue {
	return newGeocodeQueue(testGeoConfig(), repo, geocoder, observer, slog.New(slog.DiscardHandler), clk)
}

func TestGeocodeQueue_SuccessPersistsResultAndHash(t *testing.T) {
	contact := pendingContact(entity.Address{Label: "home", Street: "123 Main St", City: "Springfield"})
	repo := newStubContactRepo(contact)
	geocoder := &scriptedGeocoder{script: []func() (orb.Point, error){succeedWith(-89.6501, 39.7817)}}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)
	queue.Enqueue(contact.ID, 0)
	observer.waitFinished(t)

	updates := repo.recordedUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, contact.ID, updates[0].contactID)
	assert.Equal(t, 0, updates[0].position)
	assert.InDelta(t, 39.7817, updates[0].lat, 1e-9)
	assert.InDelta(t, -89.6501, updates[0].lng, 1e-9)
	assert.Equal(t, contact.Addresses[0].FieldsHash(), updates[0].fieldsHash)
	assert.False(t, updates[0].geocodedAt.IsZero())

	assert.Equal(t, [2]int{1, 0}, observer.lastFinished(t))
	// Exactly one external call, spaced by the floor delay.
	assert.Equal(t, []time.Duration{time.Second}, clk.sleepDurations())

	status := queue.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.Succeeded)
	assert.Equal(t, 0, status.Failed)
	assert.Equal(t, time.Second, status.CurrentDelay)
}

func TestGeocodeQueue_RateLimitEscalatesImmediately(t *testing.T) {
	contact := pendingContact(
		entity.Address{Street: "123 Main St", City: "Springfield"},
		entity.Address{Street: "456 Oak Ave", City: "Springfield"},
	)
	repo := newStubContactRepo(contact)
	geocoder := &scriptedGeocoder{script: []func() (orb.Point, error){
		failWith(service.ErrRateLimited),
		succeedWith(-89.65, 39.78),
	}}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)
	enqueued, err := queue.ScanAndEnqueueAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, enqueued)

	observer.waitFinished(t)
	for queue.Status().Depth > 0 || queue.Status().Running {
		observer.waitFinished(t)
	}

	// One rate-limit doubles the delay at once; the following success decays
	// it toward the floor.
	sleeps := clk.sleepDurations()
	require.Len(t, sleeps, 2)
	assert.Equal(t, 2*time.Second, sleeps[0])
	assert.Equal(t, 1600*time.Millisecond, sleeps[1])

	status := queue.Status()
	assert.Equal(t, 1, status.Succeeded)
	assert.Equal(t, 1, status.Failed)
}

func TestGeocodeQueue_OrdinaryFailuresEscalateAtThreshold(t *testing.T) {
	contact := pendingContact(
		entity.Address{Street: "1 First St", City: "A"},
		entity.Address{Street: "2 Second St", City: "B"},
		entity.Address{Street: "3 Third St", City: "C"},
	)
	repo := newStubContactRepo(contact)
	transient := errors.New("upstream hiccup")
	geocoder := &scriptedGeocoder{script: []func() (orb.Point, error){
		failWith(transient),
		failWith(transient),
		failWith(transient),
	}}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)
	_, err := queue.ScanAndEnqueueAll(context.Background())
	require.NoError(t, err)

	observer.waitFinished(t)
	for queue.Status().Depth > 0 || queue.Status().Running {
		observer.waitFinished(t)
	}

	// Backoff engages only once the consecutive-failure threshold is hit.
	sleeps := clk.sleepDurations()
	require.Len(t, sleeps, 3)
	assert.Equal(t, time.Second, sleeps[0])
	assert.Equal(t, time.Second, sleeps[1])
	assert.Equal(t, 2*time.Second, sleeps[2])

	assert.Equal(t, 3, queue.Status().Failed)
}

func TestGeocodeQueue_NoResultCountsAsFailure(t *testing.T) {
	contact := pendingContact(entity.Address{Street: "42 Nowhere Ln", City: "Atlantis"})
	repo := newStubContactRepo(contact)
	geocoder := &scriptedGeocoder{script: []func() (orb.Point, error){failWith(service.ErrNoResult)}}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)
	queue.Enqueue(contact.ID, 0)
	observer.waitFinished(t)

	assert.Empty(t, repo.recordedUpdates())
	assert.Equal(t, [2]int{0, 1}, observer.lastFinished(t))
	// A single miss never proves throttling; the delay stays at the floor.
	assert.Equal(t, []time.Duration{time.Second}, clk.sleepDurations())
}

func TestGeocodeQueue_DeniedReportsAndContinues(t *testing.T) {
	contact := pendingContact(
		entity.Address{Street: "1 First St", City: "A"},
		entity.Address{Street: "2 Second St", City: "B"},
	)
	repo := newStubContactRepo(contact)
	geocoder := &scriptedGeocoder{script: []func() (orb.Point, error){
		failWith(service.ErrPermissionDenied),
		succeedWith(-89.65, 39.78),
	}}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)
	_, err := queue.ScanAndEnqueueAll(context.Background())
	require.NoError(t, err)

	observer.waitFinished(t)
	for queue.Status().Depth > 0 || queue.Status().Running {
		observer.waitFinished(t)
	}

	observer.mu.Lock()
	deniedCount := len(observer.denied)
	observer.mu.Unlock()
	assert.Equal(t, 1, deniedCount)

	// The denial did not stop the queue: the second item still succeeded.
	require.Len(t, repo.recordedUpdates(), 1)
}

func TestGeocodeQueue_StaleItemSkippedWithoutCall(t *testing.T) {
	addr := entity.Address{Street: "123 Main St", City: "Springfield"}
	addr.SetCoordinates(39.78, -89.65, addr.FieldsHash(), time.Now())
	contact := pendingContact(addr)
	repo := newStubContactRepo(contact)
	geocoder := &scriptedGeocoder{}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)
	queue.Enqueue(contact.ID, 0)
	observer.waitFinished(t)

	// Already geocoded: no external call, no delay, not a failure.
	assert.Equal(t, 0, geocoder.callCount())
	assert.Empty(t, clk.sleepDurations())
	assert.Equal(t, [2]int{0, 0}, observer.lastFinished(t))
}

func TestGeocodeQueue_BlankAddressIsPermanentFailure(t *testing.T) {
	contact := pendingContact(entity.Address{Label: "home"})
	repo := newStubContactRepo(contact)
	geocoder := &scriptedGeocoder{}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)
	queue.Enqueue(contact.ID, 0)
	observer.waitFinished(t)

	// Counted as failed, but no external call was made and the failure
	// never feeds backoff.
	assert.Equal(t, 0, geocoder.callCount())
	assert.Empty(t, clk.sleepDurations())
	assert.Equal(t, [2]int{0, 1}, observer.lastFinished(t))
	assert.Equal(t, time.Second, queue.Status().CurrentDelay)
}

func TestGeocodeQueue_MissingContactDiscarded(t *testing.T) {
	repo := newStubContactRepo()
	geocoder := &scriptedGeocoder{}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)
	queue.Enqueue(uuid.New(), 0)
	observer.waitFinished(t)

	assert.Equal(t, 0, geocoder.callCount())
	assert.Equal(t, [2]int{0, 0}, observer.lastFinished(t))
}

func TestGeocodeQueue_EnqueueIsIdempotent(t *testing.T) {
	contact := pendingContact(
		entity.Address{Street: "1 First St", City: "A"},
		entity.Address{Street: "2 Second St", City: "B"},
	)
	repo := newStubContactRepo(contact)
	geocoder := &scriptedGeocoder{
		script: []func() (orb.Point, error){
			succeedWith(-89.65, 39.78),
			succeedWith(-89.60, 39.70),
		},
		started: make(chan struct{}, 8),
		proceed: make(chan struct{}, 8),
	}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)

	// The worker blocks inside the first call while the rest is queued.
	queue.Enqueue(contact.ID, 0)
	<-geocoder.started

	queue.Enqueue(contact.ID, 1)
	queue.Enqueue(contact.ID, 1) // duplicate, must not be added
	assert.Equal(t, 1, queue.Status().Depth)

	geocoder.proceed <- struct{}{}
	<-geocoder.started
	geocoder.proceed <- struct{}{}
	observer.waitFinished(t)

	assert.Equal(t, 2, geocoder.callCount())
	assert.Len(t, repo.recordedUpdates(), 2)
}

func TestGeocodeQueue_CancelStopsWithoutPartialWrites(t *testing.T) {
	contact := pendingContact(
		entity.Address{Street: "1 First St", City: "A"},
		entity.Address{Street: "2 Second St", City: "B"},
	)
	repo := newStubContactRepo(contact)
	geocoder := &scriptedGeocoder{
		started: make(chan struct{}, 8),
		proceed: make(chan struct{}, 8), // never released; only ctx frees the call
	}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)
	queue.Enqueue(contact.ID, 0)
	queue.Enqueue(contact.ID, 1)
	<-geocoder.started

	queue.Cancel()
	observer.waitFinished(t)

	assert.Empty(t, repo.recordedUpdates())

	status := queue.Status()
	assert.False(t, status.Running)
	assert.Equal(t, 0, status.Depth)
	assert.Equal(t, 0, status.Failed)
}

func TestGeocodeQueue_RetryFailedResetsAndRescans(t *testing.T) {
	contact := pendingContact(entity.Address{Street: "123 Main St", City: "Springfield"})
	repo := newStubContactRepo(contact)
	geocoder := &scriptedGeocoder{script: []func() (orb.Point, error){
		failWith(service.ErrRateLimited),
		succeedWith(-89.6501, 39.7817),
	}}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)
	queue.Enqueue(contact.ID, 0)
	observer.waitFinished(t)

	require.Equal(t, 1, queue.Status().Failed)
	require.Equal(t, 2*time.Second, queue.Status().CurrentDelay)

	enqueued, err := queue.RetryFailed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, enqueued)
	observer.waitFinished(t)

	status := queue.Status()
	assert.Equal(t, 1, status.Succeeded)
	assert.Equal(t, 0, status.Failed)
	require.Len(t, repo.recordedUpdates(), 1)

	// The retry restarted from the floor delay.
	sleeps := clk.sleepDurations()
	require.Len(t, sleeps, 2)
	assert.Equal(t, time.Second, sleeps[1])
}

func TestGeocodeQueue_ScanEnqueuesOnlyPending(t *testing.T) {
	done := entity.Address{Street: "123 Main St", City: "Springfield"}
	done.SetCoordinates(39.78, -89.65, done.FieldsHash(), time.Now())
	contact := pendingContact(done, entity.Address{Street: "456 Oak Ave", City: "Springfield"})
	repo := newStubContactRepo(contact)
	geocoder := &scriptedGeocoder{script: []func() (orb.Point, error){succeedWith(-89.60, 39.70)}}
	observer := newRecordingObserver()
	clk := newFakeClock()

	queue := newTestQueue(repo, geocoder, observer, clk)
	enqueued, err := queue.ScanAndEnqueueAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, enqueued)

	observer.waitFinished(t)
	assert.Equal(t, 1, geocoder.callCount())

	updates := repo.recordedUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, 1, updates[0].position)
}

func TestGeocodeQueue_ScanPropagatesListError(t *testing.T) {
	repo := newStubContactRepo()
	repo.listErr = errors.New("database unavailable")
	queue := newTestQueue(repo, &scriptedGeocoder{}, newRecordingObserver(), newFakeClock())

	_, err := queue.ScanAndEnqueueAll(context.Background())
	require.Error(t, err)
}
