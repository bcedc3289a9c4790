package service

// QueueObserver receives progress reports from the geocoding queue. It is
// consumed by status-display layers; implementations must be cheap since
// they are invoked from the worker loop.
type QueueObserver interface {
	// BatchStarted is emitted when the queue leaves idle, with the number of
	// items queued at that moment.
	BatchStarted(total int)

	// Progress is emitted after each processed item.
	Progress(processed, total, depth int)

	// BatchFinished is emitted when the queue drains back to idle.
	BatchFinished(succeeded, failed int)

	// Denied is emitted when the provider reports a permission/access
	// denial; typically a deployment-wide condition the operator must fix.
	Denied(err error)
}

// NopQueueObserver discards all reports.
type NopQueueObserver struct{}

func (NopQueueObserver) BatchStarted(int)       {}
func (NopQueueObserver) Progress(int, int, int) {}
func (NopQueueObserver) BatchFinished(int, int) {}
func (NopQueueObserver) Denied(error)           {}
