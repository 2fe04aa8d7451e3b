package engine

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// CommitFunc prepares and writes one snapshot commit. It runs on the
// flusher goroutine, outside any transaction-apply path, and must never
// mutate the document as a side effect.
type CommitFunc func() error

// Flusher schedules snapshot commits off the synchronous transaction path:
// edits are debounced, a hard maximum inter-flush interval bounds the
// data-loss window regardless of activity, and Close flushes immediately
// as the highest-reliability exit path.
//
// Concurrency model follows the event-broker pattern: one goroutine owns
// the dirty flag and timers; public methods talk to it over channels.
type Flusher struct {
	debounce    time.Duration
	maxInterval time.Duration
	commit      CommitFunc
	logger      *slog.Logger

	notifyCh chan struct{}
	flushCh  chan chan error
	stopCh   chan struct{}
	stopped  chan struct{}
	closed   atomic.Bool
}

// NewFlusher creates and starts a flusher.
func NewFlusher(debounce, maxInterval time.Duration, commit CommitFunc, logger *slog.Logger) *Flusher {
	if debounce <= 0 {
		debounce = 2 * time.Second
	}
	if maxInterval <= 0 {
		maxInterval = 30 * time.Second
	}
	f := &Flusher{
		debounce:    debounce,
		maxInterval: maxInterval,
		commit:      commit,
		logger:      logger,
		notifyCh:    make(chan struct{}, 64),
		flushCh:     make(chan chan error),
		stopCh:      make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *Flusher) run() {
	defer close(f.stopped)

	var dirty bool
	var debounce *time.Timer
	var debounceCh <-chan time.Time
	lastFlush := time.Now()

	ticker := time.NewTicker(f.maxInterval)
	defer ticker.Stop()

	doFlush := func() error {
		if !dirty {
			return nil
		}
		err := f.commit()
		if err != nil {
			// The previous persisted snapshot is intact; stay dirty so
			// the next tick retries with a fresh preparation.
			f.logger.Warn("flush failed", slog.String("error", err.Error()))
			return err
		}
		dirty = false
		lastFlush = time.Now()
		return nil
	}

	// drainNotify folds any queued notifications into the dirty flag, so an
	// explicit flush or stop never races past a Notify that already returned.
	drainNotify := func() {
		for {
			select {
			case <-f.notifyCh:
				dirty = true
			default:
				return
			}
		}
	}

	for {
		select {
		case <-f.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			drainNotify()
			_ = doFlush()
			return

		case <-f.notifyCh:
			dirty = true
			if debounce == nil {
				debounce = time.NewTimer(f.debounce)
				debounceCh = debounce.C
			} else {
				debounce.Reset(f.debounce)
			}

		case <-debounceCh:
			_ = doFlush()

		case <-ticker.C:
			// Force-flush regardless of ongoing activity.
			if dirty && time.Since(lastFlush) >= f.maxInterval {
				_ = doFlush()
			}

		case resp := <-f.flushCh:
			drainNotify()
			resp <- doFlush()
		}
	}
}

// Notify marks the document dirty and (re)starts the debounce window.
// Never blocks: a full channel already implies a pending dirty mark.
func (f *Flusher) Notify() {
	if f.closed.Load() {
		return
	}
	select {
	case f.notifyCh <- struct{}{}:
	default:
	}
}

// Flush commits synchronously if there are unflushed changes.
func (f *Flusher) Flush() error {
	if f.closed.Load() {
		return nil
	}
	resp := make(chan error, 1)
	select {
	case f.flushCh <- resp:
	case <-f.stopped:
		return nil
	}
	select {
	case err := <-resp:
		return err
	case <-f.stopped:
		return nil
	}
}

// Close flushes pending changes and stops the goroutine.
func (f *Flusher) Close() error {
	err := f.Flush()
	if f.closed.CompareAndSwap(false, true) {
		close(f.stopCh)
	}
	<-f.stopped
	return err
}
