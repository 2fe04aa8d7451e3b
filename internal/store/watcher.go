package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeCallback is called after the store file changed on disk, debounced.
type ChangeCallback func()

// Watch starts an fsnotify watcher on the store's directory and invokes cb
// when the database file (or its WAL sidecar) is written until ctx is
// cancelled. Writes from this process also fire events; the callback is
// expected to be a cheap resync that tolerates spurious invocations.
//
// This is how a non-owning view learns that the lease holder committed:
// the persisted store is the only resource shared across views.
func Watch(ctx context.Context, dbPath string, logger *slog.Logger, cb ChangeCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(dbPath)
	if err := w.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(dbPath)

	logger.Info("store watcher: started", slog.String("path", dbPath))

	// Debounce bursts of WAL writes into one callback.
	var debounce *time.Timer
	var debounceCh <-chan time.Time
	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(250 * time.Millisecond)
			debounceCh = debounce.C
		} else {
			debounce.Reset(250 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("store watcher: stopped")
			return nil

		case <-debounceCh:
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if name != base && !strings.HasPrefix(name, base+"-") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("store watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
