package store_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SaidislomSaidazimovv/Docbrand/internal/store"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func watcherLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatch_FiresOnStoreWrite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "docbrand.db")
	if err := os.WriteFile(dbPath, []byte("seed"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go store.Watch(ctx, dbPath, watcherLogger(), func() {
		calls.Add(1)
	})
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(dbPath, []byte("changed"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "store write did not fire the callback")
}

func TestWatch_FiresOnWALSidecar(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "docbrand.db")
	if err := os.WriteFile(dbPath, []byte("seed"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go store.Watch(ctx, dbPath, watcherLogger(), func() {
		calls.Add(1)
	})
	time.Sleep(100 * time.Millisecond)

	// WAL-mode commits often only touch the sidecar files.
	if err := os.WriteFile(dbPath+"-wal", []byte("frames"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "WAL sidecar write did not fire the callback")
}

func TestWatch_IgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "docbrand.db")
	if err := os.WriteFile(dbPath, []byte("seed"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go store.Watch(ctx, dbPath, watcherLogger(), func() {
		calls.Add(1)
	})
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	time.Sleep(600 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("callback fired %d times for an unrelated file", calls.Load())
	}
}

func TestWatch_DebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "docbrand.db")
	if err := os.WriteFile(dbPath, []byte("seed"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	go store.Watch(ctx, dbPath, watcherLogger(), func() {
		calls.Add(1)
	})
	time.Sleep(100 * time.Millisecond)

	// A burst of writes inside the debounce window collapses into one
	// callback.
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(dbPath, []byte{byte(i)}, 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return calls.Load() >= 1
	}, "burst did not fire the callback")
	time.Sleep(400 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("callbacks = %d, want 1 for a single burst", got)
	}
}

func TestWatch_StopsOnContextCancel(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "docbrand.db")
	if err := os.WriteFile(dbPath, []byte("seed"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- store.Watch(ctx, dbPath, watcherLogger(), nil)
	}()
	time.Sleep(100 * time.Millisecond)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch returned %v on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not stop on context cancel")
	}
}
