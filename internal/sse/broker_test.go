package sse

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSubscribeUnsubscribe(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients")
	}
	ch := b.Subscribe()
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client")
	}
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Fatalf("expected 0 clients after unsub")
	}
}

func TestPublishDelivery(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: "document.committed", Data: map[string]string{"docId": "doc-1"}})

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: document.committed") {
			t.Errorf("missing event type in %q", s)
		}
		if !strings.Contains(s, `"docId":"doc-1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
}

func TestPublishLinkEvent_CoverageThrottle(t *testing.T) {
	b := NewBroker(500 * time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	// First event should trigger coverage.updated.
	b.PublishLinkEvent("added", "doc-1", "b1", "REQ-1")
	// Second event immediately should NOT trigger another coverage.updated.
	b.PublishLinkEvent("removed", "doc-1", "b1", "REQ-1")

	// Drain and count events.
	time.Sleep(50 * time.Millisecond)
	coverageCount := 0
	linkCount := 0
loop:
	for {
		select {
		case msg := <-ch:
			s := string(msg)
			if strings.Contains(s, "coverage.updated") {
				coverageCount++
			} else {
				linkCount++
			}
		default:
			break loop
		}
	}

	if linkCount != 2 {
		t.Errorf("link events = %d, want 2", linkCount)
	}
	if coverageCount != 1 {
		t.Errorf("coverage events = %d, want 1 (throttled)", coverageCount)
	}
}

func TestPublishLinkEvent_Kinds(t *testing.T) {
	b := NewBroker(time.Millisecond)
	defer b.Close()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.PublishLinkEvent("added", "doc-1", "b1", "REQ-1")

	select {
	case msg := <-ch:
		s := string(msg)
		if !strings.Contains(s, "event: link.added") {
			t.Errorf("wrong event type in %q", s)
		}
		if !strings.Contains(s, `"reqId":"REQ-1"`) || !strings.Contains(s, `"blockId":"b1"`) {
			t.Errorf("missing data in %q", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for link.added")
	}

	b.PublishLinkEvent("removed", "doc-1", "b1", "REQ-1")
	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-ch:
			if strings.Contains(string(msg), "event: link.removed") {
				return
			}
		case <-deadline:
			t.Fatal("timeout waiting for link.removed")
		}
	}
}

func TestSSEHandler(t *testing.T) {
	b := NewBroker(100 * time.Millisecond)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	req = req.WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		b.ServeHTTP(w, req)
		close(done)
	}()

	// Give handler time to subscribe.
	time.Sleep(50 * time.Millisecond)
	if b.ClientCount() != 1 {
		t.Fatalf("expected 1 client from handler")
	}

	b.Publish(Event{Type: "link.added", Data: map[string]string{"docId": "doc-1"}})
	time.Sleep(50 * time.Millisecond)

	cancel()
	<-done

	body := w.Body.String()
	if !strings.Contains(body, "event: link.added") {
		t.Errorf("response body missing event: %q", body)
	}
	if got := w.Header().Get("Content-Type"); got != "text/event-stream" {
		t.Errorf("Content-Type = %q", got)
	}
}

func TestCloseIsIdempotentAndSafe(t *testing.T) {
	b := NewBroker(time.Second)
	ch := b.Subscribe()
	b.Close()
	b.Close()

	if _, ok := <-ch; ok {
		t.Error("client channel should be closed after broker close")
	}
	// Post-close calls are no-ops.
	b.Publish(Event{Type: "x"})
	b.PublishLinkEvent("added", "d", "b", "r")
	b.Unsubscribe(ch)
	if b.ClientCount() != 0 {
		t.Error("ClientCount after close should be 0")
	}
}
