// Package presence tracks whether any scanner device is currently
// online. Scanners heartbeat while their UI is open; when the last
// heartbeat expires the dashboard is told the scanner went offline.
package presence

import (
	"context"
	"sync"
	"time"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/broadcast"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type Tracker interface {
	Heartbeat(ctx context.Context, scannerID string) error
	Online(ctx context.Context) (bool, error)
	Close() error
}

// StatusPayload is the scanner_status_update event body.
type StatusPayload struct {
	Status string `json:"status"`
}

// MemoryTracker keeps heartbeats in process memory. Default when no
// Redis is configured.
type MemoryTracker struct {
	mu        sync.Mutex
	ttl       time.Duration
	lastSeen  map[string]time.Time
	publisher broadcast.Publisher
	done      chan struct{}
	closeOnce sync.Once
}

func NewMemoryTracker(ttl time.Duration, publisher broadcast.Publisher) *MemoryTracker {
	t := &MemoryTracker{
		ttl:       ttl,
		lastSeen:  make(map[string]time.Time),
		publisher: publisher,
		done:      make(chan struct{}),
	}
	go t.sweep()
	return t
}

func (t *MemoryTracker) Heartbeat(_ context.Context, scannerID string) error {
	t.mu.Lock()
	wasOnline := t.onlineLocked(time.Now())
	t.lastSeen[scannerID] = time.Now()
	t.mu.Unlock()

	if !wasOnline {
		t.publisher.Publish(broadcast.Event{
			Type: broadcast.EventScannerStatus,
			Data: StatusPayload{Status: StatusOnline},
		})
	}
	return nil
}

func (t *MemoryTracker) Online(_ context.Context) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.onlineLocked(time.Now()), nil
}

func (t *MemoryTracker) onlineLocked(now time.Time) bool {
	for _, seen := range t.lastSeen {
		if now.Sub(seen) < t.ttl {
			return true
		}
	}
	return false
}

// sweep drops stale heartbeats and announces the offline transition.
func (t *MemoryTracker) sweep() {
	ticker := time.NewTicker(t.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case now := <-ticker.C:
			t.mu.Lock()
			wasOnline := len(t.lastSeen) > 0
			for id, seen := range t.lastSeen {
				if now.Sub(seen) >= t.ttl {
					delete(t.lastSeen, id)
				}
			}
			nowOnline := len(t.lastSeen) > 0
			t.mu.Unlock()

			if wasOnline && !nowOnline {
				t.publisher.Publish(broadcast.Event{
					Type: broadcast.EventScannerStatus,
					Data: StatusPayload{Status: StatusOffline},
				})
			}
		}
	}
}

func (t *MemoryTracker) Close() error {
	t.closeOnce.Do(func() { close(t.done) })
	return nil
}
