// Package broadcast fans ledger state changes out to connected
// observers. Delivery is best-effort and at-most-once per observer;
// late joiners pull current state through the query endpoints instead.
package broadcast

type EventType string

const (
	// Wire names kept compatible with the dashboard clients.
	EventStatsUpdate   EventType = "stats_update"
	EventNewScan       EventType = "new_scan"
	EventScannerStatus EventType = "scanner_status_update"
)

type Event struct {
	Type EventType   `json:"event"`
	Data interface{} `json:"data"`
}

// Publisher is the fire-and-forget sink the verification service
// depends on. Implementations must never block the publishing caller.
type Publisher interface {
	Publish(event Event)
}

// Multi tees every event to all configured sinks in order, which keeps
// events for the same ticket observable in publish order per sink.
type Multi []Publisher

func (m Multi) Publish(event Event) {
	for _, p := range m {
		p.Publish(event)
	}
}

// Discard drops everything. Used where a publisher is required but no
// observers are wired, mostly in tests.
type Discard struct{}

func (Discard) Publish(Event) {}
