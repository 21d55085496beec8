// Package scan orchestrates ticket verification: it consults the
// ledger, accumulates the running counters, keeps the recent-scan log
// and pushes state changes to observers. It holds no authoritative
// ticket state of its own.
package scan

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/emirpasic/gods/lists/doublylinkedlist"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/broadcast"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/ledger"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/logger"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/models"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/presence"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/stats"
)

// ErrInvalidInput rejects empty scan input before the ledger is touched.
var ErrInvalidInput = errors.New("no ticket id provided")

// RecentScanCapacity bounds the operator-visible scan log.
const RecentScanCapacity = 50

// Ledger is the slice of the ledger store the service depends on.
type Ledger interface {
	TryRedeem(ctx context.Context, id string) (ledger.Outcome, *models.Ticket, error)
	Snapshot(ctx context.Context) ([]models.Ticket, error)
	Loaded() bool
}

// Presence reports whether any scanner device is online.
type Presence interface {
	Online(ctx context.Context) (bool, error)
}

type Service struct {
	Ledger    Ledger
	Publisher broadcast.Publisher
	Presence  Presence
	Logger    *logger.Logger

	mu       sync.Mutex
	counters stats.Counters
	recent   *doublylinkedlist.List
	cached   *models.Stats
}

func NewService(ledgerStore Ledger, publisher broadcast.Publisher, pres Presence, log *logger.Logger) *Service {
	return &Service{
		Ledger:    ledgerStore,
		Publisher: publisher,
		Presence:  pres,
		Logger:    log,
		recent:    doublylinkedlist.New(),
	}
}

// ScanData is the ticket payload of a verification response.
type ScanData struct {
	TicketID       string `json:"ticket_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	AlreadyScanned bool   `json:"already_scanned"`
	ScanTime       string `json:"scan_time"`
}

// Result is a structurally successful verification. Valid=false covers
// both duplicates and unknown tickets; Message says which.
type Result struct {
	Valid   bool     `json:"valid"`
	Message string   `json:"message"`
	Data    ScanData `json:"data"`
}

// Verify runs one scan through the ledger and emits the side effects
// for its outcome. Structural failures (empty input, no ledger loaded,
// persistence or lock timeout) come back as errors; business outcomes
// come back as a Result.
func (s *Service) Verify(ctx context.Context, ticketID string) (*Result, error) {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return nil, ErrInvalidInput
	}

	outcome, ticket, err := s.Ledger.TryRedeem(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var result *Result
	var record models.ScanRecord

	switch outcome {
	case ledger.OutcomeRedeemed:
		record = models.ScanRecord{
			TicketID:  ticket.ID,
			Name:      ticket.HolderName,
			Email:     ticket.HolderEmail,
			Status:    models.ScanStatusValid,
			ScanTime:  ticket.ScanTime(),
			Timestamp: now.Format(time.RFC3339),
		}
		result = &Result{
			Valid:   true,
			Message: "Ticket valid",
			Data: ScanData{
				TicketID: ticket.ID,
				Name:     ticket.HolderName,
				Email:    ticket.HolderEmail,
				ScanTime: ticket.ScanTime(),
			},
		}
		s.note(record, func(c *stats.Counters) { c.Scanned++ }, now)
		s.Logger.LogScan(models.ScanStatusValid, ticket.ID, ticket.HolderName)

	case ledger.OutcomeAlreadyRedeemed:
		record = models.ScanRecord{
			TicketID:  ticket.ID,
			Name:      ticket.HolderName,
			Email:     ticket.HolderEmail,
			Status:    models.ScanStatusAlreadyScanned,
			ScanTime:  ticket.ScanTime(),
			Timestamp: now.Format(time.RFC3339),
		}
		result = &Result{
			Message: "Ticket already scanned",
			Data: ScanData{
				TicketID:       ticket.ID,
				Name:           ticket.HolderName,
				Email:          ticket.HolderEmail,
				AlreadyScanned: true,
				ScanTime:       ticket.ScanTime(),
			},
		}
		s.note(record, func(c *stats.Counters) { c.Scanned++ }, now)
		s.Logger.LogScan(models.ScanStatusAlreadyScanned, ticket.ID, ticket.HolderName)

	default: // ledger.OutcomeUnknown
		record = models.ScanRecord{
			TicketID:  ticketID,
			Name:      models.NotAvailable,
			Email:     models.NotAvailable,
			Status:    models.ScanStatusInvalid,
			ScanTime:  now.Format(models.ScanTimeFormat),
			Timestamp: now.Format(time.RFC3339),
		}
		result = &Result{
			Message: "Invalid ticket",
			Data: ScanData{
				TicketID: ticketID,
				Name:     models.NotAvailable,
				Email:    models.NotAvailable,
				ScanTime: now.Format(models.ScanTimeFormat),
			},
		}
		s.note(record, func(c *stats.Counters) { c.Invalid++ }, now)
		s.Logger.LogScan(models.ScanStatusInvalid, ticketID, "unknown ticket")
	}

	if st, err := s.Stats(ctx); err == nil {
		s.Publisher.Publish(broadcast.Event{Type: broadcast.EventStatsUpdate, Data: st})
	} else {
		s.Logger.Warn("SCAN", fmt.Sprintf("failed to recompute stats after scan: %v", err))
	}
	if outcome == ledger.OutcomeRedeemed {
		s.Publisher.Publish(broadcast.Event{Type: broadcast.EventNewScan, Data: record})
	}

	return result, nil
}

// note applies one scan's counter update and prepends it to the
// recent-scan log, invalidating the cached stats.
func (s *Service) note(record models.ScanRecord, bump func(*stats.Counters), now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bump(&s.counters)
	s.counters.LastScan = now
	s.cached = nil

	s.recent.Prepend(record)
	if s.recent.Size() > RecentScanCapacity {
		s.recent.Remove(s.recent.Size() - 1)
	}
}

// Stats returns the current aggregate view, recomputing it from a
// ledger snapshot when the cached copy was invalidated by a mutation.
func (s *Service) Stats(ctx context.Context) (models.Stats, error) {
	s.mu.Lock()
	if s.cached != nil {
		st := *s.cached
		s.mu.Unlock()
		return s.withScannerStatus(ctx, st), nil
	}
	counters := s.counters
	s.mu.Unlock()

	snapshot, err := s.Ledger.Snapshot(ctx)
	if err != nil {
		return models.Stats{}, err
	}
	st := stats.Compute(snapshot, counters, time.Now())

	s.mu.Lock()
	cached := st
	s.cached = &cached
	s.mu.Unlock()

	return s.withScannerStatus(ctx, st), nil
}

func (s *Service) withScannerStatus(ctx context.Context, st models.Stats) models.Stats {
	st.ScannerStatus = presence.StatusOffline
	if s.Presence != nil {
		if online, err := s.Presence.Online(ctx); err == nil && online {
			st.ScannerStatus = presence.StatusOnline
		}
	}
	return st
}

// Recent returns up to limit recent scans, newest first.
func (s *Service) Recent(limit int) []models.ScanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > s.recent.Size() {
		limit = s.recent.Size()
	}

	records := make([]models.ScanRecord, 0, limit)
	it := s.recent.Iterator()
	for it.Next() && len(records) < limit {
		records = append(records, it.Value().(models.ScanRecord))
	}
	return records
}

// Reset clears the running counters and cached stats. Called when a new
// import replaces the ledger; the counters belong to its lifecycle.
func (s *Service) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters = stats.Counters{}
	s.cached = nil
}
