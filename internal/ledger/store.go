package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/models"
)

var (
	// ErrNotLoaded is returned when a scan arrives before any import.
	ErrNotLoaded = errors.New("no ticket ledger has been loaded")

	// ErrTimeout is returned when a caller gives up waiting for exclusive
	// ledger access. The operation applied no mutation and may be retried.
	ErrTimeout = errors.New("timed out waiting for ledger access")

	// ErrValidation covers malformed or colliding import batches.
	ErrValidation = errors.New("invalid ticket batch")

	// ErrPersistence covers failed durable writes. The in-memory ledger is
	// rolled back to match what was actually persisted.
	ErrPersistence = errors.New("failed to persist ledger")
)

// Outcome is the result of a redemption attempt. Unknown and
// AlreadyRedeemed are expected business outcomes, not errors.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeAlreadyRedeemed
	OutcomeRedeemed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAlreadyRedeemed:
		return "already_redeemed"
	case OutcomeRedeemed:
		return "redeemed"
	default:
		return "unknown"
	}
}

// DBLayer is the durable writer behind the store.
type DBLayer interface {
	ReplaceAll(ctx context.Context, tickets []models.Ticket) error
	MarkRedeemed(ctx context.Context, ticket models.Ticket) error
	LoadAll(ctx context.Context) ([]models.Ticket, error)
}

// Store is the sole owner of ticket records. All access goes through a
// single exclusive section acquired via a capacity-1 channel, so waiting
// callers can honor context deadlines. Every successful mutation commits
// its durable write before the call returns.
type Store struct {
	sem     chan struct{}
	db      DBLayer
	tickets map[string]*models.Ticket
	order   []string
	loaded  atomic.Bool
}

func NewStore(db DBLayer) *Store {
	return &Store{
		sem: make(chan struct{}, 1),
		db:  db,
	}
}

func (s *Store) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
	}
}

func (s *Store) release() {
	<-s.sem
}

// Loaded reports whether an import has populated the ledger.
func (s *Store) Loaded() bool {
	return s.loaded.Load()
}

// Reload restores the in-memory ledger from the durable form. Called once
// at startup so redemptions survive a process restart.
func (s *Store) Reload(ctx context.Context) (int, error) {
	if err := s.acquire(ctx); err != nil {
		return 0, err
	}
	defer s.release()

	tickets, err := s.db.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("reload ledger: %w", err)
	}
	if len(tickets) == 0 {
		return 0, nil
	}

	s.index(tickets)
	return len(tickets), nil
}

// LoadBatch replaces the entire active ledger with the given records.
// Missing ids get fresh UUIDs; duplicate ids or missing holder attributes
// fail the whole batch. The durable write commits before the in-memory
// ledger is swapped.
func (s *Store) LoadBatch(ctx context.Context, tickets []models.Ticket) error {
	if len(tickets) == 0 {
		return fmt.Errorf("%w: batch contains no records", ErrValidation)
	}

	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	seen := make(map[string]struct{}, len(tickets))
	for i := range tickets {
		t := &tickets[i]
		if t.HolderName == "" || t.HolderEmail == "" {
			return fmt.Errorf("%w: record %d is missing holder attributes", ErrValidation, i+1)
		}
		if t.ID == "" {
			t.ID = uuid.New().String()
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("%w: duplicate ticket id %q", ErrValidation, t.ID)
		}
		seen[t.ID] = struct{}{}
		t.Position = i
	}

	if err := s.db.ReplaceAll(ctx, tickets); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.index(tickets)
	return nil
}

// index rebuilds the in-memory map from a persisted batch. Caller holds
// the exclusive section.
func (s *Store) index(tickets []models.Ticket) {
	s.tickets = make(map[string]*models.Ticket, len(tickets))
	s.order = make([]string, 0, len(tickets))
	for i := range tickets {
		t := tickets[i]
		s.tickets[t.ID] = &t
		s.order = append(s.order, t.ID)
	}
	s.loaded.Store(true)
}

// Find returns a copy of the record with the given id.
func (s *Store) Find(ctx context.Context, id string) (*models.Ticket, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	if !s.loaded.Load() {
		return nil, ErrNotLoaded
	}
	t, ok := s.tickets[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// TryRedeem atomically checks and marks a ticket as used. Exactly one of
// any set of concurrent calls for the same id observes OutcomeRedeemed.
// If the durable write fails, the in-memory flag is rolled back and the
// caller sees a persistence error rather than a silent success.
func (s *Store) TryRedeem(ctx context.Context, id string) (Outcome, *models.Ticket, error) {
	if err := s.acquire(ctx); err != nil {
		return OutcomeUnknown, nil, err
	}
	defer s.release()

	if !s.loaded.Load() {
		return OutcomeUnknown, nil, ErrNotLoaded
	}

	t, ok := s.tickets[id]
	if !ok {
		return OutcomeUnknown, nil, nil
	}
	if t.Redeemed {
		cp := *t
		return OutcomeAlreadyRedeemed, &cp, nil
	}

	t.Redeemed = true
	t.RedeemedAt = time.Now()

	if err := s.db.MarkRedeemed(ctx, *t); err != nil {
		t.Redeemed = false
		t.RedeemedAt = time.Time{}
		return OutcomeUnknown, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	cp := *t
	return OutcomeRedeemed, &cp, nil
}

// Snapshot returns a point-in-time copy of the ledger in import order.
// An absent ledger yields an empty snapshot, not an error.
func (s *Store) Snapshot(ctx context.Context) ([]models.Ticket, error) {
	if err := s.acquire(ctx); err != nil {
		return nil, err
	}
	defer s.release()

	snapshot := make([]models.Ticket, 0, len(s.order))
	for _, id := range s.order {
		snapshot = append(snapshot, *s.tickets[id])
	}
	return snapshot, nil
}
