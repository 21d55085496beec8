// Package stats derives the dashboard counters from ledger state.
package stats

import (
	"time"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/models"
)

// Counters are the running totals the verification service accumulates
// outside the ledger: invalid scans leave no ledger record to recompute
// from, and the scanned total includes duplicate attempts.
type Counters struct {
	Scanned  int
	Invalid  int
	LastScan time.Time
}

// Compute derives aggregate statistics from a ledger snapshot plus the
// externally accumulated counters. An empty snapshot yields zeros.
func Compute(snapshot []models.Ticket, counters Counters, now time.Time) models.Stats {
	st := models.Stats{
		Scanned:      counters.Scanned,
		Invalid:      counters.Invalid,
		TotalTickets: len(snapshot),
	}

	year, month, day := now.Date()
	for _, t := range snapshot {
		if !t.Redeemed {
			continue
		}
		st.Valid++
		if t.RedeemedAt.IsZero() {
			continue
		}
		// Calendar-day comparison in server-local time.
		ry, rm, rd := t.RedeemedAt.In(now.Location()).Date()
		if ry == year && rm == month && rd == day {
			st.ScannedToday++
		}
	}

	if !counters.LastScan.IsZero() {
		st.LastScanTime = counters.LastScan.Format(time.RFC3339)
	}
	return st
}
