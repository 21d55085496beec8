package stats_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/models"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/stats"
)

func TestComputeEmptyLedger(t *testing.T) {
	st := stats.Compute(nil, stats.Counters{}, time.Now())

	assert.Zero(t, st.TotalTickets)
	assert.Zero(t, st.Valid)
	assert.Zero(t, st.Scanned)
	assert.Zero(t, st.Invalid)
	assert.Zero(t, st.ScannedToday)
	assert.Empty(t, st.LastScanTime)
}

func TestComputeCounts(t *testing.T) {
	now := time.Date(2026, 8, 30, 15, 0, 0, 0, time.Local)
	yesterday := now.Add(-24 * time.Hour)

	snapshot := []models.Ticket{
		{ID: "A", Redeemed: true, RedeemedAt: now.Add(-time.Hour)},
		{ID: "B", Redeemed: true, RedeemedAt: yesterday},
		{ID: "C"},
	}
	counters := stats.Counters{Scanned: 2, Invalid: 1, LastScan: now}

	st := stats.Compute(snapshot, counters, now)

	assert.Equal(t, 3, st.TotalTickets)
	assert.Equal(t, 2, st.Valid)
	assert.Equal(t, 2, st.Scanned)
	assert.Equal(t, 1, st.Invalid)
	// Only the redemption on today's calendar day counts.
	assert.Equal(t, 1, st.ScannedToday)
	assert.Equal(t, now.Format(time.RFC3339), st.LastScanTime)
}

func TestComputeTodayBoundary(t *testing.T) {
	// A redemption just before local midnight is not "today".
	now := time.Date(2026, 8, 30, 0, 5, 0, 0, time.Local)
	beforeMidnight := time.Date(2026, 8, 29, 23, 59, 0, 0, time.Local)

	snapshot := []models.Ticket{
		{ID: "A", Redeemed: true, RedeemedAt: beforeMidnight},
		{ID: "B", Redeemed: true, RedeemedAt: now},
	}

	st := stats.Compute(snapshot, stats.Counters{}, now)
	assert.Equal(t, 2, st.Valid)
	assert.Equal(t, 1, st.ScannedToday)
}
