package models

import (
	"time"

	"github.com/uptrace/bun"
)

// ScanTimeFormat is the human-readable timestamp written into scan_time
// fields and exported CSV columns.
const ScanTimeFormat = "2006-01-02 15:04:05"

// NotAvailable marks holder attributes the import file did not provide.
const NotAvailable = "N/A"

// Ticket is a single admission ticket in the active ledger.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID          string            `bun:"id,pk" json:"ticket_id"`
	HolderName  string            `bun:"holder_name" json:"name"`
	HolderEmail string            `bun:"holder_email" json:"email"`
	Redeemed    bool              `bun:"redeemed" json:"redeemed"`
	RedeemedAt  time.Time         `bun:"redeemed_at,nullzero" json:"redeemed_at,omitempty"`
	Position    int               `bun:"position" json:"-"`
	Extra       map[string]string `bun:"extra,type:jsonb" json:"extra,omitempty"`
}

// ScanTime renders the redemption time for API responses, or N/A for
// tickets that have never been redeemed.
func (t *Ticket) ScanTime() string {
	if t.RedeemedAt.IsZero() {
		return NotAvailable
	}
	return t.RedeemedAt.Format(ScanTimeFormat)
}
