package models

// ScanRecord is one entry in the recent-scan log shown on the operator
// dashboard. It is informational only and may be lost on restart.
type ScanRecord struct {
	TicketID  string `json:"ticket_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Status    string `json:"status"` // valid, already_scanned or invalid
	ScanTime  string `json:"scan_time"`
	Timestamp string `json:"timestamp"`
}

const (
	ScanStatusValid          = "valid"
	ScanStatusAlreadyScanned = "already_scanned"
	ScanStatusInvalid        = "invalid"
)
