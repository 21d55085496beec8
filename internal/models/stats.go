package models

// Stats is the aggregate view served to the dashboard. Everything except
// the invalid and scanned counters is recomputable from the ledger.
type Stats struct {
	Scanned       int    `json:"scanned"`
	Valid         int    `json:"valid"`
	Invalid       int    `json:"invalid"`
	TotalTickets  int    `json:"total_tickets"`
	ScannedToday  int    `json:"scanned_today"`
	LastScanTime  string `json:"last_scan_time,omitempty"`
	ScannerStatus string `json:"scanner_status"`
}
