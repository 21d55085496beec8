// Package importer handles the tabular file boundary: decoding uploaded
// CSV rosters into ticket batches and writing ledger snapshots back out.
package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/ledger"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/models"
)

// Columns the importer interprets. Everything else is passed through
// verbatim on every persistence cycle.
const (
	columnName     = "name"
	columnEmail    = "email"
	columnUUID     = "uuid"
	columnScanned  = "scanned"
	columnScanTime = "scan_time"
)

// ParseCSV decodes an uploaded roster into a ticket batch. The header
// row must name at least the name and email columns. Rows that already
// carry uuid/scanned/scan_time values keep them, so re-importing an
// exported file preserves redemption state recorded in the file.
func ParseCSV(r io.Reader) ([]models.Ticket, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: file is empty", ledger.ErrValidation)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrValidation, err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}

	var missing []string
	for _, required := range []string{columnName, columnEmail} {
		if _, ok := columns[required]; !ok {
			missing = append(missing, required)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing required columns: %s",
			ledger.ErrValidation, strings.Join(missing, ", "))
	}

	var tickets []models.Ticket
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ledger.ErrValidation, len(tickets)+2, err)
		}

		ticket := models.Ticket{
			HolderName:  fieldOr(row, columns, columnName, models.NotAvailable),
			HolderEmail: fieldOr(row, columns, columnEmail, models.NotAvailable),
			ID:          fieldOr(row, columns, columnUUID, ""),
			Position:    len(tickets),
		}

		if raw := fieldOr(row, columns, columnScanned, ""); raw != "" {
			if scanned, err := strconv.ParseBool(raw); err == nil {
				ticket.Redeemed = scanned
			}
		}
		if ticket.Redeemed {
			if raw := fieldOr(row, columns, columnScanTime, ""); raw != "" {
				if ts, err := time.ParseInLocation(models.ScanTimeFormat, raw, time.Local); err == nil {
					ticket.RedeemedAt = ts
				}
			}
		}

		for i, name := range header {
			key := strings.ToLower(strings.TrimSpace(name))
			switch key {
			case columnName, columnEmail, columnUUID, columnScanned, columnScanTime:
				continue
			}
			if i >= len(row) {
				continue
			}
			if ticket.Extra == nil {
				ticket.Extra = make(map[string]string)
			}
			ticket.Extra[strings.TrimSpace(name)] = row[i]
		}

		tickets = append(tickets, ticket)
	}

	if len(tickets) == 0 {
		return nil, fmt.Errorf("%w: file contains no ticket rows", ledger.ErrValidation)
	}
	return tickets, nil
}

// WriteSnapshot renders a ledger snapshot as a CSV roster. The layout
// round-trips through ParseCSV: known columns first, then every extra
// column seen in the snapshot in sorted order.
func WriteSnapshot(w io.Writer, tickets []models.Ticket) error {
	extraSet := make(map[string]struct{})
	for _, t := range tickets {
		for key := range t.Extra {
			extraSet[key] = struct{}{}
		}
	}
	extras := make([]string, 0, len(extraSet))
	for key := range extraSet {
		extras = append(extras, key)
	}
	sort.Strings(extras)

	writer := csv.NewWriter(w)
	header := append([]string{columnName, columnEmail, columnUUID, columnScanned, columnScanTime}, extras...)
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, t := range tickets {
		scanTime := ""
		if !t.RedeemedAt.IsZero() {
			scanTime = t.RedeemedAt.Format(models.ScanTimeFormat)
		}
		row := []string{
			t.HolderName,
			t.HolderEmail,
			t.ID,
			formatBool(t.Redeemed),
			scanTime,
		}
		for _, key := range extras {
			row = append(row, t.Extra[key])
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// formatBool keeps the True/False casing the original roster files use.
func formatBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func fieldOr(row []string, columns map[string]int, name, fallback string) string {
	idx, ok := columns[name]
	if !ok || idx >= len(row) {
		return fallback
	}
	value := strings.TrimSpace(row[idx])
	if value == "" {
		return fallback
	}
	return value
}
