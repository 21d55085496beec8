package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/broadcast"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/importer"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/ledger"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/qr"
)

// maxUploadSize caps roster uploads at 16MB.
const maxUploadSize = 16 << 20

// Import replaces the active ledger with an uploaded CSV roster.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		h.fail(w, http.StatusBadRequest, "No file part")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.fail(w, http.StatusBadRequest, "No selected file")
		return
	}
	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		h.fail(w, http.StatusBadRequest, "Invalid file format. Please upload a .csv file")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		h.fail(w, http.StatusBadRequest, "Error reading file: "+err.Error())
		return
	}

	tickets, err := importer.ParseCSV(bytes.NewReader(raw))
	if err != nil {
		h.fail(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Config.Storage.LockTimeout)
	defer cancel()

	if err := h.Store.LoadBatch(ctx, tickets); err != nil {
		switch {
		case errors.Is(err, ledger.ErrValidation):
			h.fail(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ledger.ErrTimeout):
			h.fail(w, http.StatusServiceUnavailable, "Ledger busy, please retry")
		default:
			h.Logger.Error("IMPORT", fmt.Sprintf("failed to load batch: %v", err))
			h.fail(w, http.StatusInternalServerError, "Error processing file: "+err.Error())
		}
		return
	}

	// The running counters belong to the replaced ledger's lifecycle.
	h.Scan.Reset()

	h.keepUploadCopy(raw)

	if st, err := h.Scan.Stats(r.Context()); err == nil {
		h.Scan.Publisher.Publish(broadcast.Event{Type: broadcast.EventStatsUpdate, Data: st})
	}

	h.Logger.Info("IMPORT", fmt.Sprintf("Ticket file imported: %d records", len(tickets)))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": fmt.Sprintf("File uploaded successfully - %d participants loaded", len(tickets)),
		"count":   len(tickets),
	})
}

// keepUploadCopy stores the raw upload for operator reference. The
// SQLite ledger is authoritative; losing this copy is harmless.
func (h *Handler) keepUploadCopy(raw []byte) {
	if err := os.MkdirAll(h.Config.Storage.UploadDir, 0755); err != nil {
		h.Logger.Warn("IMPORT", fmt.Sprintf("failed to create upload dir: %v", err))
		return
	}
	path := filepath.Join(h.Config.Storage.UploadDir, "tickets.csv")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		h.Logger.Warn("IMPORT", fmt.Sprintf("failed to keep upload copy: %v", err))
	}
}

// Export writes a timestamped CSV snapshot of the current ledger
// without mutating it.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	if !h.Store.Loaded() {
		h.fail(w, http.StatusConflict, "No data to export")
		return
	}

	snapshot, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.fail(w, http.StatusServiceUnavailable, "Ledger busy, please retry")
		return
	}

	if err := os.MkdirAll(h.Config.Storage.ExportDir, 0755); err != nil {
		h.fail(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}

	exportPath := filepath.Join(h.Config.Storage.ExportDir,
		fmt.Sprintf("export_%s.csv", time.Now().Format("20060102_150405")))

	out, err := os.Create(exportPath)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}
	defer out.Close()

	if err := importer.WriteSnapshot(out, snapshot); err != nil {
		h.fail(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}

	h.Logger.Info("EXPORT", fmt.Sprintf("Ledger exported to %s (%d records)", exportPath, len(snapshot)))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"message":   "Data exported successfully",
		"file_path": exportPath,
		"count":     len(snapshot),
	})
}

// Generate renders QR codes for every ticket in the ledger.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	if !h.Store.Loaded() {
		h.fail(w, http.StatusConflict, "No ticket file uploaded")
		return
	}

	snapshot, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.fail(w, http.StatusServiceUnavailable, "Ledger busy, please retry")
		return
	}

	codes, err := qr.GenerateBatch(snapshot)
	if err != nil {
		h.Logger.Error("QR", fmt.Sprintf("failed to generate codes: %v", err))
		h.fail(w, http.StatusInternalServerError, "Error: "+err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":  true,
		"message":  fmt.Sprintf("%d tickets generated successfully", len(codes)),
		"qr_codes": codes,
	})
}

// ListTickets serves a read-only snapshot of the ledger.
func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.Store.Snapshot(r.Context())
	if err != nil {
		h.fail(w, http.StatusServiceUnavailable, "Ledger busy, please retry")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"tickets": snapshot,
		"count":   len(snapshot),
	})
}
