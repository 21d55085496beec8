// Package api exposes the ticket manager over HTTP: the scan boundary,
// the statistics and live-update boundaries, and the admin import,
// export and QR generation endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/auth"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/broadcast"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/config"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/ledger"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/logger"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/models"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/presence"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/scan"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/ws"
)

type Handler struct {
	Config  *config.Config
	Logger  *logger.Logger
	Scan    *scan.Service
	Store   *ledger.Store
	Emitter *broadcast.Emitter
	Hub     *ws.Hub
	Tracker presence.Tracker
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// fail sends the uniform failure envelope.
func (h *Handler) fail(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login exchanges operator credentials for a role-scoped token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var role string
	switch {
	case req.Username == h.Config.Auth.AdminUser && req.Password == h.Config.Auth.AdminPassword:
		role = auth.RoleAdmin
	case req.Username == h.Config.Auth.ScannerUser && req.Password == h.Config.Auth.ScannerPassword:
		role = auth.RoleScanner
	default:
		h.Logger.Warn("AUTH", fmt.Sprintf("Failed login attempt: %s", req.Username))
		h.fail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.IssueToken(h.Config.Auth.JWTSecret, req.Username, role, h.Config.Auth.TokenTTL)
	if err != nil {
		h.fail(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	h.Logger.Info("AUTH", fmt.Sprintf("%s login: %s", role, req.Username))
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"role":    role,
	})
}

type verifyRequest struct {
	TicketID string `json:"ticket_id"`
}

type verifyResponse struct {
	Success bool          `json:"success"`
	Valid   bool          `json:"valid"`
	Message string        `json:"message"`
	Data    scan.ScanData `json:"data"`
}

// Verify handles one scan. Business outcomes (valid, duplicate,
// unknown) respond success=true with the verdict; structural failures
// respond success=false so operators can tell them apart.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Config.Storage.LockTimeout)
	defer cancel()

	result, err := h.Scan.Verify(ctx, req.TicketID)
	if err != nil {
		switch {
		case errors.Is(err, scan.ErrInvalidInput):
			h.fail(w, http.StatusBadRequest, "No ticket ID provided")
		case errors.Is(err, ledger.ErrNotLoaded):
			h.fail(w, http.StatusConflict, "No ticket file uploaded")
		case errors.Is(err, ledger.ErrTimeout):
			h.fail(w, http.StatusServiceUnavailable, "Ledger busy, please retry")
		default:
			h.Logger.Error("SCAN", fmt.Sprintf("verification failed: %v", err))
			h.fail(w, http.StatusInternalServerError, "Error: "+err.Error())
		}
		return
	}

	respondJSON(w, http.StatusOK, verifyResponse{
		Success: true,
		Valid:   result.Valid,
		Message: result.Message,
		Data:    result.Data,
	})
}

// Stats serves the current aggregate snapshot.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.Scan.Stats(r.Context())
	if err != nil {
		h.Logger.Error("STATS", fmt.Sprintf("failed to compute stats: %v", err))
		h.fail(w, http.StatusInternalServerError, "Failed to compute statistics")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"stats":   st,
	})
}

// RecentScans serves the bounded scan log, newest first.
func (h *Handler) RecentScans(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"scans":   h.Scan.Recent(limit),
	})
}

// Heartbeat marks the calling scanner as online.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	scannerID := auth.User(r.Context())
	if scannerID == "" {
		scannerID = "scanner"
	}

	if err := h.Tracker.Heartbeat(r.Context(), scannerID); err != nil {
		h.Logger.Error("PRESENCE", fmt.Sprintf("heartbeat failed: %v", err))
		h.fail(w, http.StatusInternalServerError, "Failed to record heartbeat")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"status":  presence.StatusOnline,
	})
}

// Health reports liveness plus the current statistics snapshot.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st, err := h.Scan.Stats(r.Context())
	if err != nil {
		// Liveness holds even when the ledger backend is struggling.
		st = models.Stats{ScannerStatus: presence.StatusOffline}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"stats":     st,
	})
}

// WebSocket upgrades an observer connection onto the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	h.Hub.ServeWS(w, r)
}
