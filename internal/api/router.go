package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/auth"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/logger"
)

// NewRouter wires all boundaries. Scan and observer routes accept both
// roles; ledger administration is admin only.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(requestLogger(h.Logger))

	// --- Public routes ---
	r.Post("/api/login", h.Login)
	r.Get("/health", h.Health)

	// --- Scanner and admin routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.Config.Auth.JWTSecret, auth.RoleScanner))

		r.Post("/api/verify", h.Verify)
		r.Get("/api/stats", h.Stats)
		r.Get("/api/scans/recent", h.RecentScans)
		r.Post("/api/scanner/heartbeat", h.Heartbeat)
		r.Get("/api/events", h.Events)
		r.Get("/ws", h.WebSocket)
	})

	// --- Admin routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(h.Config.Auth.JWTSecret, auth.RoleAdmin))

		r.Route("/api/tickets", func(r chi.Router) {
			r.Get("/", h.ListTickets)
			r.Post("/import", h.Import)
			r.Get("/export", h.Export)
			r.Post("/generate", h.Generate)
		})
	})

	return r
}

// requestLogger records every handled request through the category
// logger. Long-lived streams log once the connection closes.
func requestLogger(log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.LogAPI(r.Method, r.URL.Path, strconv.Itoa(ww.Status()), time.Since(start).String())
		})
	}
}
