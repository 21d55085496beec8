package api_test

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/api"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/auth"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/broadcast"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/config"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/ledger"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/ledger/db"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/logger"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/presence"
	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/scan"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:       "test-secret",
			TokenTTL:        time.Hour,
			AdminUser:       "admin",
			AdminPassword:   "admin-pw",
			ScannerUser:     "scanner",
			ScannerPassword: "scanner-pw",
		},
		Storage: config.StorageConfig{
			UploadDir:   t.TempDir(),
			ExportDir:   t.TempDir(),
			LockTimeout: 2 * time.Second,
		},
		Scanner: config.ScannerConfig{HeartbeatTTL: time.Minute},
	}
}

func setupTestServer(t *testing.T) (*httptest.Server, *config.Config) {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	t.Cleanup(func() { sqldb.Close() })

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	ledgerDB := &db.DB{Bun: bunDB}
	require.NoError(t, ledgerDB.CreateSchema(t.Context()))

	cfg := testConfig(t)
	log := logger.NewLogger()
	store := ledger.NewStore(ledgerDB)
	tracker := presence.NewMemoryTracker(cfg.Scanner.HeartbeatTTL, broadcast.Discard{})
	t.Cleanup(func() { tracker.Close() })

	svc := scan.NewService(store, broadcast.Discard{}, tracker, log)

	h := &api.Handler{
		Config:  cfg,
		Logger:  log,
		Scan:    svc,
		Store:   store,
		Emitter: broadcast.NewEmitter(),
		Tracker: tracker,
	}

	srv := httptest.NewServer(api.NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, cfg
}

func login(t *testing.T, srv *httptest.Server, username, password string) string {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	resp, err := http.Post(srv.URL+"/api/login", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var payload struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		Role    string `json:"role"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.True(t, payload.Success)
	require.NotEmpty(t, payload.Token)
	return payload.Token
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func importCSV(t *testing.T, srv *httptest.Server, token, csv string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "tickets.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/tickets/import", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

func TestLogin(t *testing.T) {
	srv, _ := setupTestServer(t)

	token := login(t, srv, "admin", "admin-pw")
	subject, role, err := auth.ParseToken("test-secret", token)
	assert.NoError(t, err)
	assert.Equal(t, "admin", subject)
	assert.Equal(t, auth.RoleAdmin, role)

	body, _ := json.Marshal(map[string]string{"username": "admin", "password": "wrong"})
	resp, err := http.Post(srv.URL+"/api/login", "application/json", bytes.NewReader(body))
	assert.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyRequiresAuth(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp := doJSON(t, srv, http.MethodPost, "/api/verify", "", map[string]string{"ticket_id": "x"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVerifyBeforeImport(t *testing.T) {
	srv, _ := setupTestServer(t)
	token := login(t, srv, "scanner", "scanner-pw")

	resp := doJSON(t, srv, http.MethodPost, "/api/verify", token, map[string]string{"ticket_id": "x"})
	payload := decodeBody(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, false, payload["success"])
	assert.Equal(t, "No ticket file uploaded", payload["message"])
}

func TestVerifyEmptyTicketID(t *testing.T) {
	srv, _ := setupTestServer(t)
	token := login(t, srv, "scanner", "scanner-pw")

	resp := doJSON(t, srv, http.MethodPost, "/api/verify", token, map[string]string{"ticket_id": "  "})
	payload := decodeBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No ticket ID provided", payload["message"])
}

func TestImportRejectsNonCSV(t *testing.T) {
	srv, _ := setupTestServer(t)
	adminToken := login(t, srv, "admin", "admin-pw")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "tickets.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("name,email\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/tickets/import", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+adminToken)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	payload := decodeBody(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, payload["message"], ".csv")
}

func TestImportRequiresAdmin(t *testing.T) {
	srv, _ := setupTestServer(t)
	scannerToken := login(t, srv, "scanner", "scanner-pw")

	resp := importCSV(t, srv, scannerToken, "name,email\nAlice,alice@example.com\n")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestImportAndScanFlow(t *testing.T) {
	srv, cfg := setupTestServer(t)
	adminToken := login(t, srv, "admin", "admin-pw")
	scannerToken := login(t, srv, "scanner", "scanner-pw")

	csv := "name,email,uuid\n" +
		"Alice,alice@example.com,T-100\n" +
		"Bob,bob@example.com,T-200\n" +
		"Cara,cara@example.com,T-300\n"
	resp := importCSV(t, srv, adminToken, csv)
	payload := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(3), payload["count"])
	assert.Equal(t, "File uploaded successfully - 3 participants loaded", payload["message"])

	// The raw upload is kept alongside the durable ledger.
	_, err := os.Stat(filepath.Join(cfg.Storage.UploadDir, "tickets.csv"))
	assert.NoError(t, err)

	// First scan of a known ticket is valid.
	resp = doJSON(t, srv, http.MethodPost, "/api/verify", scannerToken, map[string]string{"ticket_id": "T-100"})
	payload = decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, true, payload["valid"])
	assert.Equal(t, "Ticket valid", payload["message"])
	data := payload["data"].(map[string]interface{})
	assert.Equal(t, "T-100", data["ticket_id"])
	assert.Equal(t, "Alice", data["name"])
	assert.Equal(t, false, data["already_scanned"])

	// Second scan of the same ticket is a duplicate.
	resp = doJSON(t, srv, http.MethodPost, "/api/verify", scannerToken, map[string]string{"ticket_id": "T-100"})
	payload = decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, false, payload["valid"])
	assert.Equal(t, "Ticket already scanned", payload["message"])
	data = payload["data"].(map[string]interface{})
	assert.Equal(t, true, data["already_scanned"])

	// Unknown ticket.
	resp = doJSON(t, srv, http.MethodPost, "/api/verify", scannerToken, map[string]string{"ticket_id": "T-999"})
	payload = decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, payload["success"])
	assert.Equal(t, false, payload["valid"])
	assert.Equal(t, "Invalid ticket", payload["message"])

	// Aggregates reflect the three scans.
	resp = doJSON(t, srv, http.MethodGet, "/api/stats", scannerToken, nil)
	payload = decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	st := payload["stats"].(map[string]interface{})
	assert.Equal(t, float64(3), st["total_tickets"])
	assert.Equal(t, float64(2), st["scanned"])
	assert.Equal(t, float64(1), st["valid"])
	assert.Equal(t, float64(1), st["invalid"])

	// The scan log is newest first.
	resp = doJSON(t, srv, http.MethodGet, "/api/scans/recent?limit=2", scannerToken, nil)
	payload = decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	scans := payload["scans"].([]interface{})
	require.Len(t, scans, 2)
	first := scans[0].(map[string]interface{})
	assert.Equal(t, "T-999", first["ticket_id"])
}

func TestReimportResetsCounters(t *testing.T) {
	srv, _ := setupTestServer(t)
	adminToken := login(t, srv, "admin", "admin-pw")
	scannerToken := login(t, srv, "scanner", "scanner-pw")

	resp := importCSV(t, srv, adminToken, "name,email,uuid\nAlice,alice@example.com,T-100\n")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodPost, "/api/verify", scannerToken, map[string]string{"ticket_id": "T-100"})
	resp.Body.Close()

	resp = importCSV(t, srv, adminToken, "name,email,uuid\nBob,bob@example.com,T-200\n")
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, srv, http.MethodGet, "/api/stats", scannerToken, nil)
	payload := decodeBody(t, resp)
	st := payload["stats"].(map[string]interface{})
	assert.Equal(t, float64(1), st["total_tickets"])
	assert.Equal(t, float64(0), st["scanned"])
	assert.Equal(t, float64(0), st["valid"])
	assert.Equal(t, float64(0), st["invalid"])
}

func TestExport(t *testing.T) {
	srv, cfg := setupTestServer(t)
	adminToken := login(t, srv, "admin", "admin-pw")

	// Nothing to export yet.
	resp := doJSON(t, srv, http.MethodGet, "/api/tickets/export", adminToken, nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	imp := importCSV(t, srv, adminToken, "name,email,uuid\nAlice,alice@example.com,T-100\n")
	imp.Body.Close()
	require.Equal(t, http.StatusOK, imp.StatusCode)

	resp = doJSON(t, srv, http.MethodGet, "/api/tickets/export", adminToken, nil)
	payload := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), payload["count"])

	exportPath, ok := payload["file_path"].(string)
	require.True(t, ok)
	assert.Equal(t, cfg.Storage.ExportDir, filepath.Dir(exportPath))
	raw, err := os.ReadFile(exportPath)
	assert.NoError(t, err)
	assert.Contains(t, string(raw), "T-100")
}

func TestListTickets(t *testing.T) {
	srv, _ := setupTestServer(t)
	adminToken := login(t, srv, "admin", "admin-pw")

	imp := importCSV(t, srv, adminToken, "name,email,uuid\nAlice,alice@example.com,T-100\n")
	imp.Body.Close()
	require.Equal(t, http.StatusOK, imp.StatusCode)

	resp := doJSON(t, srv, http.MethodGet, "/api/tickets/", adminToken, nil)
	payload := decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), payload["count"])
}

func TestHeartbeatFlipsScannerStatus(t *testing.T) {
	srv, _ := setupTestServer(t)
	scannerToken := login(t, srv, "scanner", "scanner-pw")

	resp := doJSON(t, srv, http.MethodGet, "/api/stats", scannerToken, nil)
	payload := decodeBody(t, resp)
	st := payload["stats"].(map[string]interface{})
	assert.Equal(t, presence.StatusOffline, st["scanner_status"])

	resp = doJSON(t, srv, http.MethodPost, "/api/scanner/heartbeat", scannerToken, nil)
	payload = decodeBody(t, resp)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, presence.StatusOnline, payload["status"])

	resp = doJSON(t, srv, http.MethodGet, "/api/stats", scannerToken, nil)
	payload = decodeBody(t, resp)
	st = payload["stats"].(map[string]interface{})
	assert.Equal(t, presence.StatusOnline, st["scanner_status"])
}

func TestHealthIsPublic(t *testing.T) {
	srv, _ := setupTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	payload := decodeBody(t, resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", payload["status"])
	assert.NotEmpty(t, payload["timestamp"])

	stats, ok := payload["stats"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(0), stats["total_tickets"])
}

func TestEventsStream(t *testing.T) {
	srv, _ := setupTestServer(t)
	scannerToken := login(t, srv, "scanner", "scanner-pw")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/events?token="+scannerToken, nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	// The stream opens with a connected event.
	buf := make([]byte, 64)
	n, err := resp.Body.Read(buf)
	require.NoError(t, err)
	assert.Contains(t, string(buf[:n]), fmt.Sprintf("event: %s", "connected"))
}
