package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MuhammadRamzy/Event-Ticket-Manager/internal/auth"
)

const testSecret = "test-secret"

func TestTokenRoundTrip(t *testing.T) {
	token, err := auth.IssueToken(testSecret, "gatekeeper", auth.RoleScanner, time.Hour)
	assert.NoError(t, err)
	assert.NotEmpty(t, token)

	subject, role, err := auth.ParseToken(testSecret, token)
	assert.NoError(t, err)
	assert.Equal(t, "gatekeeper", subject)
	assert.Equal(t, auth.RoleScanner, role)
}

func TestParseTokenWrongSecret(t *testing.T) {
	token, err := auth.IssueToken(testSecret, "gatekeeper", auth.RoleScanner, time.Hour)
	assert.NoError(t, err)

	_, _, err = auth.ParseToken("different-secret", token)
	assert.Error(t, err)
}

func TestParseTokenExpired(t *testing.T) {
	token, err := auth.IssueToken(testSecret, "gatekeeper", auth.RoleScanner, -time.Minute)
	assert.NoError(t, err)

	_, _, err = auth.ParseToken(testSecret, token)
	assert.Error(t, err)
}

func TestExtractTokenFromRequest(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	r.Header.Set("Authorization", "Bearer abc123")
	token, err := auth.ExtractTokenFromRequest(r)
	assert.NoError(t, err)
	assert.Equal(t, "abc123", token)

	// Query fallback for WebSocket and EventSource clients.
	r = httptest.NewRequest(http.MethodGet, "/api/events?token=xyz789", nil)
	token, err = auth.ExtractTokenFromRequest(r)
	assert.NoError(t, err)
	assert.Equal(t, "xyz789", token)

	r = httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	r.Header.Set("Authorization", "Token abc123")
	_, err = auth.ExtractTokenFromRequest(r)
	assert.Error(t, err)

	r = httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	_, err = auth.ExtractTokenFromRequest(r)
	assert.Error(t, err)
}

func TestMiddlewareRoles(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	scannerToken, err := auth.IssueToken(testSecret, "gatekeeper", auth.RoleScanner, time.Hour)
	assert.NoError(t, err)
	adminToken, err := auth.IssueToken(testSecret, "boss", auth.RoleAdmin, time.Hour)
	assert.NoError(t, err)

	tests := []struct {
		name        string
		minimumRole string
		token       string
		wantStatus  int
	}{
		{"scanner on scanner route", auth.RoleScanner, scannerToken, http.StatusOK},
		{"admin on scanner route", auth.RoleScanner, adminToken, http.StatusOK},
		{"admin on admin route", auth.RoleAdmin, adminToken, http.StatusOK},
		{"scanner on admin route", auth.RoleAdmin, scannerToken, http.StatusForbidden},
		{"missing token", auth.RoleScanner, "", http.StatusUnauthorized},
		{"garbage token", auth.RoleScanner, "not-a-jwt", http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := auth.Middleware(testSecret, tc.minimumRole)(next)
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.token != "" {
				r.Header.Set("Authorization", "Bearer "+tc.token)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, r)
			assert.Equal(t, tc.wantStatus, w.Code)
		})
	}
}

func TestMiddlewarePopulatesContext(t *testing.T) {
	var gotUser, gotRole string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = auth.User(r.Context())
		gotRole = auth.Role(r.Context())
	})

	token, err := auth.IssueToken(testSecret, "boss", auth.RoleAdmin, time.Hour)
	assert.NoError(t, err)

	handler := auth.Middleware(testSecret, auth.RoleAdmin)(next)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)

	assert.Equal(t, "boss", gotUser)
	assert.Equal(t, auth.RoleAdmin, gotRole)
}
