package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/username/ledgerlens/backend/src/logger"
	"github.com/username/ledgerlens/backend/src/security"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	m.Run()
}

func TestSendJSONError(t *testing.T) {
	rec := httptest.NewRecorder()
	sendJSONError(rec, "something broke", http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error": "something broke"}`, rec.Body.String())
}

func TestParseDateBound(t *testing.T) {
	bound, err := parseDateBound("")
	require.NoError(t, err)
	assert.Nil(t, bound)

	bound, err = parseDateBound("2026-03-14")
	require.NoError(t, err)
	require.NotNil(t, bound)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), *bound)

	bound, err = parseDateBound("2026-03-14T10:30:00Z")
	require.NoError(t, err)
	require.NotNil(t, bound)
	assert.Equal(t, 10, bound.Hour())

	_, err = parseDateBound("14/03/2026")
	require.Error(t, err)
}

func TestParsePeriod(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/books/b1/pnl?year=2026&month=3", nil)
	year, month, err := parsePeriod(r)
	require.NoError(t, err)
	assert.Equal(t, 2026, year)
	assert.Equal(t, 3, month)

	r = httptest.NewRequest(http.MethodGet, "/api/books/b1/pnl", nil)
	year, month, err = parsePeriod(r)
	require.NoError(t, err)
	now := time.Now().UTC()
	assert.Equal(t, now.Year(), year)
	assert.Equal(t, int(now.Month()), month)

	r = httptest.NewRequest(http.MethodGet, "/api/books/b1/pnl?year=2026&month=13", nil)
	_, _, err = parsePeriod(r)
	require.Error(t, err)

	r = httptest.NewRequest(http.MethodGet, "/api/books/b1/pnl?year=abc&month=3", nil)
	_, _, err = parsePeriod(r)
	require.Error(t, err)
}

func TestAuthMiddleware(t *testing.T) {
	authService := security.NewAuthService("test-secret-with-at-least-32-bytes!", time.Hour)
	protected := AuthMiddleware(authService)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/books", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		r.Header.Set("Authorization", "Bearer bogus")
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token", func(t *testing.T) {
		token, err := authService.GenerateToken("admin")
		require.NoError(t, err)

		r := httptest.NewRequest(http.MethodGet, "/api/books", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected.ServeHTTP(rec, r)
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})
}
