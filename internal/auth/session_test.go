package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionManager(ttl time.Duration) *SessionManager {
	return NewSessionManager("session-test-secret", ttl, "bookshop_session")
}

func TestSessionManager_EstablishAndExtract(t *testing.T) {
	sm := newTestSessionManager(time.Hour)

	rec := httptest.NewRecorder()
	err := sm.Establish(rec, 42)
	require.NoError(t, err)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	cookie := cookies[0]
	assert.Equal(t, "bookshop_session", cookie.Name)
	assert.True(t, cookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)

	customerID, err := sm.CustomerID(req)
	require.NoError(t, err)
	assert.Equal(t, int64(42), customerID)
}

func TestSessionManager_Terminate(t *testing.T) {
	sm := newTestSessionManager(time.Hour)

	rec := httptest.NewRecorder()
	sm.Terminate(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.Negative(t, cookies[0].MaxAge)
}

func TestSessionManager_MissingCookie(t *testing.T) {
	sm := newTestSessionManager(time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	_, err := sm.CustomerID(req)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionManager_ExpiredSession(t *testing.T) {
	sm := newTestSessionManager(-time.Minute) // already expired at issue

	rec := httptest.NewRecorder()
	require.NoError(t, sm.Establish(rec, 7))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	_, err := sm.CustomerID(req)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessionManager_WrongSecret(t *testing.T) {
	sm := newTestSessionManager(time.Hour)
	rec := httptest.NewRecorder()
	require.NoError(t, sm.Establish(rec, 7))

	other := NewSessionManager("another-secret", time.Hour, "bookshop_session")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	_, err := other.CustomerID(req)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestRequireCustomer(t *testing.T) {
	sm := newTestSessionManager(time.Hour)

	var seen *AuthContext
	handler := sm.RequireCustomer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Unauthenticated request is rejected before the handler runs.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, seen)

	// Authenticated request reaches the handler with an AuthContext.
	login := httptest.NewRecorder()
	require.NoError(t, sm.Establish(login, 99))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(login.Result().Cookies()[0])

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, int64(99), seen.CustomerID)
}
