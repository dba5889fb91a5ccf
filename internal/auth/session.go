// Package auth owns the browser session: a signed JWT carried in an
// HTTP-only cookie, plus the middleware that turns it into an explicit
// AuthContext for handlers. Nothing here touches the database; the
// session only vouches for a customer id.
package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrNoSession      = errors.New("auth: no session")
	ErrInvalidSession = errors.New("auth: invalid session")
)

// SessionManager issues and clears session cookies and validates
// incoming ones.
type SessionManager struct {
	secret     []byte
	ttl        time.Duration
	cookieName string
}

func NewSessionManager(secret string, ttl time.Duration, cookieName string) *SessionManager {
	return &SessionManager{
		secret:     []byte(secret),
		ttl:        ttl,
		cookieName: cookieName,
	}
}

// Establish starts an authenticated session for customerID by setting
// the session cookie on the response.
func (s *SessionManager) Establish(w http.ResponseWriter, customerID int64) error {
	tok, err := s.issue(customerID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Terminate clears the session cookie.
func (s *SessionManager) Terminate(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// CustomerID extracts and validates the session from the request,
// returning the authenticated customer id.
func (s *SessionManager) CustomerID(r *http.Request) (int64, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil {
		return 0, ErrNoSession
	}
	return s.validate(cookie.Value)
}

func (s *SessionManager) issue(customerID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": customerID,
		"iat": now.Unix(),
		"exp": now.Add(s.ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *SessionManager) validate(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return 0, ErrInvalidSession
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, ErrInvalidSession
	}
	// JSON numbers arrive as float64.
	sub, ok := claims["sub"].(float64)
	if !ok {
		return 0, ErrInvalidSession
	}
	return int64(sub), nil
}
