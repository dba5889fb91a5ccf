package auth

import (
	"context"
	"encoding/json"
	"net/http"
)

type contextKey string

const authContextKey contextKey = "authContext"

// AuthContext carries the acting customer's identity into handlers.
// Handlers never trust client-supplied customer ids; address, wishlist
// and order operations are always scoped by this value.
type AuthContext struct {
	CustomerID int64
}

// FromContext returns the AuthContext placed by RequireCustomer, or nil
// for unauthenticated requests.
func FromContext(ctx context.Context) *AuthContext {
	ac, _ := ctx.Value(authContextKey).(*AuthContext)
	return ac
}

// WithAuthContext is exposed for handler tests.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey, ac)
}

// RequireCustomer rejects requests without a valid session before the
// handler runs, and threads the AuthContext through the request context.
func (s *SessionManager) RequireCustomer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		customerID, err := s.CustomerID(r)
		if err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
			return
		}
		ctx := WithAuthContext(r.Context(), &AuthContext{CustomerID: customerID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
