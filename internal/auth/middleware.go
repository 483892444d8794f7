package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/huscsoft/event-core-go/internal/account/entity"
)

type ctxKey struct{}

// AccountFromContext returns the authenticated account placed by the
// middleware, or nil.
func AccountFromContext(ctx context.Context) *entity.Account {
	acct, _ := ctx.Value(ctxKey{}).(*entity.Account)
	return acct
}

// CookieName carries the session token for browser clients; the
// Authorization header wins when both are present.
const CookieName = "access_token"

// Middleware gates routes on a valid, current-version session token.
type Middleware struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewMiddleware(svc *Service, logger *zap.SugaredLogger) *Middleware {
	return &Middleware{svc: svc, logger: logger}
}

// RequireUser rejects requests without a valid session and stores the
// account in the request context. Stale-version and malformed tokens
// both answer 401: the client's only recourse is to sign in again.
func (m *Middleware) RequireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			unauthorized(w, "missing credentials")
			return
		}
		acct, err := m.svc.Authenticate(r.Context(), token)
		if err != nil {
			m.logger.Debugw("auth rejected", "path", r.URL.Path, "err", err)
			unauthorized(w, "re-authenticate")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, acct)
		next(w, r.WithContext(ctx))
	}
}

// RequireAdmin additionally demands the admin role.
func (m *Middleware) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return m.RequireUser(func(w http.ResponseWriter, r *http.Request) {
		acct := AccountFromContext(r.Context())
		if acct == nil || !acct.IsAdmin() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "not enough permissions"})
			return
		}
		next(w, r)
	})
}

func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
			return strings.TrimSpace(auth[len("bearer "):])
		}
		return ""
	}
	if c, err := r.Cookie(CookieName); err == nil {
		v := c.Value
		if strings.HasPrefix(v, "Bearer ") {
			v = strings.TrimPrefix(v, "Bearer ")
		}
		return v
	}
	return ""
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
