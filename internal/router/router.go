package router

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/huscsoft/event-core-go/internal/account"
	"github.com/huscsoft/event-core-go/internal/account/entity"
	accountrepo "github.com/huscsoft/event-core-go/internal/account/repo"
	"github.com/huscsoft/event-core-go/internal/auth"
	"github.com/huscsoft/event-core-go/internal/event"
	eventrepo "github.com/huscsoft/event-core-go/internal/event/repo"
	"github.com/huscsoft/event-core-go/internal/mail"
	"github.com/huscsoft/event-core-go/internal/schedule"
	"github.com/huscsoft/event-core-go/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// RequestIDMiddleware tags every request with a fresh ID, echoed back
// in the X-Request-Id header.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = utilities.NewRequestID()
			}
			w.Header().Set("X-Request-Id", id)
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware returns a middleware that logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"request_id", lrw.Header().Get("X-Request-Id"),
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
			)
		})
	}
}

// SecurityHeadersMiddleware returns a middleware that sets common HTTP security headers.
// It is intentionally simple and conservative so it works with most setups.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			w.Header().Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			if w.Header().Get("Content-Security-Policy") == "" {
				w.Header().Set("Content-Security-Policy", "default-src 'self'; object-src 'none'; base-uri 'self';")
			}
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes wires repos, services and handlers onto an
// http.ServeMux and wraps it in the middleware chain.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB) http.Handler {
	mux := http.NewServeMux()

	accountRepo := accountrepo.NewAccountRepo(db)
	accountSvc := account.NewService(accountRepo, nil)

	tokens := auth.NewTokenService(auth.ConfigFromEnv())
	mailer := mail.FromEnv(logger)
	authSvc := auth.NewService(accountRepo, tokens, nil, mailer, logger)
	authMW := auth.NewMiddleware(authSvc, logger)
	authHandler := auth.NewHandler(authSvc, logger)

	timetable := schedule.NewTimetable(nil)
	eventSvc := event.NewService(db, eventrepo.NewEventRepo(db), eventrepo.NewParticipationRepo(db), timetable, logger)
	eventHandler := event.NewHandler(eventSvc, logger)

	actor := func(r *http.Request) *entity.Account {
		return auth.AccountFromContext(r.Context())
	}
	accountHandler := account.NewHandler(accountSvc, actor, logger)

	// health
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// auth
	mux.HandleFunc("POST /api/auth/signin", authHandler.SignIn)
	mux.HandleFunc("POST /api/auth/signout", authHandler.SignOut)
	mux.HandleFunc("POST /api/auth/send-verification-email", authHandler.SendVerificationEmail)
	mux.HandleFunc("GET /api/auth/verify", authHandler.Verify)

	// self-service profile
	mux.HandleFunc("GET /api/me", authMW.RequireUser(accountHandler.Me))
	mux.HandleFunc("POST /api/me/change-password", authMW.RequireUser(accountHandler.ChangePassword))

	// account management, admin only
	mux.HandleFunc("GET /api/admin/users", authMW.RequireAdmin(accountHandler.List))
	mux.HandleFunc("POST /api/admin/users", authMW.RequireAdmin(accountHandler.Create))
	mux.HandleFunc("GET /api/admin/users/{id}", authMW.RequireAdmin(accountHandler.Get))
	mux.HandleFunc("PATCH /api/admin/users/{id}", authMW.RequireAdmin(accountHandler.Patch))
	mux.HandleFunc("DELETE /api/admin/users/{id}", authMW.RequireAdmin(accountHandler.Delete))

	// events
	mux.HandleFunc("GET /api/events", authMW.RequireUser(eventHandler.List))
	mux.HandleFunc("POST /api/events", authMW.RequireAdmin(eventHandler.Create))
	mux.HandleFunc("GET /api/events/{id}", authMW.RequireUser(eventHandler.Get))
	mux.HandleFunc("PUT /api/events/{id}", authMW.RequireAdmin(eventHandler.Update))
	mux.HandleFunc("DELETE /api/events/{id}", authMW.RequireAdmin(eventHandler.Delete))
	mux.HandleFunc("GET /api/events/{id}/participants", authMW.RequireUser(eventHandler.Roster))
	mux.HandleFunc("POST /api/events/{id}/join", authMW.RequireUser(eventHandler.Join))
	mux.HandleFunc("POST /api/events/{id}/leave", authMW.RequireUser(eventHandler.Leave))
	mux.HandleFunc("POST /api/events/{id}/attend", authMW.RequireUser(eventHandler.Attend))
	mux.HandleFunc("POST /api/events/{id}/lock", authMW.RequireAdmin(eventHandler.Lock))
	mux.HandleFunc("POST /api/events/{id}/unlock", authMW.RequireAdmin(eventHandler.Unlock))

	return RequestIDMiddleware()(LoggingMiddleware(logger)(SecurityHeadersMiddleware()(mux)))
}
