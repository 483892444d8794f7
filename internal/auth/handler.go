package auth

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"go.uber.org/zap"

	"github.com/huscsoft/event-core-go/internal/account"
)

// Handler exposes the signin / signout / verification endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}

	res, err := h.svc.SignIn(r.Context(), req.Email, req.Password, clientAddr(r))
	if err != nil {
		h.logger.Debugw("signin failed", "err", err)
		switch {
		case errors.Is(err, ErrRateLimited):
			h.writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrBadCredentials):
			w.Header().Set("WWW-Authenticate", "Bearer")
			h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrNotActivated):
			h.writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
		case errors.Is(err, account.ErrEmailDomain), errors.Is(err, account.ErrWeakPassword):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "signin failed"})
		}
		return
	}

	if res.Bootstrapped {
		h.writeJSON(w, http.StatusCreated, map[string]string{
			"message": "admin account created, check your email to activate it before signing in",
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "Bearer " + res.Token,
		Path:     "/",
		MaxAge:   1800,
		SameSite: http.SameSiteLaxMode,
	})
	h.writeJSON(w, http.StatusOK, TokenResponse{AccessToken: res.Token, TokenType: "bearer"})
}

func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   CookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "signed out"})
}

type EmailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) SendVerificationEmail(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		switch {
		case errors.Is(err, ErrUnknownAccount):
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		case errors.Is(err, ErrAlreadyActive):
			h.writeJSON(w, http.StatusOK, map[string]string{"message": "account is already activated"})
		default:
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not send verification email"})
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "verification email sent"})
}

func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing token"})
		return
	}
	if err := h.svc.Verify(r.Context(), token); err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken):
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "could not validate token or token expired"})
		case errors.Is(err, ErrUnknownAccount):
			h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
		default:
			h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "verification failed"})
		}
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "account activated, you can sign in now"})
}

// clientAddr strips the port so the signin rate limit keys on the
// remote host alone.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
