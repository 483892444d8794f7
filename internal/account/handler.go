package account

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/huscsoft/event-core-go/internal/account/entity"
)

// actorFromContext decouples the handler from the auth package (which
// imports this one); the router wires auth.AccountFromContext in.
type actorFromContext func(r *http.Request) *entity.Account

// Handler exposes the account management endpoints. Everything here
// sits behind the admin gate except Me and ChangePassword.
type Handler struct {
	svc    *Service
	actor  actorFromContext
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, actor actorFromContext, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, actor: actor, logger: logger}
}

type createRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
	Active   bool   `json:"active"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	a, err := h.svc.Create(r.Context(), CreateInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
		Phone:    req.Phone,
		Role:     req.Role,
		Active:   req.Active,
	}, h.actor(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	accounts, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	a, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	var patch entity.AccountPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	a, err := h.svc.Patch(r.Context(), id, patch, h.actor(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, a)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.accountID(w, r)
	if !ok {
		return
	}
	if err := h.svc.SoftDelete(r.Context(), id, h.actor(r), time.Now()); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "account deleted"})
}

// Me returns the signed-in account's own profile.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.actor(r))
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.ChangePassword(r.Context(), h.actor(r), req.CurrentPassword, req.NewPassword); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "password updated"})
}

func (h *Handler) accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid account id"})
		return 0, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmailDomain), errors.Is(err, ErrWeakPassword),
		errors.Is(err, ErrBadPhone), errors.Is(err, ErrBadRole):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrBadCredentials):
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrProtectedCreator), errors.Is(err, ErrSelfDelete):
		h.writeJSON(w, http.StatusForbidden, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrDuplicateEmail), errors.Is(err, ErrDuplicatePhone):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.logger.Errorw("account request failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
