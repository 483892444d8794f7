package event

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/huscsoft/event-core-go/internal/auth"
)

// Handler exposes the event lifecycle, membership and attendance
// endpoints.
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	e, err := h.svc.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	events, err := h.svc.List(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	d, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

type updateRequest struct {
	CreateInput
	Status string `json:"status"`
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	e, err := h.svc.Update(r.Context(), id, req.CreateInput, req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, e)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "event deleted"})
}

func (h *Handler) Lock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, true, "event locked")
}

func (h *Handler) Unlock(w http.ResponseWriter, r *http.Request) {
	h.setLocked(w, r, false, "event unlocked")
}

func (h *Handler) setLocked(w http.ResponseWriter, r *http.Request, locked bool, msg string) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	if err := h.svc.SetLocked(r.Context(), id, locked); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

func (h *Handler) Roster(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	roster, err := h.svc.Roster(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, roster)
}

type joinRequest struct {
	Role string `json:"role"`
}

func (h *Handler) Join(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	acct := auth.AccountFromContext(r.Context())
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	if err := h.svc.Join(r.Context(), id, acct.ID, req.Role); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "joined event"})
}

func (h *Handler) Leave(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	acct := auth.AccountFromContext(r.Context())
	if err := h.svc.Leave(r.Context(), id, acct.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "left event"})
}

func (h *Handler) Attend(w http.ResponseWriter, r *http.Request) {
	id, ok := h.eventID(w, r)
	if !ok {
		return
	}
	acct := auth.AccountFromContext(r.Context())
	if err := h.svc.Attend(r.Context(), id, acct.ID); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "attendance recorded"})
}

func (h *Handler) eventID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event id"})
		return 0, false
	}
	return id, true
}

// writeError maps service and policy rejections onto statuses:
// validation 400, missing or deleted 404, state conflicts 409.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadName), errors.Is(err, ErrBadPeriod), errors.Is(err, ErrPeriodOrder),
		errors.Is(err, ErrBadCaps), errors.Is(err, ErrBadStatus), errors.Is(err, ErrBadEventRole):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrEventDeleted):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, ErrEventLocked), errors.Is(err, ErrAlreadyJoined), errors.Is(err, ErrRoleAtCapacity),
		errors.Is(err, ErrEventFull), errors.Is(err, ErrNotJoined), errors.Is(err, ErrAlreadyAttended),
		errors.Is(err, ErrNotEnded):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		h.logger.Errorw("event request failed", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
