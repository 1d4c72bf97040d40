package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"rollcall/internal/platform/httputil"
	"rollcall/internal/session"
)

// stopTimeout bounds how long a stop request waits for the final sweep.
const stopTimeout = 15 * time.Second

// Controller defines the session lifecycle operations the control surface
// exposes. *session.Manager satisfies it.
type Controller interface {
	Start(cfg session.Config) (uuid.UUID, error)
	Stop(ctx context.Context) error
	Status() (session.Info, error)
}

// Handler wires the session control endpoints to the manager.
type Handler struct {
	controller Controller
	defaults   session.Config
	logger     *slog.Logger
}

// New constructs a session handler. defaults holds the configured attendance
// rules applied to every started session.
func New(controller Controller, defaults session.Config, logger *slog.Logger) *Handler {
	return &Handler{
		controller: controller,
		defaults:   defaults,
		logger:     logger,
	}
}

// Register mounts session control endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/session/start", h.HandleStart)
	r.Post("/session/stop", h.HandleStop)
	r.Get("/session/status", h.HandleStatus)
}

// StartRequest optionally overrides the configured session runtime.
type StartRequest struct {
	DurationMinutes int `json:"duration_minutes,omitempty"`
}

// StartResponse reports the identifier of the launched session.
type StartResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	State     string    `json:"state"`
}

// StatusResponse is the wire shape of GET /session/status.
type StatusResponse struct {
	State     string     `json:"state"`
	SessionID *uuid.UUID `json:"session_id,omitempty"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	SlotStart *time.Time `json:"slot_start,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

// HandleStart handles POST /session/start requests.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cfg := h.defaults
	if r.ContentLength > 0 {
		req, ok := httputil.DecodeJSON[StartRequest](w, r)
		if !ok {
			return
		}
		if req.DurationMinutes < 0 {
			httputil.WriteBadRequest(w, "duration_minutes must not be negative")
			return
		}
		if req.DurationMinutes > 0 {
			cfg.SessionDuration = time.Duration(req.DurationMinutes) * time.Minute
		}
	}

	id, err := h.controller.Start(cfg)
	if err != nil {
		h.logger.WarnContext(ctx, "session start rejected", "error", err)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "session start accepted", "session_id", id)
	httputil.WriteJSON(w, http.StatusAccepted, StartResponse{
		SessionID: id,
		State:     string(session.StateRunning),
	})
}

// HandleStop handles POST /session/stop requests. It blocks until the
// session has flushed its final records or the stop timeout elapses.
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), stopTimeout)
	defer cancel()

	if err := h.controller.Stop(ctx); err != nil {
		h.logger.ErrorContext(r.Context(), "session stop failed", "error", err)
		httputil.WriteError(w, err)
		return
	}

	info, _ := h.controller.Status()
	h.logger.InfoContext(r.Context(), "session stopped")
	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(info, nil))
}

// HandleStatus handles GET /session/status requests.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	info, lastErr := h.controller.Status()
	httputil.WriteJSON(w, http.StatusOK, toStatusResponse(info, lastErr))
}

func toStatusResponse(info session.Info, lastErr error) StatusResponse {
	resp := StatusResponse{State: string(info.State)}
	if info.SessionID != uuid.Nil {
		id := info.SessionID
		resp.SessionID = &id
	}
	if !info.StartedAt.IsZero() {
		at := info.StartedAt
		resp.StartedAt = &at
	}
	if !info.SlotStart.IsZero() {
		at := info.SlotStart
		resp.SlotStart = &at
	}
	if lastErr != nil {
		resp.LastError = lastErr.Error()
	}
	return resp
}
