// Package httpapi exposes the dialogue driver over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	contractx "github.com/careline/clinic-agent/agent/contract"
	"github.com/careline/clinic-agent/agent/driver"
)

// Caller headers. Authentication happens upstream; these carry the already
// verified role and identity into the orchestrator.
const (
	HeaderCallerRole     = "X-Caller-Role"
	HeaderCallerIdentity = "X-Caller-Identity"
)

type Handler struct {
	driver *driver.Driver
	log    zerolog.Logger
}

func NewHandler(d *driver.Driver, log zerolog.Logger) *Handler {
	return &Handler{driver: d, log: log}
}

// Router assembles the full route tree. metricsHandler may be nil.
func Router(h *Handler, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	r.Route("/api", func(r chi.Router) {
		r.Post("/ai", h.Converse)
		r.Get("/session/{sessionID}", h.Transcript)
	})
	return r
}

type converseRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// Converse handles one conversational message.
// POST /api/ai
func (h *Handler) Converse(w http.ResponseWriter, r *http.Request) {
	var req converseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	result, err := h.driver.HandleMessage(r.Context(), req.SessionID, req.Message, callerFrom(r))
	if err != nil {
		if errors.Is(err, contractx.ErrValidation) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Msg("turn failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type transcriptResponse struct {
	SessionID string           `json:"session_id"`
	Turns     []contractx.Turn `json:"turns"`
}

// Transcript returns a session's recorded turns.
// GET /api/session/{sessionID}
func (h *Handler) Transcript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sessions := h.driver.Sessions()
	if !sessions.Known(id) {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, transcriptResponse{
		SessionID: id,
		Turns:     sessions.History(id),
	})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// callerFrom maps the trusted headers to a caller context. Unknown or
// missing roles are treated as unauthenticated rather than rejected; the
// role gate downstream decides what that caller may do.
func callerFrom(r *http.Request) contractx.CallerContext {
	caller := contractx.CallerContext{
		Role:     contractx.RoleUnauthenticated,
		Identity: strings.TrimSpace(r.Header.Get(HeaderCallerIdentity)),
	}
	switch contractx.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderCallerRole)))) {
	case contractx.RolePatient:
		caller.Role = contractx.RolePatient
	case contractx.RoleDoctor:
		caller.Role = contractx.RoleDoctor
	}
	return caller
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
