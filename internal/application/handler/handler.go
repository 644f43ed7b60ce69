// Package handler exposes the citizen-facing application routes, including
// the SSE status stream.
package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sevasetu/internal/application/models"
	"sevasetu/internal/application/service"
	"sevasetu/internal/application/stream"
	"sevasetu/internal/turn"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/platform/httputil"
)

type Handler struct {
	apps   *service.Service
	hub    *stream.Hub
	turns  turn.Processor
	logger *slog.Logger
}

func New(apps *service.Service, hub *stream.Hub, turns turn.Processor, logger *slog.Logger) *Handler {
	return &Handler{apps: apps, hub: hub, turns: turns, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/applications", func(r chi.Router) {
		r.Post("/", h.create)
		r.Route("/{applicationID}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Post("/submit", h.submit)
			r.Post("/steps", h.saveStep)
			r.Get("/steps", h.listSteps)
			r.Post("/snapshot", h.snapshot)
			r.Post("/turn", h.processTurn)
			r.Get("/timeline", h.timeline)
			r.Get("/events", h.events)
		})
	})
}

func (h *Handler) applicationID(r *http.Request) (id.ApplicationID, error) {
	raw := chi.URLParam(r, "applicationID")
	applicationID, err := id.ParseApplicationID(raw)
	if err != nil {
		return id.ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "malformed application id")
	}
	return applicationID, nil
}

type createRequest struct {
	CitizenID  string      `json:"citizen_id"`
	FamilyID   string      `json:"family_id"`
	ServiceRef string      `json:"service_ref"`
	Meta       models.Meta `json:"metadata"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	citizenID, err := id.ParseCitizenID(req.CitizenID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed citizen id"))
		return
	}

	app, err := h.apps.Create(r.Context(), citizenID, req.FamilyID, req.ServiceRef, req.Meta)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.apps.Get(r.Context(), applicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

type submitRequest struct {
	ConsentID string `json:"consent_id"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req submitRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.ConsentID == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "consent is required to submit"))
		return
	}
	consentID, err := id.ParseConsentID(req.ConsentID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "malformed consent id"))
		return
	}

	result, err := h.apps.Submit(r.Context(), applicationID, consentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

type stepRequest struct {
	StepID string `json:"step_id"`
	Answer string `json:"answer"`
}

func (h *Handler) saveStep(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req stepRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.apps.SaveStep(r.Context(), applicationID, req.StepID, req.Answer); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listSteps(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	steps, err := h.apps.GetSteps(r.Context(), applicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"steps": steps})
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	snapshot, err := h.apps.Snapshot(r.Context(), applicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"snapshot_id": snapshot.ID, "taken_at": snapshot.TakenAt})
}

type turnRequest struct {
	StepID    string `json:"step_id"`
	Utterance string `json:"utterance"`
	Language  string `json:"language"`
}

// processTurn forwards the utterance to the NLU engine and stores the
// structured answer it returns as a step answer.
func (h *Handler) processTurn(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req turnRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	lang, err := id.ParseLanguage(req.Language)
	if err != nil {
		lang = id.LanguageHindi
	}
	result, err := h.turns.ProcessTurn(r.Context(), turn.Input{
		ApplicationID: applicationID,
		StepID:        req.StepID,
		Utterance:     req.Utterance,
		Language:      lang,
	})
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "turn processing failed"))
		return
	}

	if result.Answer != "" {
		if err := h.apps.SaveStep(r.Context(), applicationID, req.StepID, result.Answer); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	events, err := h.apps.Timeline(r.Context(), applicationID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"events": events})
}

// events streams status events for one application as SSE until the client
// disconnects.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := h.hub.Subscribe(r.Context(), applicationID)
	for event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			h.logger.ErrorContext(r.Context(), "marshal status event", "error", err)
			continue
		}
		fmt.Fprintf(w, "event: status\ndata: %s\n\n", payload)
		flusher.Flush()
	}
}
