// Package handler exposes the session bootstrap endpoints.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sevasetu/internal/platform/cookies"
	"sevasetu/internal/session/models"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/platform/httputil"
	"sevasetu/pkg/requestcontext"
)

// Service is the session operations port consumed by this handler.
type Service interface {
	Create(ctx context.Context, deviceID string) (*models.Session, error)
	Get(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	SetLanguage(ctx context.Context, sessionID id.SessionID, raw string) (id.Language, error)
	Deactivate(ctx context.Context, sessionID id.SessionID) error
}

// Handler serves /session endpoints.
type Handler struct {
	sessions Service
	jar      *cookies.Jar
	logger   *slog.Logger
}

func New(sessions Service, jar *cookies.Jar, logger *slog.Logger) *Handler {
	return &Handler{sessions: sessions, jar: jar, logger: logger}
}

// Register mounts the session routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/session/create", h.handleCreate)
	r.Post("/session/language", h.handleSetLanguage)
	r.Post("/session/logout", h.handleLogout)
}

type createResponse struct {
	SessionID string `json:"session_id"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	deviceID := requestcontext.DeviceID(ctx)
	if deviceID == "" {
		// First contact from this browser: mint the device identifier now so
		// later sessions from the same device correlate.
		deviceID = uuid.NewString()
		ctx = requestcontext.WithDeviceID(ctx, deviceID)
	}

	session, err := h.sessions.Create(ctx, deviceID)
	if err != nil {
		h.logger.ErrorContext(ctx, "session create failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, err)
		return
	}

	h.jar.SetDevice(w, deviceID)
	h.jar.SetSession(w, session.ID.String())
	h.jar.SetCitizen(w, cookies.CitizenGuest)

	httputil.WriteJSON(w, http.StatusCreated, createResponse{SessionID: session.ID.String()})
}

type languageRequest struct {
	Language string `json:"language"`
}

func (h *Handler) handleSetLanguage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := sessionFromCookie(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req languageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}

	lang, err := h.sessions.SetLanguage(ctx, sessionID, req.Language)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeValidation) {
			h.logger.WarnContext(ctx, "invalid language",
				"language", req.Language,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	h.jar.SetLanguage(w, lang.String())
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	sessionID, err := sessionFromCookie(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.sessions.Deactivate(ctx, sessionID); err != nil && !dErrors.Is(err, dErrors.CodeNotFound) {
		httputil.WriteError(w, err)
		return
	}

	h.jar.ClearSession(w)
	w.WriteHeader(http.StatusNoContent)
}

func sessionFromCookie(r *http.Request) (id.SessionID, error) {
	raw := cookies.Value(r, cookies.Session)
	if raw == "" {
		return id.SessionID{}, dErrors.New(dErrors.CodeBadRequest, "no session token presented")
	}
	sessionID, err := id.ParseSessionID(raw)
	if err != nil {
		return id.SessionID{}, dErrors.New(dErrors.CodeBadRequest, "malformed session token")
	}
	return sessionID, nil
}
