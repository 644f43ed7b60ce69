package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sevasetu/internal/consent/models"
	"sevasetu/internal/consent/service"
	"sevasetu/internal/platform/cookies"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/platform/httputil"
)

type Handler struct {
	consents *service.Service
	jar      *cookies.Jar
	logger   *slog.Logger
}

func New(consents *service.Service, jar *cookies.Jar, logger *slog.Logger) *Handler {
	return &Handler{consents: consents, jar: jar, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/consent/session", h.recordForSession)
	r.Post("/consent/application", h.recordForApplication)
	r.Get("/consent/session", h.listForSession)
}

type recordRequest struct {
	ConsentType   string         `json:"consent_type"`
	Purpose       models.Purpose `json:"purpose"`
	ApplicationID string         `json:"application_id,omitempty"`
}

// recordForSession captures the onboarding data-use grant. A ledger write
// failure here is deliberately non-fatal: the consent cookie is still set so
// the citizen is not trapped in the onboarding loop, and the failure is
// logged for reconciliation.
func (h *Handler) recordForSession(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	sessionID, err := h.sessionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	consentType := models.Type(req.ConsentType)
	if consentType == "" {
		consentType = models.TypeDataUse
	}

	log, err := h.consents.RecordForSession(r.Context(), sessionID, consentType, req.Purpose, r.UserAgent())
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeValidation) || dErrors.HasCode(err, dErrors.CodeBadRequest) {
			httputil.WriteError(w, err)
			return
		}
		h.logger.ErrorContext(r.Context(), "consent ledger write failed, proceeding",
			"session_id", sessionID.String(),
			"error", err,
		)
		h.jar.SetConsent(w)
		httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
		return
	}

	h.jar.SetConsent(w)
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"consent_id": log.ID})
}

func (h *Handler) recordForApplication(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	applicationID, err := id.ParseApplicationID(req.ApplicationID)
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "malformed application id"))
		return
	}

	consentType := models.Type(req.ConsentType)
	if consentType == "" {
		consentType = models.TypeSchemeApplication
	}

	log, err := h.consents.RecordForApplication(r.Context(), applicationID, consentType, req.Purpose, r.UserAgent())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{"consent_id": log.ID})
}

func (h *Handler) listForSession(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	logs, err := h.consents.ListBySession(r.Context(), sessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"consents": logs})
}

func (h *Handler) sessionID(r *http.Request) (id.SessionID, error) {
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
