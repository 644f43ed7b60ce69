package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"sevasetu/internal/admin"
	adminsvc "sevasetu/internal/admin/service"
	appmodels "sevasetu/internal/application/models"
	appsvc "sevasetu/internal/application/service"
	appstore "sevasetu/internal/application/store"
	"sevasetu/internal/platform/cookies"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/platform/httputil"
	"sevasetu/pkg/requestcontext"
)

// Handler exposes the staff surface under /admin.
type Handler struct {
	admins  *adminsvc.Service
	apps    *appsvc.Service
	jar     *cookies.Jar
	auditor admin.AuditPublisher
	logger  *slog.Logger
}

func New(admins *adminsvc.Service, apps *appsvc.Service, jar *cookies.Jar, auditor admin.AuditPublisher, logger *slog.Logger) *Handler {
	return &Handler{admins: admins, apps: apps, jar: jar, auditor: auditor, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/admin", func(r chi.Router) {
		r.Post("/auth/login", h.login)
		r.Post("/auth/logout", h.logout)

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdmin(h.admins))
			r.Get("/auth/me", h.currentUser)
			r.Get("/applications", h.listApplications)
			r.Get("/applications/{applicationID}/timeline", h.timeline)

			r.Group(func(r chi.Router) {
				r.Use(admin.RequireWriteRole(h.auditor))
				r.Post("/applications/{applicationID}/status", h.setStatus)
			})
		})
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "email and password are required"))
		return
	}

	session, _, err := h.admins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.jar.SetAdmin(w, session.Token)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := cookies.Value(r, cookies.Admin)
	if err := h.admins.Logout(r.Context(), token); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.jar.ClearAdmin(w)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	token := cookies.Value(r, cookies.Admin)
	admin, err := h.admins.CurrentUser(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if admin == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin session required"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, admin)
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	filter := appstore.ListFilter{Limit: 100}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := appmodels.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > 500 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 500"))
			return
		}
		filter.Limit = limit
	}

	apps, err := h.apps.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"applications": apps})
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

type setStatusRequest struct {
	Status  string `json:"status"`
	Remarks string `json:"remarks"`
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	applicationID, err := h.applicationID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	var req setStatusRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := appmodels.ParseStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	actorID := requestcontext.AdminID(r.Context())
	if err := h.apps.AdminSetStatus(r.Context(), applicationID, status, actorID, req.Remarks); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) applicationID(r *http.Request) (id.ApplicationID, error) {
	applicationID, err := id.ParseApplicationID(chi.URLParam(r, "applicationID"))
	if err != nil {
		return id.ApplicationID{}, dErrors.New(dErrors.CodeInvalidInput, "malformed application id")
	}
	return applicationID, nil
}
