package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"sevasetu/internal/citizen/service"
	"sevasetu/internal/platform/cookies"
	sessionsvc "sevasetu/internal/session/service"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/platform/httputil"
	"sevasetu/pkg/requestcontext"
)

// Handler exposes citizen registration, login, and profile routes.
type Handler struct {
	citizens *service.Service
	sessions *sessionsvc.Service
	jar      *cookies.Jar
	logger   *slog.Logger
}

func New(citizens *service.Service, sessions *sessionsvc.Service, jar *cookies.Jar, logger *slog.Logger) *Handler {
	return &Handler{citizens: citizens, sessions: sessions, jar: jar, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/register", h.register)
	r.Post("/auth/session", h.authSession)
	r.Post("/auth/link-session", h.linkSession)
	r.Get("/auth/user", h.currentUser)
	r.Get("/user/me", h.profile)
}

type registerRequest struct {
	Phone      string `json:"phone"`
	FamilyID   string `json:"family_id"`
	Name       string `json:"name"`
	Credential string `json:"credential"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	ctx := h.withSession(r)
	result, err := h.citizens.RegisterOrLogin(ctx, service.RegisterOrLoginRequest{
		Phone:      req.Phone,
		FamilyID:   req.FamilyID,
		Name:       req.Name,
		Credential: req.Credential,
	})
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.jar.SetCitizen(w, result.CitizenID.String())
	status := http.StatusOK
	if result.Registered {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, result)
}

type authSessionRequest struct {
	Mode       string `json:"mode"`
	Phone      string `json:"phone"`
	Credential string `json:"credential"`
}

// authSession resolves the caller's authentication state. Mode "guest"
// answers with the current anonymous binding; "login" and "demo" verify a
// credential and bind the session to the matching citizen.
func (h *Handler) authSession(w http.ResponseWriter, r *http.Request) {
	var req authSessionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	switch req.Mode {
	case "", "guest":
		sessionID, err := h.sessionID(r)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		session, err := h.sessions.Get(r.Context(), sessionID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		resp := map[string]any{"session_id": session.ID, "linked": session.Linked()}
		if session.Linked() {
			resp["citizen_id"] = session.CitizenID
		}
		httputil.WriteJSON(w, http.StatusOK, resp)

	case "login", "demo":
		ctx := h.withSession(r)
		result, err := h.citizens.RegisterOrLogin(ctx, service.RegisterOrLoginRequest{
			Phone:      req.Phone,
			Credential: req.Credential,
		})
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		h.jar.SetCitizen(w, result.CitizenID.String())
		httputil.WriteJSON(w, http.StatusOK, result)

	default:
		httputil.WriteError(w,
			dErrors.New(dErrors.CodeInvalidInput, "unknown auth mode"))
	}
}

type linkSessionRequest struct {
	Credential string `json:"credential"`
}

func (h *Handler) linkSession(w http.ResponseWriter, r *http.Request) {
	var req linkSessionRequest
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	sessionID, err := h.sessionID(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	citizenID, err := h.citizens.LinkSession(r.Context(), sessionID, req.Credential)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.jar.SetCitizen(w, citizenID.String())
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"citizen_id": citizenID})
}

func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) {
	citizenID, err := h.citizenFromSession(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	citizen, err := h.citizens.Get(r.Context(), citizenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, citizen)
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	citizenID, err := h.citizenFromSession(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	profile, err := h.citizens.Profile(r.Context(), citizenID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, profile)
}

// citizenFromSession resolves the verified citizen bound to the session
// cookie. The citizen_id cookie is a client hint only; the session row is the
// source of truth. Identity reads answer 401 for any session problem: a
// missing, malformed, or unknown token all mean the caller is not
// authenticated here, unlike the link flow where a missing token is a 400.
func (h *Handler) citizenFromSession(r *http.Request) (id.CitizenID, error) {
	sessionID, err := h.sessionID(r)
	if err != nil {
		return id.CitizenID{}, dErrors.New(dErrors.CodeUnauthorized, "no valid session")
	}
	session, err := h.sessions.Get(r.Context(), sessionID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return id.CitizenID{}, dErrors.New(dErrors.CodeUnauthorized, "no valid session")
		}
		return id.CitizenID{}, err
	}
	if !session.Linked() {
		return id.CitizenID{}, dErrors.New(dErrors.CodeUnauthorized, "session is not linked to a citizen")
	}
	return session.CitizenID, nil
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

func (h *Handler) withSession(r *http.Request) context.Context {
	sessionID, err := h.sessionID(r)
	if err != nil {
		return r.Context()
	}
	return requestcontext.WithSessionID(r.Context(), sessionID)
}
