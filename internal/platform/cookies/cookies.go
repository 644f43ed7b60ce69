// Package cookies centralizes the portal's bearer and marker cookies so every
// handler issues them with identical attributes. Citizen and staff credentials
// live in separate cookies with separate policies; they must never converge
// into one session concept.
package cookies

import (
	"net/http"
	"time"

	"sevasetu/internal/platform/config"
)

// Cookie names. session_id and admin_session are bearer credentials; the rest
// are client-visible markers mirrored from server state so the onboarding gate
// can route without a store round-trip.
const (
	Session  = "session_id"
	Citizen  = "citizen_id"
	Language = "language"
	Consent  = "consent"
	Device   = "device_id"
	Admin    = "admin_session"
)

// CitizenGuest is the citizen_id marker value before identity linking.
const CitizenGuest = "guest"

// Jar stamps cookies with deployment-wide attributes.
type Jar struct {
	domain      string
	secure      bool
	sessionTTL  time.Duration
	languageTTL time.Duration
	adminTTL    time.Duration
}

func NewJar(server config.Server, sessionTTL, languageTTL, adminTTL time.Duration) *Jar {
	return &Jar{
		domain:      server.CookieDomain,
		secure:      server.CookieSecure,
		sessionTTL:  sessionTTL,
		languageTTL: languageTTL,
		adminTTL:    adminTTL,
	}
}

// SetSession issues the citizen session bearer: HTTP-only, long-lived.
func (j *Jar) SetSession(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     Session,
		Value:    sessionID,
		Path:     "/",
		Domain:   j.domain,
		MaxAge:   int(j.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetCitizen issues the citizen marker ("guest" until linked).
func (j *Jar) SetCitizen(w http.ResponseWriter, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     Citizen,
		Value:    value,
		Path:     "/",
		Domain:   j.domain,
		MaxAge:   int(j.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetLanguage issues the client-readable language marker.
func (j *Jar) SetLanguage(w http.ResponseWriter, lang string) {
	http.SetCookie(w, &http.Cookie{
		Name:     Language,
		Value:    lang,
		Path:     "/",
		Domain:   j.domain,
		MaxAge:   int(j.languageTTL.Seconds()),
		HttpOnly: false,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetConsent issues the consent marker.
func (j *Jar) SetConsent(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     Consent,
		Value:    "true",
		Path:     "/",
		Domain:   j.domain,
		MaxAge:   int(j.sessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetDevice issues the device identifier used to correlate sessions from the
// same browser across bootstraps.
func (j *Jar) SetDevice(w http.ResponseWriter, deviceID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     Device,
		Value:    deviceID,
		Path:     "/",
		Domain:   j.domain,
		MaxAge:   int(j.languageTTL.Seconds()),
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SetAdmin issues the staff bearer: strict same-site, short-lived, scoped to
// the admin surface only.
func (j *Jar) SetAdmin(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     Admin,
		Value:    token,
		Path:     "/admin",
		Domain:   j.domain,
		MaxAge:   int(j.adminTTL.Seconds()),
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearAdmin expires the staff bearer.
func (j *Jar) ClearAdmin(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     Admin,
		Value:    "",
		Path:     "/admin",
		Domain:   j.domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   j.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// ClearSession expires the citizen bearer and its markers.
func (j *Jar) ClearSession(w http.ResponseWriter) {
	for _, name := range []string{Session, Citizen, Consent} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			Domain:   j.domain,
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   j.secure,
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// Value reads a cookie value from the request, "" when absent.
func Value(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
