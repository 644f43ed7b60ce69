package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adminmodels "sevasetu/internal/admin/models"
	adminstore "sevasetu/internal/admin/store"
	appstore "sevasetu/internal/application/store"
	"sevasetu/internal/audit"
	"sevasetu/internal/citizen/credential"
	citizenstore "sevasetu/internal/citizen/store"
	consentstore "sevasetu/internal/consent/store"
	"sevasetu/internal/platform/config"
	"sevasetu/internal/platform/cookies"
	"sevasetu/internal/registry"
	sessionstore "sevasetu/internal/session/store"
	id "sevasetu/pkg/domain"
)

const credentialKey = "journey-test-key"

func testConfig() config.Config {
	return config.Config{
		Auth: config.Auth{
			CredentialKey: credentialKey,
			SessionTTL:    30 * 24 * time.Hour,
			LanguageTTL:   365 * 24 * time.Hour,
		},
		Admin: config.Admin{SessionTTL: 24 * time.Hour, BcryptCost: 4},
	}
}

func newTestServer(t *testing.T) (*Server, *audit.MemoryStore) {
	t.Helper()

	families := registry.NewStatic()
	families.Put(registry.FamilyRecord{
		FamilyID: "FAM-4471",
		HeadName: "Saroj Devi",
		District: "Sitapur",
		Members:  []registry.Member{{Name: "Saroj Devi"}},
	})

	auditStore := audit.NewMemoryStore()
	srv := New(Stores{
		Sessions:     sessionstore.NewInMemory(),
		Citizens:     citizenstore.NewInMemory(),
		Consents:     consentstore.NewInMemory(),
		Applications: appstore.NewInMemory(),
		Admins:       adminstore.NewInMemory(),
		Audit:        auditStore,
	}, Options{
		Config:   testConfig(),
		Registry: families,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Worker.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	return srv, auditStore
}

// browser replays cookies across requests the way a real user agent does.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, handler http.Handler) *browser {
	return &browser{t: t, handler: handler, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(method, path string, body any) *httptest.ResponseRecorder {
	b.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(b.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rr := httptest.NewRecorder()
	b.handler.ServeHTTP(rr, req)

	for _, c := range rr.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rr
}

func (b *browser) decode(rr *httptest.ResponseRecorder, v any) {
	b.t.Helper()
	require.NoError(b.t, json.Unmarshal(rr.Body.Bytes(), v))
}

var submissionIDPattern = regexp.MustCompile(`^EM\d{11}$`)

func TestCitizenJourney(t *testing.T) {
	srv, auditStore := newTestServer(t)
	b := newBrowser(t, srv.Router)

	// No session yet: protected routes bounce to the start of onboarding.
	rr := b.do(http.MethodGet, "/user/me", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/welcome", rr.Header().Get("Location"))

	rr = b.do(http.MethodPost, "/session/create", nil)
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, cookies.CitizenGuest, b.cookies[cookies.Citizen].Value)

	// Session alone is not enough; the gate wants a language next.
	rr = b.do(http.MethodGet, "/user/me", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/language", rr.Header().Get("Location"))

	rr = b.do(http.MethodPost, "/session/language", map[string]string{"language": "hi"})
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = b.do(http.MethodGet, "/user/me", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	// Register with a verified-phone credential.
	token, err := credential.NewVerifier(credentialKey).Issue("9876543210", "otp-verified", time.Minute)
	require.NoError(t, err)

	rr = b.do(http.MethodPost, "/auth/register", map[string]string{
		"phone":      "9876543210",
		"family_id":  "FAM-4471",
		"name":       "Saroj Devi",
		"credential": token,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var registered struct {
		CitizenID  string `json:"citizen_id"`
		Registered bool   `json:"registered"`
	}
	b.decode(rr, &registered)
	assert.True(t, registered.Registered)
	assert.Equal(t, registered.CitizenID, b.cookies[cookies.Citizen].Value)

	rr = b.do(http.MethodGet, "/user/me", nil)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/consent", rr.Header().Get("Location"))

	rr = b.do(http.MethodPost, "/consent/session", map[string]any{
		"purpose": map[string]string{"hi": "योजना आवेदन हेतु", "en": "for scheme applications"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	// Onboarding complete: the profile joins the registry household record.
	rr = b.do(http.MethodGet, "/user/me", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var profile struct {
		Citizen struct {
			Name string `json:"name"`
		} `json:"citizen"`
		Family struct {
			District string `json:"district"`
		} `json:"family"`
	}
	b.decode(rr, &profile)
	assert.Equal(t, "Saroj Devi", profile.Citizen.Name)
	assert.Equal(t, "Sitapur", profile.Family.District)

	// Draft an application and answer steps through the turn engine.
	rr = b.do(http.MethodPost, "/applications", map[string]any{
		"citizen_id":  registered.CitizenID,
		"family_id":   "FAM-4471",
		"service_ref": "widow-pension",
		"metadata":    map[string]string{"district": "Sitapur", "channel": "voice"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var app struct {
		ID           string `json:"id"`
		Status       string `json:"status"`
		SubmissionID string `json:"submission_id"`
	}
	b.decode(rr, &app)
	assert.Equal(t, "draft", app.Status)
	assert.Empty(t, app.SubmissionID)

	rr = b.do(http.MethodPost, "/applications/"+app.ID+"/turn", map[string]string{
		"step_id":   "applicant_name",
		"utterance": "सरोज देवी",
		"language":  "hi",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = b.do(http.MethodPost, "/applications/"+app.ID+"/steps", map[string]string{
		"step_id": "bank_account",
		"answer":  "XXXX4886",
	})
	require.Equal(t, http.StatusNoContent, rr.Code)

	// Submission needs an application-scoped consent on record.
	rr = b.do(http.MethodPost, "/applications/"+app.ID+"/submit", map[string]string{"consent_id": ""})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = b.do(http.MethodPost, "/consent/application", map[string]any{
		"application_id": app.ID,
		"purpose":        map[string]string{"hi": "विधवा पेंशन आवेदन", "en": "widow pension application"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var consent struct {
		ConsentID string `json:"consent_id"`
	}
	b.decode(rr, &consent)

	rr = b.do(http.MethodPost, "/applications/"+app.ID+"/submit", map[string]string{"consent_id": consent.ConsentID})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var submit struct {
		SubmissionID string `json:"submission_id"`
	}
	b.decode(rr, &submit)
	assert.Regexp(t, submissionIDPattern, submit.SubmissionID)
	prefix := fmt.Sprintf("EM%04d%02d", time.Now().Year(), int(time.Now().Month()))
	assert.Contains(t, submit.SubmissionID, prefix)

	// A duplicate submit refuses and the original submission id survives.
	rr = b.do(http.MethodPost, "/applications/"+app.ID+"/submit", map[string]string{"consent_id": consent.ConsentID})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = b.do(http.MethodGet, "/applications/"+app.ID+"/", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	b.decode(rr, &app)
	assert.Equal(t, "submitted", app.Status)
	assert.Equal(t, submit.SubmissionID, app.SubmissionID)

	// Staff side: an officer moves the application to a decision.
	_, err = srv.Admins.CreateAdmin(context.Background(), "officer@district.gov.in", "sufficiently-long", adminmodels.RoleOfficer)
	require.NoError(t, err)

	staff := newBrowser(t, srv.Router)
	rr = staff.do(http.MethodPost, "/admin/auth/login", map[string]string{
		"email":    "officer@district.gov.in",
		"password": "sufficiently-long",
	})
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = staff.do(http.MethodPost, "/admin/applications/"+app.ID+"/status", map[string]string{
		"status":  "approved",
		"remarks": "eligibility verified",
	})
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())

	rr = staff.do(http.MethodGet, "/admin/applications/"+app.ID+"/timeline", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var timeline struct {
		Events []struct {
			PreviousStatus *string `json:"previous_status"`
			NewStatus      string  `json:"new_status"`
			Remarks        string  `json:"remarks"`
		} `json:"events"`
	}
	staff.decode(rr, &timeline)
	require.Len(t, timeline.Events, 2)
	assert.Equal(t, "submitted", timeline.Events[0].NewStatus)
	require.NotNil(t, timeline.Events[1].PreviousStatus)
	assert.Equal(t, "submitted", *timeline.Events[1].PreviousStatus)
	assert.Equal(t, "approved", timeline.Events[1].NewStatus)
	assert.Equal(t, "eligibility verified", timeline.Events[1].Remarks)

	// The async audit trail catches up with the journey.
	require.Eventually(t, func() bool {
		seen := make(map[audit.Action]bool)
		for _, event := range auditStore.All() {
			seen[event.Action] = true
		}
		return seen[audit.ActionSessionCreated] &&
			seen[audit.ActionCitizenRegistered] &&
			seen[audit.ActionConsentRecorded] &&
			seen[audit.ActionApplicationSubmitted] &&
			seen[audit.ActionStatusChanged]
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHealthAndMetricsBypassTheGate(t *testing.T) {
	srv, _ := newTestServer(t)
	b := newBrowser(t, srv.Router)

	rr := b.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = b.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminSurfaceSkipsOnboarding(t *testing.T) {
	srv, _ := newTestServer(t)
	b := newBrowser(t, srv.Router)

	// No citizen cookies at all: admin auth still answers rather than
	// redirecting into citizen onboarding.
	rr := b.do(http.MethodGet, "/admin/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestIdentityReadsWithoutValidSessionAreUnauthorized(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("no session cookie", func(t *testing.T) {
		b := newBrowser(t, srv.Router)
		rr := b.do(http.MethodGet, "/auth/user", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown session cookie", func(t *testing.T) {
		b := newBrowser(t, srv.Router)
		b.cookies[cookies.Session] = &http.Cookie{
			Name:  cookies.Session,
			Value: id.NewSessionID().String(),
		}
		rr := b.do(http.MethodGet, "/auth/user", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("stale cookies past the gate", func(t *testing.T) {
		// Cookie signals look fully onboarded so the gate lets the request
		// through, but the session id matches no server-side row.
		b := newBrowser(t, srv.Router)
		for name, value := range map[string]string{
			cookies.Session:  id.NewSessionID().String(),
			cookies.Citizen:  id.NewCitizenID().String(),
			cookies.Language: "hi",
			cookies.Consent:  "granted",
		} {
			b.cookies[name] = &http.Cookie{Name: name, Value: value}
		}
		rr := b.do(http.MethodGet, "/user/me", nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}
