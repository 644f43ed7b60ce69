package onboarding

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAllSignalCombinations(t *testing.T) {
	// The resolver must be total: all 16 combinations route somewhere, and
	// always to the first unmet step in order.
	tests := []struct {
		sig  Signals
		want Step
	}{
		{Signals{false, false, false, false}, StepBootstrap},
		{Signals{false, false, false, true}, StepBootstrap},
		{Signals{false, false, true, false}, StepBootstrap},
		{Signals{false, false, true, true}, StepBootstrap},
		{Signals{false, true, false, false}, StepBootstrap},
		{Signals{false, true, false, true}, StepBootstrap},
		{Signals{false, true, true, false}, StepBootstrap},
		{Signals{false, true, true, true}, StepBootstrap},
		{Signals{true, false, false, false}, StepLanguage},
		{Signals{true, false, false, true}, StepLanguage},
		{Signals{true, false, true, false}, StepLanguage},
		{Signals{true, false, true, true}, StepLanguage},
		{Signals{true, true, false, false}, StepIdentity},
		{Signals{true, true, false, true}, StepIdentity},
		{Signals{true, true, true, false}, StepConsent},
		{Signals{true, true, true, true}, StepComplete},
	}
	for _, tt := range tests {
		name := fmt.Sprintf("session=%t language=%t citizen=%t consent=%t",
			tt.sig.HasSession, tt.sig.HasLanguage, tt.sig.HasCitizen, tt.sig.HasConsent)
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.sig))
		})
	}
}

func TestStepString(t *testing.T) {
	assert.Equal(t, "bootstrap", StepBootstrap.String())
	assert.Equal(t, "complete", StepComplete.String())
	assert.Equal(t, "unknown", Step(99).String())
}

func newGateRequest(path string, cookieValues map[string]string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	for name, value := range cookieValues {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	return r
}

func serveGate(t *testing.T, r *http.Request) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	gate := NewGate(slog.New(slog.NewTextHandler(io.Discard, nil)))
	passed := false
	handler := gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		passed = true
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec, passed
}

func TestMiddlewareRedirectsProtectedRouteToFirstUnmetStep(t *testing.T) {
	rec, passed := serveGate(t, newGateRequest("/applications/abc/steps", map[string]string{
		"session_id": "s1",
	}))
	require.False(t, passed)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/language", rec.Header().Get("Location"))
}

func TestMiddlewareRejectsProtectedRouteWithoutSession(t *testing.T) {
	rec, passed := serveGate(t, newGateRequest("/applications/abc/steps", nil))
	require.False(t, passed)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/welcome", rec.Header().Get("Location"))
}

func TestMiddlewarePassesCompletedOnboarding(t *testing.T) {
	rec, passed := serveGate(t, newGateRequest("/applications/abc/steps", map[string]string{
		"session_id": "s1",
		"language":   "hi",
		"citizen_id": "c1",
		"consent":    "true",
	}))
	require.True(t, passed)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareGuestCitizenMarkerDoesNotCount(t *testing.T) {
	rec, passed := serveGate(t, newGateRequest("/applications/abc/steps", map[string]string{
		"session_id": "s1",
		"language":   "hi",
		"citizen_id": "guest",
		"consent":    "true",
	}))
	require.False(t, passed)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestMiddlewareBypassesPublicRoutes(t *testing.T) {
	for _, path := range []string{"/session/create", "/auth/register", "/healthz", "/admin/auth/login"} {
		_, passed := serveGate(t, newGateRequest(path, nil))
		assert.True(t, passed, "expected %s to bypass the gate", path)
	}
}

func TestMiddlewareUnlistedRouteNeedsOnlySession(t *testing.T) {
	_, passed := serveGate(t, newGateRequest("/services", map[string]string{
		"session_id": "s1",
	}))
	assert.True(t, passed)
}
