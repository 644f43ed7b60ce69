package onboarding

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"sevasetu/internal/audit"
	"sevasetu/internal/platform/cookies"
	"sevasetu/internal/platform/metrics"
	"sevasetu/pkg/requestcontext"
)

// Redirect targets for each outstanding step.
var stepPaths = map[Step]string{
	StepBootstrap: "/welcome",
	StepLanguage:  "/language",
	StepIdentity:  "/login",
	StepConsent:   "/consent",
}

// publicPrefixes bypass the gate entirely: bootstrap and auth surfaces must
// stay reachable for a client with no signals at all, and assets carry no
// state.
var publicPrefixes = []string{
	"/session/",
	"/auth/",
	"/consent/",
	"/static/",
	"/healthz",
	"/metrics",
	"/admin/",
	"/welcome",
	"/language",
	"/login",
}

// protectedPrefixes always require at least a session, regardless of how far
// onboarding has progressed.
var protectedPrefixes = []string{
	"/applications/",
	"/user/",
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event)
}

// Gate is the request-time onboarding state machine. It reads cookie signals
// only; the cookies mirror server state closely enough for routing, and the
// handlers behind the gate re-verify against the store before acting.
type Gate struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	auditor AuditPublisher
}

type Option func(*Gate)

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(g *Gate) { g.auditor = p }
}

func NewGate(logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Middleware wires the gate into a chi router.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasPrefix(r.URL.Path, publicPrefixes) {
			next.ServeHTTP(w, r)
			return
		}

		sig := signalsFromRequest(r)
		step := Resolve(sig)

		if !sig.HasSession {
			// Distinguishes "never bootstrapped" from "active but incomplete"
			// for downstream consumers.
			g.logger.InfoContext(r.Context(), "request without session",
				"path", r.URL.Path,
				"request_id", requestcontext.RequestID(r.Context()),
			)
			if g.auditor != nil {
				g.auditor.Emit(r.Context(), audit.Event{
					Action: audit.ActionOnboardingNoSession,
					Detail: r.URL.Path,
				})
			}
		}

		if step == StepComplete {
			next.ServeHTTP(w, r)
			return
		}

		if !hasPrefix(r.URL.Path, protectedPrefixes) && sig.HasSession {
			// Unlisted routes only require a session.
			next.ServeHTTP(w, r)
			return
		}

		if g.metrics != nil {
			g.metrics.OnboardingRedirect.WithLabelValues(step.String()).Inc()
		}
		http.Redirect(w, r, stepPaths[step], http.StatusSeeOther)
	})
}

func signalsFromRequest(r *http.Request) Signals {
	citizen := cookies.Value(r, cookies.Citizen)
	return Signals{
		HasSession:  cookies.Value(r, cookies.Session) != "",
		HasLanguage: cookies.Value(r, cookies.Language) != "",
		HasCitizen:  citizen != "" && citizen != cookies.CitizenGuest,
		HasConsent:  cookies.Value(r, cookies.Consent) != "",
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
