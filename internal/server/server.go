// Package server assembles the portal: services over their stores, the HTTP
// router with the shared middleware chain, and the audit pipeline. main wires
// backends from configuration; tests wire in-memory stores and get the same
// router the binary serves.
package server

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	adminhdl "sevasetu/internal/admin/handler"
	adminsvc "sevasetu/internal/admin/service"
	apphdl "sevasetu/internal/application/handler"
	appsvc "sevasetu/internal/application/service"
	"sevasetu/internal/application/stream"
	"sevasetu/internal/audit"
	"sevasetu/internal/citizen/credential"
	citizenhdl "sevasetu/internal/citizen/handler"
	citizensvc "sevasetu/internal/citizen/service"
	consenthdl "sevasetu/internal/consent/handler"
	consentsvc "sevasetu/internal/consent/service"
	"sevasetu/internal/onboarding"
	"sevasetu/internal/platform/config"
	"sevasetu/internal/platform/cookies"
	"sevasetu/internal/platform/metrics"
	"sevasetu/internal/platform/middleware"
	"sevasetu/internal/registry"
	sessionhdl "sevasetu/internal/session/handler"
	sessionsvc "sevasetu/internal/session/service"
	"sevasetu/internal/turn"
	"sevasetu/pkg/platform/httputil"
)

// Stores groups the persistence ports. Backends (memory, Postgres, Redis for
// sessions) are chosen by the caller.
type Stores struct {
	Sessions     sessionsvc.Store
	Citizens     citizensvc.Store
	Consents     consentsvc.Store
	Applications appsvc.Store
	Admins       adminsvc.Store
	Audit        audit.Store
}

// Options carries the cross-cutting pieces. Zero values are usable: a discard
// logger, no metrics, an empty static registry and the echo turn engine.
type Options struct {
	Config    config.Config
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Registry  registry.Lookup
	Turns     turn.Processor
	InboxSize int
}

// Server is the assembled portal. Router is ready to serve; Worker must be
// run (and the audit pipeline with it) for audit events to be persisted.
type Server struct {
	Router chi.Router
	Worker *audit.Worker

	Sessions     *sessionsvc.Service
	Citizens     *citizensvc.Service
	Consents     *consentsvc.Service
	Applications *appsvc.Service
	Admins       *adminsvc.Service
	Hub          *stream.Hub
}

// New builds the portal from stores and options.
func New(stores Stores, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	lookup := opts.Registry
	if lookup == nil {
		lookup = registry.NewStatic()
	}
	turns := opts.Turns
	if turns == nil {
		turns = turn.Echo{}
	}
	inboxSize := opts.InboxSize
	if inboxSize <= 0 {
		inboxSize = 1024
	}

	cfg := opts.Config
	m := opts.Metrics

	inbox := make(chan audit.Event, inboxSize)
	auditor := audit.NewPublisher(inbox, logger, m)
	worker := audit.NewWorker(stores.Audit, inbox, logger, m)

	sessions := sessionsvc.New(stores.Sessions,
		sessionsvc.WithLogger(logger),
		sessionsvc.WithAuditPublisher(auditor),
		sessionsvc.WithMetrics(m),
	)
	citizens := citizensvc.New(stores.Citizens, sessions, credential.NewVerifier(cfg.Auth.CredentialKey),
		citizensvc.WithLogger(logger),
		citizensvc.WithAuditPublisher(auditor),
		citizensvc.WithMetrics(m),
		citizensvc.WithRegistry(lookup),
	)
	consents := consentsvc.New(stores.Consents,
		consentsvc.WithLogger(logger),
		consentsvc.WithAuditPublisher(auditor),
		consentsvc.WithMetrics(m),
	)
	hub := stream.NewHub()
	applications := appsvc.New(stores.Applications, consents,
		appsvc.WithLogger(logger),
		appsvc.WithAuditPublisher(auditor),
		appsvc.WithMetrics(m),
		appsvc.WithEventSink(hub),
	)
	admins := adminsvc.New(stores.Admins, cfg.Admin.SessionTTL,
		adminsvc.WithLogger(logger),
		adminsvc.WithAuditPublisher(auditor),
		adminsvc.WithBcryptCost(cfg.Admin.BcryptCost),
	)

	jar := cookies.NewJar(cfg.Server, cfg.Auth.SessionTTL, cfg.Auth.LanguageTTL, cfg.Admin.SessionTTL)
	gate := onboarding.NewGate(logger,
		onboarding.WithMetrics(m),
		onboarding.WithAuditPublisher(auditor),
	)

	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	if cfg.Server.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.Server.RequestTimeout))
	}
	r.Use(middleware.ContentTypeJSON)
	r.Use(middleware.Device)
	if m != nil {
		r.Use(middleware.Latency(m))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	// Staff surface sits outside the onboarding gate; it has its own auth.
	adminhdl.New(admins, applications, jar, auditor, logger).Register(r)

	r.Group(func(r chi.Router) {
		r.Use(gate.Middleware)
		sessionhdl.New(sessions, jar, logger).Register(r)
		citizenhdl.New(citizens, sessions, jar, logger).Register(r)
		consenthdl.New(consents, jar, logger).Register(r)
		apphdl.New(applications, hub, turns, logger).Register(r)
	})

	return &Server{
		Router:       r,
		Worker:       worker,
		Sessions:     sessions,
		Citizens:     citizens,
		Consents:     consents,
		Applications: applications,
		Admins:       admins,
		Hub:          hub,
	}
}
