package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"sevasetu/internal/audit"
	"sevasetu/internal/citizen/credential"
	"sevasetu/internal/citizen/store"
	"sevasetu/internal/registry"
	sessionmodels "sevasetu/internal/session/models"
	sessionstore "sevasetu/internal/session/store"
	sessionsvc "sevasetu/internal/session/service"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/requestcontext"
)

type CitizenServiceSuite struct {
	suite.Suite

	citizens  *store.InMemory
	sessions  *sessionstore.InMemory
	verifier  *credential.Verifier
	service   *Service
	sessionID id.SessionID
	now       time.Time
}

func (s *CitizenServiceSuite) SetupTest() {
	s.citizens = store.NewInMemory()
	s.sessions = sessionstore.NewInMemory()
	s.verifier = credential.NewVerifier("test-key")
	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	sessionService := sessionsvc.New(s.sessions)
	s.service = New(s.citizens, sessionService, s.verifier)

	s.sessionID = id.NewSessionID()
	session, err := sessionmodels.New(s.sessionID, "device-1", "Chrome on Linux", "10.0.0.1", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.sessions.Create(context.Background(), session))
}

func (s *CitizenServiceSuite) ctx() context.Context {
	ctx := requestcontext.WithSessionID(context.Background(), s.sessionID)
	return requestcontext.WithTime(ctx, s.now)
}

func (s *CitizenServiceSuite) issue(phone string) string {
	token, err := s.verifier.Issue(phone, "verification-1", time.Minute)
	s.Require().NoError(err)
	return token
}

func (s *CitizenServiceSuite) TestRegisterNewCitizen() {
	result, err := s.service.RegisterOrLogin(s.ctx(), RegisterOrLoginRequest{
		Phone:      "+91 98765 43210",
		FamilyID:   "FAM-001",
		Name:       "Asha Devi",
		Credential: s.issue("9876543210"),
	})
	s.Require().NoError(err)
	s.True(result.Registered)
	s.False(result.CitizenID.IsNil())

	citizen, err := s.citizens.FindByPhone(context.Background(), "9876543210")
	s.Require().NoError(err)
	s.True(citizen.Verified)
	s.Equal("FAM-001", citizen.FamilyID)

	session, err := s.sessions.FindByID(context.Background(), s.sessionID)
	s.Require().NoError(err)
	s.True(session.Linked())
	s.Equal(citizen.ID, session.CitizenID)
}

func (s *CitizenServiceSuite) TestSecondCallIsLogin() {
	req := RegisterOrLoginRequest{
		Phone:      "9876543210",
		Name:       "Asha Devi",
		Credential: s.issue("9876543210"),
	}
	first, err := s.service.RegisterOrLogin(s.ctx(), req)
	s.Require().NoError(err)
	s.True(first.Registered)

	second, err := s.service.RegisterOrLogin(s.ctx(), req)
	s.Require().NoError(err)
	s.False(second.Registered)
	s.Equal(first.CitizenID, second.CitizenID)
}

func (s *CitizenServiceSuite) TestPhoneMismatchIsForbidden() {
	_, err := s.service.RegisterOrLogin(s.ctx(), RegisterOrLoginRequest{
		Phone:      "9876543210",
		Name:       "Asha Devi",
		Credential: s.issue("9999999999"),
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
}

func (s *CitizenServiceSuite) TestBadCredentialIsUnauthorized() {
	_, err := s.service.RegisterOrLogin(s.ctx(), RegisterOrLoginRequest{
		Phone:      "9876543210",
		Name:       "Asha Devi",
		Credential: "not-a-token",
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *CitizenServiceSuite) TestNoSessionIsBadRequest() {
	ctx := requestcontext.WithTime(context.Background(), s.now)
	_, err := s.service.RegisterOrLogin(ctx, RegisterOrLoginRequest{
		Phone:      "9876543210",
		Name:       "Asha Devi",
		Credential: s.issue("9876543210"),
	})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *CitizenServiceSuite) TestLinkSessionRequiresRegisteredCitizen() {
	_, err := s.service.LinkSession(s.ctx(), s.sessionID, s.issue("9876543210"))
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *CitizenServiceSuite) TestLinkSessionBindsVerifiedCitizen() {
	result, err := s.service.RegisterOrLogin(s.ctx(), RegisterOrLoginRequest{
		Phone:      "9876543210",
		Name:       "Asha Devi",
		Credential: s.issue("9876543210"),
	})
	s.Require().NoError(err)

	fresh := id.NewSessionID()
	session, err := sessionmodels.New(fresh, "device-2", "Firefox on Android", "10.0.0.2", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.sessions.Create(context.Background(), session))

	citizenID, err := s.service.LinkSession(s.ctx(), fresh, s.issue("9876543210"))
	s.Require().NoError(err)
	s.Equal(result.CitizenID, citizenID)

	linked, err := s.sessions.FindByID(context.Background(), fresh)
	s.Require().NoError(err)
	s.Equal(result.CitizenID, linked.CitizenID)
}

func (s *CitizenServiceSuite) TestProfileJoinsRegistry() {
	lookup := registry.NewStatic()
	lookup.Put(registry.FamilyRecord{
		FamilyID: "FAM-001",
		District: "Patna",
		Members: []registry.Member{
			{Name: "Asha Devi", Relation: "head"},
		},
	})
	s.service = New(s.citizens, sessionsvc.New(s.sessions), s.verifier, WithRegistry(lookup))

	result, err := s.service.RegisterOrLogin(s.ctx(), RegisterOrLoginRequest{
		Phone:      "9876543210",
		FamilyID:   "FAM-001",
		Name:       "Asha Devi",
		Credential: s.issue("9876543210"),
	})
	s.Require().NoError(err)

	profile, err := s.service.Profile(s.ctx(), result.CitizenID)
	s.Require().NoError(err)
	s.Require().NotNil(profile.Family)
	s.Equal("Patna", profile.Family.District)
}

func (s *CitizenServiceSuite) TestProfileSurvivesMissingFamilyRecord() {
	s.service = New(s.citizens, sessionsvc.New(s.sessions), s.verifier,
		WithRegistry(registry.NewStatic()))

	result, err := s.service.RegisterOrLogin(s.ctx(), RegisterOrLoginRequest{
		Phone:      "9876543210",
		FamilyID:   "FAM-404",
		Name:       "Asha Devi",
		Credential: s.issue("9876543210"),
	})
	s.Require().NoError(err)

	profile, err := s.service.Profile(s.ctx(), result.CitizenID)
	s.Require().NoError(err)
	s.Nil(profile.Family)
}

func TestCitizenServiceSuite(t *testing.T) {
	suite.Run(t, new(CitizenServiceSuite))
}

func TestRegisterEmitsAuditEvents(t *testing.T) {
	citizens := store.NewInMemory()
	sessions := sessionstore.NewInMemory()
	verifier := credential.NewVerifier("test-key")

	events := make(chan audit.Event, 4)
	recorder := auditRecorder{events: events}
	svc := New(citizens, sessionsvc.New(sessions), verifier, WithAuditPublisher(recorder))

	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	sessionID := id.NewSessionID()
	session, err := sessionmodels.New(sessionID, "device-1", "Chrome on Linux", "10.0.0.1", now)
	require.NoError(t, err)
	require.NoError(t, sessions.Create(context.Background(), session))

	ctx := requestcontext.WithSessionID(context.Background(), sessionID)
	token, err := verifier.Issue("9876543210", "verification-1", time.Minute)
	require.NoError(t, err)

	req := RegisterOrLoginRequest{Phone: "9876543210", Name: "Asha Devi", Credential: token}
	_, err = svc.RegisterOrLogin(ctx, req)
	require.NoError(t, err)
	require.Equal(t, audit.ActionCitizenRegistered, (<-events).Action)

	_, err = svc.RegisterOrLogin(ctx, req)
	require.NoError(t, err)
	require.Equal(t, audit.ActionCitizenLogin, (<-events).Action)
}

type auditRecorder struct {
	events chan audit.Event
}

func (r auditRecorder) Emit(_ context.Context, event audit.Event) {
	r.events <- event
}
