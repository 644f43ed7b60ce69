package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sevasetu/internal/audit"
	"sevasetu/internal/session/models"
	"sevasetu/internal/session/store"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/requestcontext"
)

func testCtx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
	ctx = requestcontext.WithClientIP(ctx, "10.0.0.1")
	return requestcontext.WithDeviceName(ctx, "Chrome on Linux")
}

func TestCreateSession(t *testing.T) {
	svc := New(store.NewInMemory())

	session, err := svc.Create(testCtx(), "device-1")
	require.NoError(t, err)
	assert.False(t, session.ID.IsNil())
	assert.True(t, session.Active)
	assert.False(t, session.Linked())
	assert.Equal(t, "Chrome on Linux", session.DeviceName)
	assert.Equal(t, "10.0.0.1", session.IPAddress)

	loaded, err := svc.Get(testCtx(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, loaded.ID)
}

func TestGetUnknownSession(t *testing.T) {
	svc := New(store.NewInMemory())
	_, err := svc.Get(testCtx(), id.NewSessionID())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestSetLanguage(t *testing.T) {
	svc := New(store.NewInMemory())
	session, err := svc.Create(testCtx(), "device-1")
	require.NoError(t, err)

	lang, err := svc.SetLanguage(testCtx(), session.ID, "hi")
	require.NoError(t, err)
	assert.Equal(t, id.LanguageHindi, lang)

	loaded, err := svc.Get(testCtx(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, id.LanguageHindi, loaded.Language)

	_, err = svc.SetLanguage(testCtx(), session.ID, "fr")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestLinkRecordsRelink(t *testing.T) {
	events := &eventRecorder{}
	svc := New(store.NewInMemory(), WithAuditPublisher(events))
	session, err := svc.Create(testCtx(), "device-1")
	require.NoError(t, err)

	first := id.NewCitizenID()
	require.NoError(t, svc.Link(testCtx(), session.ID, first, "FAM-001"))

	second := id.NewCitizenID()
	require.NoError(t, svc.Link(testCtx(), session.ID, second, "FAM-002"))

	loaded, err := svc.Get(testCtx(), session.ID)
	require.NoError(t, err)
	assert.Equal(t, second, loaded.CitizenID)
	assert.Equal(t, "FAM-002", loaded.FamilyID)

	actions := events.actions()
	require.Len(t, actions, 3)
	assert.Equal(t, audit.ActionSessionLinked, actions[1])
	assert.Equal(t, audit.ActionSessionRelinked, actions[2])
}

func TestLinkSameCitizenIsNotRelink(t *testing.T) {
	events := &eventRecorder{}
	svc := New(store.NewInMemory(), WithAuditPublisher(events))
	session, err := svc.Create(testCtx(), "device-1")
	require.NoError(t, err)

	citizenID := id.NewCitizenID()
	require.NoError(t, svc.Link(testCtx(), session.ID, citizenID, "FAM-001"))
	require.NoError(t, svc.Link(testCtx(), session.ID, citizenID, "FAM-001"))

	actions := events.actions()
	require.Len(t, actions, 3)
	assert.Equal(t, audit.ActionSessionLinked, actions[2])
}

func TestDeactivatedSessionRejectsMutations(t *testing.T) {
	svc := New(store.NewInMemory())
	session, err := svc.Create(testCtx(), "device-1")
	require.NoError(t, err)

	require.NoError(t, svc.Deactivate(testCtx(), session.ID))

	_, err = svc.SetLanguage(testCtx(), session.ID, "en")
	require.Error(t, err)

	err = svc.Link(testCtx(), session.ID, id.NewCitizenID(), "")
	require.Error(t, err)
}

func TestSessionModelInvariants(t *testing.T) {
	now := time.Now()

	_, err := models.New(id.SessionID{}, "device-1", "", "", now)
	require.Error(t, err)

	_, err = models.New(id.NewSessionID(), "", "", "", now)
	require.Error(t, err)

	session, err := models.New(id.NewSessionID(), "device-1", "", "", now)
	require.NoError(t, err)
	assert.True(t, session.Active)
}

type eventRecorder struct {
	mu   sync.Mutex
	seen []audit.Action
}

func (r *eventRecorder) Emit(_ context.Context, event audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, event.Action)
}

func (r *eventRecorder) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, len(r.seen))
	copy(out, r.seen)
	return out
}
