package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sevasetu/internal/consent/models"
	"sevasetu/internal/consent/store"
	id "sevasetu/pkg/domain"
	dErrors "sevasetu/pkg/domain-errors"
	"sevasetu/pkg/requestcontext"
)

var dataUsePurpose = models.Purpose{
	Hindi:   "सेवा आवेदन हेतु डेटा उपयोग",
	English: "Data use for service applications",
}

func testCtx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	return requestcontext.WithClientIP(ctx, "10.0.0.1")
}

func TestRecordForSession(t *testing.T) {
	svc := New(store.NewInMemory())
	sessionID := id.NewSessionID()

	log, err := svc.RecordForSession(testCtx(), sessionID, models.TypeDataUse, dataUsePurpose, "Mozilla/5.0")
	require.NoError(t, err)
	assert.Equal(t, sessionID, *log.SessionID)
	assert.Nil(t, log.ApplicationID)
	assert.Equal(t, models.TypeDataUse, log.Type)
	assert.Equal(t, "10.0.0.1", log.IPAddress)
	assert.False(t, log.GrantedAt.IsZero())

	has, err := svc.HasSessionConsent(testCtx(), sessionID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestRecordForApplication(t *testing.T) {
	svc := New(store.NewInMemory())
	applicationID := id.NewApplicationID()

	log, err := svc.RecordForApplication(testCtx(), applicationID, models.TypeSchemeApplication, dataUsePurpose, "Mozilla/5.0")
	require.NoError(t, err)
	assert.Equal(t, applicationID, *log.ApplicationID)
	assert.Nil(t, log.SessionID)

	loaded, err := svc.Get(testCtx(), log.ID)
	require.NoError(t, err)
	assert.Equal(t, log.ID, loaded.ID)
}

func TestRecordValidation(t *testing.T) {
	svc := New(store.NewInMemory())

	tests := []struct {
		name string
		call func() error
		code dErrors.Code
	}{
		{
			name: "nil session",
			call: func() error {
				_, err := svc.RecordForSession(testCtx(), id.SessionID{}, models.TypeDataUse, dataUsePurpose, "")
				return err
			},
			code: dErrors.CodeBadRequest,
		},
		{
			name: "empty purpose",
			call: func() error {
				_, err := svc.RecordForSession(testCtx(), id.NewSessionID(), models.TypeDataUse, models.Purpose{}, "")
				return err
			},
			code: dErrors.CodeValidation,
		},
		{
			name: "unknown type",
			call: func() error {
				_, err := svc.RecordForSession(testCtx(), id.NewSessionID(), models.Type("sharing"), dataUsePurpose, "")
				return err
			},
			code: dErrors.CodeValidation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, tt.code))
		})
	}
}

func TestHasSessionConsentFalseWithoutGrant(t *testing.T) {
	svc := New(store.NewInMemory())
	has, err := svc.HasSessionConsent(testCtx(), id.NewSessionID())
	require.NoError(t, err)
	assert.False(t, has)
}

func TestListBySessionOrdersByGrantTime(t *testing.T) {
	mem := store.NewInMemory()
	svc := New(mem)
	sessionID := id.NewSessionID()

	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		ctx := requestcontext.WithTime(context.Background(), base.Add(time.Duration(2-i)*time.Minute))
		_, err := svc.RecordForSession(ctx, sessionID, models.TypeDataUse, dataUsePurpose, "")
		require.NoError(t, err)
	}

	logs, err := svc.ListBySession(testCtx(), sessionID)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	for i := 1; i < len(logs); i++ {
		assert.True(t, logs[i-1].GrantedAt.Before(logs[i].GrantedAt) || logs[i-1].GrantedAt.Equal(logs[i].GrantedAt))
	}
}
