package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "sevasetu/pkg/domain-errors"
)

// TestParseID_Invariants validates the parsing invariant shared by every typed
// ID: values must be valid, non-empty, non-nil UUIDs.
func TestParseID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseSessionID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseApplicationID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseCitizenID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		valid := uuid.New()
		id, err := ParseSessionID(valid.String())
		require.NoError(t, err)
		assert.Equal(t, SessionID(valid), id)
	})
}

// TestTypeDistinction verifies the compiler enforces type safety between ID
// kinds. If this compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	sessionID := SessionID(uuid.New())
	citizenID := CitizenID(uuid.New())

	// These would fail to compile if the types were interchangeable:
	// var _ SessionID = citizenID // compile error
	// var _ CitizenID = sessionID // compile error

	assert.NotEqual(t, uuid.UUID(sessionID), uuid.UUID(citizenID))
}

func TestParseLanguage(t *testing.T) {
	for _, valid := range []string{"hi", "en"} {
		lang, err := ParseLanguage(valid)
		require.NoError(t, err)
		assert.Equal(t, valid, lang.String())
	}

	for _, invalid := range []string{"", "fr", "HI", "hin", "english"} {
		_, err := ParseLanguage(invalid)
		require.Error(t, err, "expected %q to be rejected", invalid)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	}
}
