package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sevasetu/internal/platform/config"
	"sevasetu/pkg/platform/sentinel"
)

func TestNewWithoutURLIsAbsent(t *testing.T) {
	client, err := New(context.Background(), config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRejectsMalformedURL(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{URL: "not-a-redis-url"})
	require.Error(t, err)
}

func TestNewUnreachableServerIsUnavailable(t *testing.T) {
	_, err := New(context.Background(), config.RedisConfig{
		URL:         "redis://127.0.0.1:1",
		DialTimeout: 200 * time.Millisecond,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, sentinel.ErrUnavailable)
}
