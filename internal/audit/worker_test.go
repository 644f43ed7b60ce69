package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorkerPersistsEvents(t *testing.T) {
	store := NewMemoryStore()
	inbox := make(chan Event, 8)
	worker := NewWorker(store, inbox, discardLogger(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()

	inbox <- Event{Action: ActionStatusChanged, Subject: "app-1", Timestamp: time.Now()}
	inbox <- Event{Action: ActionConsentRecorded, Subject: "app-1", Timestamp: time.Now()}

	require.Eventually(t, func() bool {
		return len(store.All()) == 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	events, err := store.ListBySubject(context.Background(), "app-1")
	require.NoError(t, err)
	assert.Len(t, events, 2)
	assert.Equal(t, ActionStatusChanged, events[0].Action)
}

func TestWorkerDrainsOnShutdown(t *testing.T) {
	store := NewMemoryStore()
	inbox := make(chan Event, 8)
	worker := NewWorker(store, inbox, discardLogger(), nil)

	// Queue before the worker starts, cancel immediately: drain must still
	// flush what was enqueued.
	inbox <- Event{Action: ActionAdminLogin, Subject: "admin-1"}
	inbox <- Event{Action: ActionAdminLogout, Subject: "admin-1"}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := worker.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))

	assert.Len(t, store.All(), 2)
}

type failingStore struct {
	mu    sync.Mutex
	calls int
}

func (s *failingStore) Append(context.Context, Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return errors.New("disk full")
}

func (s *failingStore) ListBySubject(context.Context, string) ([]Event, error) {
	return nil, nil
}

func TestWorkerSwallowsAppendFailures(t *testing.T) {
	store := &failingStore{}
	inbox := make(chan Event, 1)
	worker := NewWorker(store, inbox, discardLogger(), nil)

	inbox <- Event{Action: ActionStatusChanged, Subject: "app-2"}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Run must return cleanly even though every append fails.
	err := worker.Run(ctx)
	require.True(t, errors.Is(err, context.Canceled))

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, 1, store.calls)
}

func TestPublisherDropsWhenFull(t *testing.T) {
	inbox := make(chan Event) // unbuffered, no consumer
	pub := NewPublisher(inbox, discardLogger(), nil)

	// Must not block.
	pub.Emit(context.Background(), Event{Action: ActionStatusChanged, Subject: "app-3"})
}

func TestPublisherStampsTimestamp(t *testing.T) {
	inbox := make(chan Event, 1)
	pub := NewPublisher(inbox, discardLogger(), nil)

	pub.Emit(context.Background(), Event{Action: ActionSessionCreated})
	got := <-inbox
	assert.False(t, got.Timestamp.IsZero())
}
