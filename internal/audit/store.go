package audit

import "context"

// Store is the append-only audit sink. Implementations must never mutate or
// delete appended events.
type Store interface {
	Append(ctx context.Context, event Event) error
	// ListBySubject returns events for one subject id, oldest first.
	ListBySubject(ctx context.Context, subject string) ([]Event, error)
}
