package memo

import (
	"context"
	"time"
)

// Repository persists memos under their battle session.
type Repository interface {
	// List returns the session's memos ordered by CreatedAt descending.
	List(ctx context.Context, sessionID string) ([]Memo, error)
	Count(ctx context.Context, sessionID string) (int, error)
	// Create inserts m unless the session already holds limit memos, in
	// which case it returns repository.ErrLimitReached. The count and the
	// insert are atomic.
	Create(ctx context.Context, sessionID string, m *Memo, limit int) error
	Update(ctx context.Context, sessionID, memoID string, form FormData) error
	// Delete is idempotent.
	Delete(ctx context.Context, sessionID, memoID string) error
	// DeleteAll removes every memo of the session in one atomic batch.
	DeleteAll(ctx context.Context, sessionID string) error
}

// Watcher is implemented by repositories with native change streams.
type Watcher interface {
	Watch(ctx context.Context, sessionID string) (<-chan []Memo, error)
}

// Notifier fans out "session memos changed" signals.
type Notifier interface {
	Publish(ctx context.Context, sessionID string)
	Subscribe(sessionID string) (<-chan struct{}, func())
}

// SessionToucher refreshes a session's UpdatedAt when its memos change.
type SessionToucher interface {
	Touch(ctx context.Context, sessionID string, at time.Time) error
}
