package session

import (
	"context"
	"time"

	"github.com/ggmemo/ggmemo/internal/domain/memo"
)

// Repository provides persistence for battle sessions.
type Repository interface {
	// List returns the owner's sessions ordered by UpdatedAt descending.
	List(ctx context.Context, userID string) ([]BattleSession, error)
	Count(ctx context.Context, userID string) (int, error)
	Get(ctx context.Context, id string) (*BattleSession, error)
	// Create inserts sess unless its owner already holds limit sessions, in
	// which case it returns repository.ErrLimitReached atomically.
	Create(ctx context.Context, sess *BattleSession, limit int) error
	Update(ctx context.Context, id string, patch Patch, updatedAt time.Time) error
	Touch(ctx context.Context, id string, at time.Time) error
	// DeleteWithMemos removes the session and all of its memos atomically.
	DeleteWithMemos(ctx context.Context, id string) error
}

// MemoLister provides memo reads for statistics and export.
type MemoLister interface {
	List(ctx context.Context, sessionID string) ([]memo.Memo, error)
}
