package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ggmemo/ggmemo/internal/domain/session"
	"github.com/ggmemo/ggmemo/internal/repository"
)

// SessionRepository implements session.Repository for SQLite
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// List returns a user's sessions, most recently updated first
func (r *SessionRepository) List(ctx context.Context, userID string) ([]session.BattleSession, error) {
	query := `
		SELECT id, user_id, title, updated_at
		FROM battle_sessions
		WHERE user_id = ?
		ORDER BY updated_at DESC, rowid DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []session.BattleSession{}
	for rows.Next() {
		var sess session.BattleSession
		var updatedAt int64
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.UpdatedAt = fromUnix(updatedAt)
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sessions: %w", err)
	}

	return sessions, nil
}

// Count returns the number of sessions a user owns
func (r *SessionRepository) Count(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM battle_sessions WHERE user_id = ?`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// Get retrieves a session by ID
func (r *SessionRepository) Get(ctx context.Context, id string) (*session.BattleSession, error) {
	query := `
		SELECT id, user_id, title, updated_at
		FROM battle_sessions
		WHERE id = ?
	`

	var sess session.BattleSession
	var updatedAt int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&sess.ID, &sess.UserID, &sess.Title, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	sess.UpdatedAt = fromUnix(updatedAt)

	return &sess, nil
}

// Create creates a new session unless the owner already has limit sessions
func (r *SessionRepository) Create(ctx context.Context, sess *session.BattleSession, limit int) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM battle_sessions WHERE user_id = ?`, sess.UserID).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to count sessions: %w", err)
		}
		if count >= limit {
			return repository.ErrLimitReached
		}

		query := `
			INSERT INTO battle_sessions (id, user_id, title, updated_at)
			VALUES (?, ?, ?, ?)
		`
		_, err = tx.ExecContext(ctx, query, sess.ID, sess.UserID, sess.Title, toUnix(sess.UpdatedAt))
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrAlreadyExists
			}
			return fmt.Errorf("failed to create session: %w", err)
		}
		return nil
	})
}

// Update applies a partial patch and stamps updated_at
func (r *SessionRepository) Update(ctx context.Context, id string, patch session.Patch, updatedAt time.Time) error {
	query := `
		UPDATE battle_sessions
		SET title = COALESCE(?, title), updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, patch.Title, toUnix(updatedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return requireAffected(result)
}

// Touch stamps updated_at without other changes
func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE battle_sessions SET updated_at = ? WHERE id = ?`, toUnix(at), id)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return requireAffected(result)
}

// DeleteWithMemos removes a session and all of its memos in one transaction
func (r *SessionRepository) DeleteWithMemos(ctx context.Context, id string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM battle_sessions WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check session: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM memos WHERE session_id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete memos: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM battle_sessions WHERE id = ?`, id); err != nil {
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			return fmt.Errorf("failed to delete session: %w", err)
		}
		return nil
	})
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
