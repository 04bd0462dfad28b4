package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/ggmemo/ggmemo/internal/repository"
)

// MemoRepository implements memo.Repository for SQLite
type MemoRepository struct {
	db *DB
}

// NewMemoRepository creates a new MemoRepository
func NewMemoRepository(db *DB) *MemoRepository {
	return &MemoRepository{db: db}
}

// List returns a session's memos, newest first
func (r *MemoRepository) List(ctx context.Context, sessionID string) ([]memo.Memo, error) {
	query := `
		SELECT id, title, result, rating, memo, created_at
		FROM memos
		WHERE session_id = ?
		ORDER BY created_at DESC, rowid DESC
	`

	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memos: %w", err)
	}
	defer rows.Close()

	memos := []memo.Memo{}
	for rows.Next() {
		var m memo.Memo
		var createdAt int64
		if err := rows.Scan(&m.ID, &m.Title, &m.Result, &m.Rating, &m.Memo, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan memo: %w", err)
		}
		m.CreatedAt = fromUnix(createdAt)
		memos = append(memos, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating memos: %w", err)
	}

	return memos, nil
}

// Count returns the number of memos in a session
func (r *MemoRepository) Count(ctx context.Context, sessionID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memos WHERE session_id = ?`, sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count memos: %w", err)
	}
	return count, nil
}

// Create inserts a memo under its session unless the session is full
func (r *MemoRepository) Create(ctx context.Context, sessionID string, m *memo.Memo, limit int) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM memos WHERE session_id = ?`, sessionID).Scan(&count)
		if err != nil {
			return fmt.Errorf("failed to count memos: %w", err)
		}
		if count >= limit {
			return repository.ErrLimitReached
		}

		query := `
			INSERT INTO memos (id, session_id, title, result, rating, memo, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		_, err = tx.ExecContext(ctx, query,
			m.ID,
			sessionID,
			m.Title,
			m.Result,
			m.Rating,
			m.Memo,
			toUnix(m.CreatedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return repository.ErrAlreadyExists
			}
			if isForeignKeyViolation(err) {
				return repository.ErrForeignKeyViolation
			}
			return fmt.Errorf("failed to create memo: %w", err)
		}
		return nil
	})
}

// Update replaces the mutable fields of a memo
func (r *MemoRepository) Update(ctx context.Context, sessionID, memoID string, form memo.FormData) error {
	query := `
		UPDATE memos
		SET title = ?, result = ?, rating = ?, memo = ?
		WHERE session_id = ? AND id = ?
	`

	result, err := r.db.ExecContext(ctx, query, form.Title, form.Result, form.Rating, form.Memo, sessionID, memoID)
	if err != nil {
		return fmt.Errorf("failed to update memo: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a memo; deleting a missing memo is not an error
func (r *MemoRepository) Delete(ctx context.Context, sessionID, memoID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM memos WHERE session_id = ? AND id = ?`, sessionID, memoID)
	if err != nil {
		return fmt.Errorf("failed to delete memo: %w", err)
	}
	return nil
}

// DeleteAll removes every memo of a session in one transaction
func (r *MemoRepository) DeleteAll(ctx context.Context, sessionID string) error {
	return r.db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM memos WHERE session_id = ?`, sessionID); err != nil {
			return fmt.Errorf("failed to delete memos: %w", err)
		}
		return nil
	})
}
