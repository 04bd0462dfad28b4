package firestore

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gfs "cloud.google.com/go/firestore"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/ggmemo/ggmemo/internal/repository"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type memoDoc struct {
	Title     string      `firestore:"title"`
	Result    memo.Result `firestore:"result"`
	Rating    int         `firestore:"rating"`
	Memo      string      `firestore:"memo"`
	CreatedAt time.Time   `firestore:"createdAt"`
}

func (d memoDoc) toMemo(id string) memo.Memo {
	return memo.Memo{
		ID:        id,
		Title:     d.Title,
		Result:    d.Result,
		Rating:    d.Rating,
		Memo:      d.Memo,
		CreatedAt: utc(d.CreatedAt),
	}
}

// MemoRepository implements memo.Repository and memo.Watcher for Firestore.
type MemoRepository struct {
	client *gfs.Client
	logger *slog.Logger
}

// NewMemoRepository creates a new MemoRepository.
func NewMemoRepository(client *gfs.Client, logger *slog.Logger) *MemoRepository {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &MemoRepository{client: client, logger: logger}
}

func (r *MemoRepository) query(sessionID string) gfs.Query {
	return memos(r.client, sessionID).OrderBy("createdAt", gfs.Desc)
}

func decodeMemos(docs []*gfs.DocumentSnapshot) ([]memo.Memo, error) {
	list := make([]memo.Memo, 0, len(docs))
	for _, doc := range docs {
		var d memoDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, err
		}
		list = append(list, d.toMemo(doc.Ref.ID))
	}
	return list, nil
}

// List returns a session's memos, newest first.
func (r *MemoRepository) List(ctx context.Context, sessionID string) ([]memo.Memo, error) {
	docs, err := r.query(sessionID).Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError(err, "list memos")
	}
	list, err := decodeMemos(docs)
	if err != nil {
		return nil, mapError(err, "decode memos")
	}
	return list, nil
}

// Count returns the number of memos in a session.
func (r *MemoRepository) Count(ctx context.Context, sessionID string) (int, error) {
	docs, err := memos(r.client, sessionID).Select().Documents(ctx).GetAll()
	if err != nil {
		return 0, mapError(err, "count memos")
	}
	return len(docs), nil
}

// Create writes a memo document, counting the session's memos in the same
// transaction.
func (r *MemoRepository) Create(ctx context.Context, sessionID string, m *memo.Memo, limit int) error {
	col := memos(r.client, sessionID)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		docs, err := tx.Documents(col.Select()).GetAll()
		if err != nil {
			return err
		}
		if len(docs) >= limit {
			return repository.ErrLimitReached
		}
		return tx.Create(col.Doc(m.ID), memoDoc{
			Title:     m.Title,
			Result:    m.Result,
			Rating:    m.Rating,
			Memo:      m.Memo,
			CreatedAt: m.CreatedAt,
		})
	})
	return mapError(err, "create memo")
}

// Update replaces the mutable fields of a memo.
func (r *MemoRepository) Update(ctx context.Context, sessionID, memoID string, form memo.FormData) error {
	_, err := memos(r.client, sessionID).Doc(memoID).Update(ctx, []gfs.Update{
		{Path: "title", Value: form.Title},
		{Path: "result", Value: form.Result},
		{Path: "rating", Value: form.Rating},
		{Path: "memo", Value: form.Memo},
	})
	return mapError(err, "update memo")
}

// Delete removes a memo. Firestore deletes of missing documents succeed.
func (r *MemoRepository) Delete(ctx context.Context, sessionID, memoID string) error {
	_, err := memos(r.client, sessionID).Doc(memoID).Delete(ctx)
	return mapError(err, "delete memo")
}

// DeleteAll removes every memo of a session atomically.
func (r *MemoRepository) DeleteAll(ctx context.Context, sessionID string) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		return deleteMemos(tx, r.client, sessionID)
	})
	return mapError(err, "delete memos")
}

// Watch streams the full memo list on every change until ctx is cancelled.
func (r *MemoRepository) Watch(ctx context.Context, sessionID string) (<-chan []memo.Memo, error) {
	it := r.query(sessionID).Snapshots(ctx)
	out := make(chan []memo.Memo, 1)

	go func() {
		defer close(out)
		defer it.Stop()
		for {
			snap, err := it.Next()
			if err != nil {
				if ctx.Err() == nil && !errors.Is(err, iterator.Done) && status.Code(err) != codes.Canceled {
					r.logger.Warn("memo listener stopped", "session_id", sessionID, "error", err)
				}
				return
			}
			docs, err := snap.Documents.GetAll()
			if err != nil {
				r.logger.Warn("failed to read memo snapshot", "session_id", sessionID, "error", err)
				continue
			}
			list, err := decodeMemos(docs)
			if err != nil {
				r.logger.Warn("failed to decode memo snapshot", "session_id", sessionID, "error", err)
				continue
			}
			select {
			case <-out:
			default:
			}
			select {
			case out <- list:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
