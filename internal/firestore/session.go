package firestore

import (
	"context"
	"time"

	gfs "cloud.google.com/go/firestore"
	"github.com/ggmemo/ggmemo/internal/domain/session"
	"github.com/ggmemo/ggmemo/internal/repository"
)

type sessionDoc struct {
	UserID    string    `firestore:"userId"`
	Title     string    `firestore:"title"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

func (d sessionDoc) toSession(id string) session.BattleSession {
	return session.BattleSession{ID: id, UserID: d.UserID, Title: d.Title, UpdatedAt: utc(d.UpdatedAt)}
}

// SessionRepository implements session.Repository for Firestore.
type SessionRepository struct {
	client *gfs.Client
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(client *gfs.Client) *SessionRepository {
	return &SessionRepository{client: client}
}

// List returns a user's sessions, most recently updated first.
func (r *SessionRepository) List(ctx context.Context, userID string) ([]session.BattleSession, error) {
	docs, err := sessions(r.client).
		Where("userId", "==", userID).
		OrderBy("updatedAt", gfs.Desc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, mapError(err, "list sessions")
	}

	list := make([]session.BattleSession, 0, len(docs))
	for _, doc := range docs {
		var d sessionDoc
		if err := doc.DataTo(&d); err != nil {
			return nil, mapError(err, "decode session")
		}
		list = append(list, d.toSession(doc.Ref.ID))
	}
	return list, nil
}

// Count returns the number of sessions a user owns.
func (r *SessionRepository) Count(ctx context.Context, userID string) (int, error) {
	docs, err := sessions(r.client).Where("userId", "==", userID).Select().Documents(ctx).GetAll()
	if err != nil {
		return 0, mapError(err, "count sessions")
	}
	return len(docs), nil
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(ctx context.Context, id string) (*session.BattleSession, error) {
	doc, err := sessions(r.client).Doc(id).Get(ctx)
	if err != nil {
		return nil, mapError(err, "get session")
	}
	var d sessionDoc
	if err := doc.DataTo(&d); err != nil {
		return nil, mapError(err, "decode session")
	}
	sess := d.toSession(doc.Ref.ID)
	return &sess, nil
}

// Create writes a new session document, counting the owner's sessions in
// the same transaction.
func (r *SessionRepository) Create(ctx context.Context, sess *session.BattleSession, limit int) error {
	owned := sessions(r.client).Where("userId", "==", sess.UserID).Select()
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		docs, err := tx.Documents(owned).GetAll()
		if err != nil {
			return err
		}
		if len(docs) >= limit {
			return repository.ErrLimitReached
		}
		return tx.Create(sessions(r.client).Doc(sess.ID), sessionDoc{
			UserID:    sess.UserID,
			Title:     sess.Title,
			UpdatedAt: sess.UpdatedAt,
		})
	})
	return mapError(err, "create session")
}

// Update applies a partial patch and stamps updatedAt.
func (r *SessionRepository) Update(ctx context.Context, id string, patch session.Patch, updatedAt time.Time) error {
	updates := []gfs.Update{{Path: "updatedAt", Value: updatedAt}}
	if patch.Title != nil {
		updates = append(updates, gfs.Update{Path: "title", Value: *patch.Title})
	}
	_, err := sessions(r.client).Doc(id).Update(ctx, updates)
	return mapError(err, "update session")
}

// Touch stamps updatedAt.
func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	_, err := sessions(r.client).Doc(id).Update(ctx, []gfs.Update{{Path: "updatedAt", Value: at}})
	return mapError(err, "touch session")
}

// DeleteWithMemos deletes the session and its memos in one transaction.
func (r *SessionRepository) DeleteWithMemos(ctx context.Context, id string) error {
	ref := sessions(r.client).Doc(id)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *gfs.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			return err
		}
		if err := deleteMemos(tx, r.client, id); err != nil {
			return err
		}
		return tx.Delete(ref)
	})
	return mapError(err, "delete session")
}
