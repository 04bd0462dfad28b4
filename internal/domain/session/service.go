package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/ggmemo/ggmemo/internal/apperr"
	"github.com/ggmemo/ggmemo/internal/domain/stats"
	"github.com/ggmemo/ggmemo/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Service handles battle session operations.
type Service struct {
	sessions Repository
	memos    MemoLister
	logger   *slog.Logger

	now               func() time.Time
	newID             func() (string, error)
	deleteConcurrency int
}

// NewService creates a new session service.
func NewService(sessions Repository, memos MemoLister, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		sessions:          sessions,
		memos:             memos,
		logger:            logger,
		now:               time.Now,
		newID:             defaultID,
		deleteConcurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the owner's sessions, most recently updated first.
func (s *Service) List(ctx context.Context, userID string) ([]BattleSession, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	return s.sessions.List(ctx, userID)
}

// Get returns one of the owner's sessions.
func (s *Service) Get(ctx context.Context, userID, sessionID string) (*BattleSession, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if sess.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Create adds a session for req.UserID, enforcing the per-owner cap and the
// title length limit.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*BattleSession, error) {
	if req.UserID == "" {
		return nil, apperr.Session(apperr.CodeUnauthorized, "You must be signed in to create a session")
	}

	count, err := s.sessions.Count(ctx, req.UserID)
	if err != nil {
		return nil, createFailed(req.Title, err)
	}
	if count >= MaxSessionsPerUser {
		return nil, limitExceeded(req.UserID, count)
	}
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}

	id, err := s.newID()
	if err != nil {
		return nil, createFailed(req.Title, err)
	}
	sess := &BattleSession{
		ID:        id,
		UserID:    req.UserID,
		Title:     req.Title,
		UpdatedAt: s.now().UTC(),
	}
	if err := s.sessions.Create(ctx, sess, MaxSessionsPerUser); err != nil {
		if errors.Is(err, repository.ErrLimitReached) {
			return nil, limitExceeded(req.UserID, MaxSessionsPerUser)
		}
		return nil, createFailed(req.Title, err)
	}

	s.logger.Debug("session created", "session_id", sess.ID, "user_id", sess.UserID)
	return sess, nil
}

func limitExceeded(userID string, count int) error {
	return apperr.Session(apperr.CodeSessionLimitExceeded,
		fmt.Sprintf("You have reached the maximum limit of %d battle sessions", MaxSessionsPerUser),
		apperr.WithSeverity(apperr.SeverityWarning),
		apperr.WithContext("userId", userID),
		apperr.WithContext("currentCount", count),
	)
}

// Update applies a partial patch and re-stamps UpdatedAt.
func (s *Service) Update(ctx context.Context, userID, sessionID string, patch Patch) (*BattleSession, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return nil, err
		}
	}

	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := s.sessions.Update(ctx, sessionID, patch, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		opts := []apperr.Option{
			apperr.WithContext("sessionId", sessionID),
			apperr.WithCause(err),
		}
		if patch.Title != nil {
			opts = append(opts, apperr.WithContext("title", *patch.Title))
		}
		return nil, apperr.Session(apperr.CodeSessionUpdateFailed, "Failed to update session", opts...)
	}

	if patch.Title != nil {
		sess.Title = *patch.Title
	}
	sess.UpdatedAt = now
	return sess, nil
}

// Delete removes a session together with all of its memos.
func (s *Service) Delete(ctx context.Context, userID, sessionID string) error {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return err
	}
	if err := s.sessions.DeleteWithMemos(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return deleteFailed(sessionID, err)
	}
	s.logger.Debug("session deleted", "session_id", sessionID, "user_id", userID)
	return nil
}

// DeleteAll removes every session the owner has. Deletions run concurrently
// and are not rolled back on partial failure; the first failure is returned.
func (s *Service) DeleteAll(ctx context.Context, userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	sessions, err := s.sessions.List(ctx, userID)
	if err != nil {
		return deleteFailed("", err)
	}

	var g errgroup.Group
	g.SetLimit(s.deleteConcurrency)
	for _, sess := range sessions {
		g.Go(func() error {
			err := s.sessions.DeleteWithMemos(ctx, sess.ID)
			if err != nil && !errors.Is(err, repository.ErrNotFound) {
				s.logger.Warn("failed to delete session", "session_id", sess.ID, "error", err)
				return deleteFailed(sess.ID, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Stats computes statistics over a session's memos.
func (s *Service) Stats(ctx context.Context, userID, sessionID string) (stats.Stats, error) {
	if _, err := s.Get(ctx, userID, sessionID); err != nil {
		return stats.Stats{}, err
	}
	memos, err := s.memos.List(ctx, sessionID)
	if err != nil {
		return stats.Stats{}, fmt.Errorf("loading memos: %w", err)
	}
	return stats.Calculate(memos), nil
}

// Export renders a session and its memos as Markdown.
func (s *Service) Export(ctx context.Context, userID, sessionID string, hideRating bool) (string, error) {
	sess, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return "", err
	}
	memos, err := s.memos.List(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("loading memos: %w", err)
	}
	return stats.Markdown(memos, stats.Calculate(memos), sess.Title, hideRating), nil
}

func validateTitle(title string) error {
	if n := utf8.RuneCountInString(title); n > MaxTitleLength {
		return apperr.Session(apperr.CodeSessionTitleTooLong,
			fmt.Sprintf("Session title must be %d characters or less", MaxTitleLength),
			apperr.WithContext("length", n),
		)
	}
	return nil
}

func createFailed(title string, cause error) error {
	return apperr.Session(apperr.CodeSessionCreateFailed, "Failed to create session",
		apperr.WithContext("title", title),
		apperr.WithCause(cause),
	)
}

func deleteFailed(sessionID string, cause error) error {
	return apperr.Session(apperr.CodeSessionDeleteFailed, "Failed to delete session",
		apperr.WithContext("sessionId", sessionID),
		apperr.WithCause(cause),
	)
}
