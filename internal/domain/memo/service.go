package memo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ggmemo/ggmemo/internal/apperr"
	"github.com/ggmemo/ggmemo/internal/repository"
)

// Service handles memo operations for battle sessions.
type Service struct {
	repo     Repository
	notifier Notifier
	sessions SessionToucher
	logger   *slog.Logger
	now      func() time.Time
	newID    func() (string, error)
}

// NewService creates a new memo service.
func NewService(repo Repository, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
		newID:  defaultID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns a session's memos, newest first.
func (s *Service) List(ctx context.Context, sessionID string) ([]Memo, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.List(ctx, sessionID)
}

// Add validates and stores a new memo. Validation and the per-session limit
// are checked before anything is written.
func (s *Service) Add(ctx context.Context, sessionID string, form FormData) (*Memo, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	if err := ValidateForm(form); err != nil {
		return nil, err
	}

	count, err := s.repo.Count(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if count >= MaxMemosPerSession {
		return nil, limitExceeded(sessionID, count)
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("generating memo id: %w", err)
	}
	m := &Memo{ID: id, CreatedAt: s.now().UTC()}
	m.Apply(form)

	if err := s.repo.Create(ctx, sessionID, m, MaxMemosPerSession); err != nil {
		// Another writer filled the session after the count above.
		if errors.Is(err, repository.ErrLimitReached) {
			return nil, limitExceeded(sessionID, MaxMemosPerSession)
		}
		return nil, err
	}
	s.changed(ctx, sessionID)
	return m, nil
}

func limitExceeded(sessionID string, count int) error {
	return apperr.Memo(apperr.CodeSessionLimitExceeded,
		fmt.Sprintf("Cannot add more memos. Maximum limit of %d memos per session reached.", MaxMemosPerSession),
		apperr.WithSeverity(apperr.SeverityWarning),
		apperr.WithContext("sessionId", sessionID),
		apperr.WithContext("currentCount", count),
	)
}

// Update replaces the mutable fields of a memo.
func (s *Service) Update(ctx context.Context, sessionID, memoID string, form FormData) error {
	if sessionID == "" || memoID == "" {
		return ErrInvalidInput
	}
	if err := ValidateForm(form); err != nil {
		return err
	}
	if err := s.repo.Update(ctx, sessionID, memoID, form); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrMemoNotFound
		}
		return err
	}
	s.changed(ctx, sessionID)
	return nil
}

// Remove deletes a memo. Removing an absent memo is not an error.
func (s *Service) Remove(ctx context.Context, sessionID, memoID string) error {
	if sessionID == "" || memoID == "" {
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, sessionID, memoID); err != nil {
		return err
	}
	s.changed(ctx, sessionID)
	return nil
}

// RemoveAll deletes every memo of a session in one batch.
func (s *Service) RemoveAll(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return ErrInvalidInput
	}
	if err := s.repo.DeleteAll(ctx, sessionID); err != nil {
		return err
	}
	s.changed(ctx, sessionID)
	return nil
}

// Count returns the number of memos in a session.
func (s *Service) Count(ctx context.Context, sessionID string) (int, error) {
	if sessionID == "" {
		return 0, ErrInvalidInput
	}
	return s.repo.Count(ctx, sessionID)
}

func (s *Service) changed(ctx context.Context, sessionID string) {
	if s.sessions != nil {
		if err := s.sessions.Touch(ctx, sessionID, s.now().UTC()); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("failed to touch session", "session_id", sessionID, "error", err)
		}
	}
	if s.notifier != nil {
		s.notifier.Publish(ctx, sessionID)
	}
}
