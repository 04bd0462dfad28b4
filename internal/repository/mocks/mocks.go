package mocks

import (
	"context"
	"time"

	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/ggmemo/ggmemo/internal/domain/session"
	"github.com/stretchr/testify/mock"
)

// SessionRepository is a mock for session.Repository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) List(ctx context.Context, userID string) ([]session.BattleSession, error) {
	args := m.Called(ctx, userID)
	if list, ok := args.Get(0).([]session.BattleSession); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Count(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *SessionRepository) Get(ctx context.Context, id string) (*session.BattleSession, error) {
	args := m.Called(ctx, id)
	if sess, ok := args.Get(0).(*session.BattleSession); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Create(ctx context.Context, sess *session.BattleSession, limit int) error {
	args := m.Called(ctx, sess, limit)
	return args.Error(0)
}

func (m *SessionRepository) Update(ctx context.Context, id string, patch session.Patch, updatedAt time.Time) error {
	args := m.Called(ctx, id, patch, updatedAt)
	return args.Error(0)
}

func (m *SessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *SessionRepository) DeleteWithMemos(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MemoRepository is a mock for memo.Repository.
type MemoRepository struct {
	mock.Mock
}

func (m *MemoRepository) List(ctx context.Context, sessionID string) ([]memo.Memo, error) {
	args := m.Called(ctx, sessionID)
	if list, ok := args.Get(0).([]memo.Memo); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MemoRepository) Count(ctx context.Context, sessionID string) (int, error) {
	args := m.Called(ctx, sessionID)
	return args.Int(0), args.Error(1)
}

func (m *MemoRepository) Create(ctx context.Context, sessionID string, rec *memo.Memo, limit int) error {
	args := m.Called(ctx, sessionID, rec, limit)
	return args.Error(0)
}

func (m *MemoRepository) Update(ctx context.Context, sessionID, memoID string, form memo.FormData) error {
	args := m.Called(ctx, sessionID, memoID, form)
	return args.Error(0)
}

func (m *MemoRepository) Delete(ctx context.Context, sessionID, memoID string) error {
	args := m.Called(ctx, sessionID, memoID)
	return args.Error(0)
}

func (m *MemoRepository) DeleteAll(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// Notifier is a mock for memo.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Publish(ctx context.Context, sessionID string) {
	m.Called(ctx, sessionID)
}

func (m *Notifier) Subscribe(sessionID string) (<-chan struct{}, func()) {
	args := m.Called(sessionID)
	return args.Get(0).(<-chan struct{}), args.Get(1).(func())
}
