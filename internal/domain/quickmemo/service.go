// Package quickmemo manages memos recorded without a battle session. All
// memos live in one list under a single storage key, and no length or count
// limits are enforced here.
package quickmemo

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ggmemo/ggmemo/internal/apperr"
	"github.com/ggmemo/ggmemo/internal/domain/memo"
	"github.com/ggmemo/ggmemo/internal/kv"
	"github.com/ggmemo/ggmemo/internal/pagination"
	"github.com/google/uuid"
)

// StorageKey is the key holding the serialized memo list.
const StorageKey = "memos"

// ErrMemoNotFound indicates the memo doesn't exist.
var ErrMemoNotFound = apperr.Memo(apperr.CodeNotFound, "Memo not found")

// Service handles quick memo operations over a kv.Store. Mutations are
// read-modify-write on the whole list and hold mu throughout.
type Service struct {
	store  kv.Store
	logger *slog.Logger
	now    func() time.Time
	mu     *sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithLock shares mu with other services over the same list. Services built
// per request for one namespace must share a lock.
func WithLock(mu *sync.Mutex) Option {
	return func(s *Service) { s.mu = mu }
}

// NewService creates a new quick memo service.
func NewService(store kv.Store, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Service{store: store, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.mu == nil {
		s.mu = &sync.Mutex{}
	}
	return s
}

// Locks hands out one mutex per storage namespace.
type Locks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// For returns the mutex for namespace, creating it on first use.
func (l *Locks) For(namespace string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = make(map[string]*sync.Mutex)
	}
	mu, ok := l.locks[namespace]
	if !ok {
		mu = &sync.Mutex{}
		l.locks[namespace] = mu
	}
	return mu
}

// List returns every memo, newest first.
func (s *Service) List(ctx context.Context) ([]memo.Memo, error) {
	var memos []memo.Memo
	found, err := s.store.Get(ctx, StorageKey, &memos)
	if err != nil {
		return nil, err
	}
	if !found || memos == nil {
		return []memo.Memo{}, nil
	}
	return memos, nil
}

// Add stores a new memo at the front of the list.
func (s *Service) Add(ctx context.Context, form memo.FormData) (*memo.Memo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	m := memo.Memo{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
	}
	m.Apply(form)

	memos = slices.Insert(memos, 0, m)
	if err := s.store.Set(ctx, StorageKey, memos); err != nil {
		return nil, err
	}
	return &m, nil
}

// Update replaces every field except ID and CreatedAt.
func (s *Service) Update(ctx context.Context, id string, form memo.FormData) (*memo.Memo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	memos, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(memos, func(m memo.Memo) bool { return m.ID == id })
	if i < 0 {
		return nil, ErrMemoNotFound
	}
	memos[i].Apply(form)
	if err := s.store.Set(ctx, StorageKey, memos); err != nil {
		return nil, err
	}
	updated := memos[i]
	return &updated, nil
}

// Remove deletes a memo by id. Removing an absent id is a no-op.
func (s *Service) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	memos, err := s.List(ctx)
	if err != nil {
		return err
	}
	memos = slices.DeleteFunc(memos, func(m memo.Memo) bool { return m.ID == id })
	return s.store.Set(ctx, StorageKey, memos)
}

// RemoveAll empties the list.
func (s *Service) RemoveAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.store.Set(ctx, StorageKey, []memo.Memo{})
}

// Count returns the number of stored memos.
func (s *Service) Count(ctx context.Context) (int, error) {
	memos, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(memos), nil
}

// Page returns one page of the list.
func (s *Service) Page(ctx context.Context, page, perPage int) (pagination.Page[memo.Memo], error) {
	memos, err := s.List(ctx)
	if err != nil {
		return pagination.Page[memo.Memo]{}, err
	}
	return pagination.Paginate(memos, perPage, page), nil
}
