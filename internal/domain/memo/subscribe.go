package memo

import (
	"context"
	"errors"
	"sync"
)

// ErrWatchUnsupported is returned by Subscribe when neither the repository
// nor a notifier can report changes.
var ErrWatchUnsupported = errors.New("live memo updates not configured")

// Subscribe streams full memo lists for a session, starting with the current
// one, until ctx is cancelled. The channel is closed on cancellation.
func (s *Service) Subscribe(ctx context.Context, sessionID string) (<-chan []Memo, error) {
	if sessionID == "" {
		return nil, ErrInvalidInput
	}
	if w, ok := s.repo.(Watcher); ok {
		return w.Watch(ctx, sessionID)
	}
	if s.notifier == nil {
		return nil, ErrWatchUnsupported
	}

	updates, unsubscribe := s.notifier.Subscribe(sessionID)
	initial, err := s.repo.List(ctx, sessionID)
	if err != nil {
		unsubscribe()
		return nil, err
	}

	out := make(chan []Memo, 1)
	out <- initial
	go func() {
		defer close(out)
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-updates:
				if !ok {
					return
				}
				list, err := s.repo.List(ctx, sessionID)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					s.logger.Warn("failed to refresh memo snapshot", "session_id", sessionID, "error", err)
					continue
				}
				// Only the newest snapshot matters; replace an unread one.
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
		}
	}()
	return out, nil
}

// Subscriber is the part of Service a Follower needs.
type Subscriber interface {
	Subscribe(ctx context.Context, sessionID string) (<-chan []Memo, error)
}

// Follower holds at most one live subscription. Following a new session
// cancels the previous subscription, and once Follow or Stop returns no
// snapshot from the old subscription is delivered. onSnapshot must not call
// back into the Follower.
type Follower struct {
	source     Subscriber
	onSnapshot func(sessionID string, memos []Memo)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// NewFollower creates a Follower delivering snapshots to onSnapshot.
func NewFollower(source Subscriber, onSnapshot func(sessionID string, memos []Memo)) *Follower {
	return &Follower{source: source, onSnapshot: onSnapshot}
}

// Follow switches to sessionID.
func (f *Follower) Follow(ctx context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopLocked()

	subCtx, cancel := context.WithCancel(ctx)
	snapshots, err := f.source.Subscribe(subCtx, sessionID)
	if err != nil {
		cancel()
		return err
	}

	f.gen++
	gen := f.gen
	f.cancel = cancel

	go func() {
		for list := range snapshots {
			if !f.deliver(subCtx, gen, sessionID, list) {
				cancel()
				// Drain so the producer can observe cancellation and exit.
				for range snapshots {
				}
				return
			}
		}
	}()
	return nil
}

// Stop cancels the active subscription.
func (f *Follower) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopLocked()
}

func (f *Follower) stopLocked() {
	if f.cancel == nil {
		return
	}
	f.gen++
	f.cancel()
	f.cancel = nil
}

func (f *Follower) deliver(ctx context.Context, gen uint64, sessionID string, list []Memo) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen || ctx.Err() != nil {
		return false
	}
	f.onSnapshot(sessionID, list)
	return true
}
