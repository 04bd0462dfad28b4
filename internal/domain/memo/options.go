package memo

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Option configures a Service.
type Option func(*Service)

// WithNotifier publishes changes and backs Subscribe for repositories that
// cannot watch natively.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithSessionToucher refreshes the parent session on every mutation.
func WithSessionToucher(t SessionToucher) Option {
	return func(s *Service) { s.sessions = t }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the default nanoid generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newID = gen }
}

func defaultID() (string, error) {
	return gonanoid.New(20)
}
