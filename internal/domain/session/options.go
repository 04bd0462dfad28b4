package session

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Option configures a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides the default nanoid generator.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Service) { s.newID = gen }
}

// WithDeleteConcurrency bounds parallel deletions in DeleteAll.
func WithDeleteConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.deleteConcurrency = n
		}
	}
}

func defaultID() (string, error) {
	return gonanoid.New(20)
}
