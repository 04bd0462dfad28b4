// Package autosave persists editor drafts to a kv.Store after a debounce
// delay, skipping content over a character limit.
package autosave

import (
	"context"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/ggmemo/ggmemo/internal/kv"
)

const (
	// DefaultDelay is the debounce delay before a write.
	DefaultDelay = 500 * time.Millisecond
	// DefaultLimit is the maximum number of characters persisted.
	DefaultLimit = 5000
	// StorageKey is the key holding the draft.
	StorageKey = "editorContent"
)

// Timer is a pending scheduled call.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed calls.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Config configures a Coordinator. Zero values fall back to the defaults.
type Config struct {
	Key   string
	Delay time.Duration
	Limit int
	// Measure counts characters. Defaults to the rune count.
	Measure func(string) int
	Clock   Clock
}

// Status reports the coordinator state after an update.
type Status struct {
	OverLimit bool `json:"overLimit"`
	Length    int  `json:"length"`
	Limit     int  `json:"limit"`
	Pending   bool `json:"pending"`
}

// Coordinator debounces writes of one draft.
type Coordinator struct {
	store  kv.Store
	cfg    Config
	logger *slog.Logger

	mu        sync.Mutex
	timer     Timer
	gen       uint64
	pending   string
	lastSaved string
	overLimit bool
	loaded    bool
	closed    bool
}

// New creates a coordinator writing to store.
func New(store kv.Store, cfg Config, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.Key == "" {
		cfg.Key = StorageKey
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultDelay
	}
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Measure == nil {
		cfg.Measure = utf8.RuneCountInString
	}
	if cfg.Clock == nil {
		cfg.Clock = realClock{}
	}
	return &Coordinator{store: store, cfg: cfg, logger: logger}
}

// OnUpdate records an edit. Over-limit content is never scheduled; a pending
// under-limit write stays in place. Content equal to the last persisted value
// cancels any pending write.
func (c *Coordinator) OnUpdate(content string) Status {
	length := c.cfg.Measure(content)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.overLimit = length > c.cfg.Limit
	if c.closed || c.overLimit {
		return c.statusLocked(length)
	}

	c.cancelLocked()
	if content == c.lastSaved {
		return c.statusLocked(length)
	}

	c.gen++
	gen := c.gen
	c.pending = content
	c.timer = c.cfg.Clock.AfterFunc(c.cfg.Delay, func() { c.fire(gen) })
	return c.statusLocked(length)
}

// Load returns the saved draft on the first call only. Later calls, and a
// first call with nothing saved, return false.
func (c *Coordinator) Load(ctx context.Context) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return "", false, nil
	}
	var content string
	found, err := c.store.Get(ctx, c.cfg.Key, &content)
	if err != nil {
		return "", false, err
	}
	if !found || content == "" {
		return "", false, nil
	}
	c.loaded = true
	c.lastSaved = content
	c.overLimit = c.cfg.Measure(content) > c.cfg.Limit
	return content, true, nil
}

// Flush writes a pending draft immediately.
func (c *Coordinator) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer == nil {
		return nil
	}
	c.cancelLocked()
	return c.writeLocked(ctx, c.pending)
}

// Close cancels any pending write. Updates after Close are ignored.
func (c *Coordinator) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.closed = true
}

// Status returns the current state without an edit.
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked(-1)
}

func (c *Coordinator) fire(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.timer == nil {
		return
	}
	c.timer = nil
	if err := c.writeLocked(context.Background(), c.pending); err != nil {
		c.logger.Error("autosave failed", "key", c.cfg.Key, "error", err)
	}
}

func (c *Coordinator) writeLocked(ctx context.Context, content string) error {
	if content == c.lastSaved {
		return nil
	}
	if err := c.store.Set(ctx, c.cfg.Key, content); err != nil {
		return err
	}
	c.lastSaved = content
	return nil
}

func (c *Coordinator) cancelLocked() {
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.gen++
}

func (c *Coordinator) statusLocked(length int) Status {
	if length < 0 {
		length = c.cfg.Measure(c.lastSaved)
		if c.timer != nil {
			length = c.cfg.Measure(c.pending)
		}
	}
	return Status{
		OverLimit: c.overLimit,
		Length:    length,
		Limit:     c.cfg.Limit,
		Pending:   c.timer != nil,
	}
}
