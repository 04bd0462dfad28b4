package autosave

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/ggmemo/ggmemo/internal/kv"
)

// Registry keeps one coordinator per owner. Each owner's drafts live under
// its own key prefix.
type Registry struct {
	store  kv.Store
	cfg    Config
	logger *slog.Logger

	mu     sync.Mutex
	byUser map[string]*Coordinator
}

// NewRegistry creates a registry over a shared store.
func NewRegistry(store kv.Store, cfg Config, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		store:  store,
		cfg:    cfg,
		logger: logger,
		byUser: make(map[string]*Coordinator),
	}
}

// For returns the owner's coordinator, creating it on first use.
func (r *Registry) For(owner string) *Coordinator {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byUser[owner]
	if !ok {
		c = New(kv.WithPrefix(r.store, "draft:"+owner+":"), r.cfg, r.logger.With("owner", owner))
		r.byUser[owner] = c
	}
	return c
}

// Restore returns the owner's saved draft for an editor that is opening.
// The first call per owner goes through Load, which also seeds the last
// persisted value so an unchanged edit is not written again. Later calls
// (another tab, a reload) return the stored draft with restored false.
func (r *Registry) Restore(ctx context.Context, owner string) (content string, restored bool, err error) {
	c := r.For(owner)
	content, restored, err = c.Load(ctx)
	if err != nil || restored {
		return content, restored, err
	}
	if _, err := c.store.Get(ctx, c.cfg.Key, &content); err != nil {
		return "", false, err
	}
	return content, false, nil
}

// FlushAll writes every pending draft and closes the coordinators.
func (r *Registry) FlushAll(ctx context.Context) error {
	r.mu.Lock()
	all := make([]*Coordinator, 0, len(r.byUser))
	for _, c := range r.byUser {
		all = append(all, c)
	}
	r.byUser = make(map[string]*Coordinator)
	r.mu.Unlock()

	var errs []error
	for _, c := range all {
		if err := c.Flush(ctx); err != nil {
			errs = append(errs, err)
		}
		c.Close()
	}
	return errors.Join(errs...)
}
