package kv

import "context"

// Prefixed namespaces every key of an inner store.
type Prefixed struct {
	inner  Store
	prefix string
}

// WithPrefix returns a view of store in which every key is prefixed.
func WithPrefix(store Store, prefix string) *Prefixed {
	return &Prefixed{inner: store, prefix: prefix}
}

func (p *Prefixed) Get(ctx context.Context, key string, dest any) (bool, error) {
	return p.inner.Get(ctx, p.prefix+key, dest)
}

func (p *Prefixed) Set(ctx context.Context, key string, value any) error {
	return p.inner.Set(ctx, p.prefix+key, value)
}

func (p *Prefixed) Remove(ctx context.Context, key string) error {
	return p.inner.Remove(ctx, p.prefix+key)
}

// Clear removes only the namespaced keys when the inner store supports
// prefix clearing, and clears the inner store otherwise.
func (p *Prefixed) Clear(ctx context.Context) error {
	if pc, ok := p.inner.(PrefixClearer); ok {
		return pc.ClearPrefix(ctx, p.prefix)
	}
	return p.inner.Clear(ctx)
}

func (p *Prefixed) ClearPrefix(ctx context.Context, prefix string) error {
	if pc, ok := p.inner.(PrefixClearer); ok {
		return pc.ClearPrefix(ctx, p.prefix+prefix)
	}
	return p.inner.Clear(ctx)
}
