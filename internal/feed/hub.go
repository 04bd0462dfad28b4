// Package feed fans out "session memos changed" signals to live subscribers.
// A Hub works in-process by default; with a Redis client attached it also
// mirrors signals to other server instances over pub/sub.
package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultChannel is the Redis pub/sub channel used when none is configured.
const DefaultChannel = "ggmemo:memos"

type message struct {
	Origin    string `json:"origin"`
	SessionID string `json:"sessionId"`
}

// Hub implements memo.Notifier.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]chan struct{}
	nextID uint64

	origin  string
	client  redis.UniversalClient
	channel string
	logger  *slog.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithRedis mirrors published signals over a Redis channel. Run must be
// started to receive signals from other instances.
func WithRedis(client redis.UniversalClient, channel string) Option {
	return func(h *Hub) {
		h.client = client
		if channel != "" {
			h.channel = channel
		}
	}
}

// NewHub creates a new hub.
func NewHub(logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Hub{
		subs:    make(map[string]map[uint64]chan struct{}),
		origin:  uuid.NewString(),
		channel: DefaultChannel,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers for change signals on a session. Signals coalesce: a
// subscriber that hasn't consumed the previous one receives nothing extra.
func (h *Hub) Subscribe(sessionID string) (<-chan struct{}, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan struct{}, 1)
	if h.subs[sessionID] == nil {
		h.subs[sessionID] = make(map[uint64]chan struct{})
	}
	h.subs[sessionID][id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[sessionID], id)
			if len(h.subs[sessionID]) == 0 {
				delete(h.subs, sessionID)
			}
		})
	}
}

// Publish signals local subscribers and, when Redis is attached, remote ones.
func (h *Hub) Publish(ctx context.Context, sessionID string) {
	h.notify(sessionID)
	if h.client == nil {
		return
	}
	payload, err := json.Marshal(message{Origin: h.origin, SessionID: sessionID})
	if err != nil {
		h.logger.Error("failed to encode feed message", "error", err)
		return
	}
	if err := h.client.Publish(ctx, h.channel, payload).Err(); err != nil {
		h.logger.Warn("failed to publish memo change", "session_id", sessionID, "error", err)
	}
}

// Subscribers returns the number of live subscriptions for a session.
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[sessionID])
}

// Run relays signals published by other instances until ctx is cancelled.
// It returns immediately when no Redis client is attached.
func (h *Hub) Run(ctx context.Context) error {
	if h.client == nil {
		return nil
	}
	pubsub := h.client.Subscribe(ctx, h.channel)
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before relaying.
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	h.logger.Info("memo feed subscribed", "channel", h.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			h.relay(msg.Payload)
		}
	}
}

func (h *Hub) relay(payload string) {
	var m message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		h.logger.Warn("ignoring malformed feed message", "error", err)
		return
	}
	if m.Origin == h.origin || m.SessionID == "" {
		return
	}
	h.notify(m.SessionID)
}

func (h *Hub) notify(sessionID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, ch := range h.subs[sessionID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
