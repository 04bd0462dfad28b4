// Package kv provides the key/value storage port used for device-local data
// such as quick memos and editor drafts.
package kv

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ggmemo/ggmemo/internal/apperr"
)

// Store persists JSON-serializable values by string key.
//
// Get reports found=false for missing keys and for stored data that cannot
// be decoded into dest. Write failures are returned as storage errors.
type Store interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}

// PrefixClearer is implemented by stores that can drop every key sharing a
// prefix.
type PrefixClearer interface {
	ClearPrefix(ctx context.Context, prefix string) error
}

// Nop is a Store with no persistent medium. Every call succeeds and nothing
// is ever found.
type Nop struct{}

func (Nop) Get(context.Context, string, any) (bool, error) { return false, nil }
func (Nop) Set(context.Context, string, any) error         { return nil }
func (Nop) Remove(context.Context, string) error           { return nil }
func (Nop) Clear(context.Context) error                    { return nil }
func (Nop) ClearPrefix(context.Context, string) error      { return nil }

// decode unmarshals raw into dest, logging and reporting not-found on
// malformed data.
func decode(logger *slog.Logger, key string, raw []byte, dest any) bool {
	if err := json.Unmarshal(raw, dest); err != nil {
		logger.Warn("discarding malformed stored value", "key", key, "error", err)
		return false
	}
	return true
}

func writeFailed(logger *slog.Logger, op, key string, err error) error {
	logger.Error("storage write failed", "op", op, "key", key, "error", err)
	return apperr.Storage(apperr.CodeStorageWriteFailed, "failed to save data",
		apperr.WithContext("op", op),
		apperr.WithContext("key", key),
		apperr.WithCause(err),
	)
}

func orDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}
