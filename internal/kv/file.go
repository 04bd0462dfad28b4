package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore keeps all keys in one JSON snapshot file that is rewritten on
// every mutation.
type FileStore struct {
	mu     sync.RWMutex
	file   *os.File
	snap   map[string]json.RawMessage
	logger *slog.Logger
}

// OpenFileStore opens or creates the snapshot at path. An empty path yields a
// store with no persistent medium.
func OpenFileStore(path string, logger *slog.Logger) (Store, error) {
	if path == "" {
		return Nop{}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("failed to open store file: %w", err)
	}
	s := &FileStore{file: f, logger: orDiscard(logger)}
	if err := s.load(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the snapshot file.
func (s *FileStore) Close() error {
	return s.file.Close()
}

func (s *FileStore) load() error {
	info, err := s.file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat store file: %w", err)
	}
	s.snap = map[string]json.RawMessage{}
	if info.Size() == 0 {
		return nil
	}
	if err := json.NewDecoder(s.file).Decode(&s.snap); err != nil {
		// A corrupt snapshot is treated as empty rather than fatal.
		s.logger.Warn("store file unreadable, starting empty", "path", s.file.Name(), "error", err)
		s.snap = map[string]json.RawMessage{}
	}
	return nil
}

func (s *FileStore) flushLocked(snap map[string]json.RawMessage) error {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	enc := json.NewEncoder(s.file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return err
	}
	pos, err := s.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if err := s.file.Truncate(pos); err != nil {
		return err
	}
	return s.file.Sync()
}

func (s *FileStore) withWrite(ctx context.Context, op, key string, fn func(map[string]json.RawMessage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	// Mutate a copy so a failed flush leaves the in-memory view matching disk.
	next := maps.Clone(s.snap)
	if err := fn(next); err != nil {
		return writeFailed(s.logger, op, key, err)
	}
	if err := s.flushLocked(next); err != nil {
		return writeFailed(s.logger, op, key, err)
	}
	s.snap = next
	return nil
}

func (s *FileStore) Get(ctx context.Context, key string, dest any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	raw, ok := s.snap[key]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return decode(s.logger, key, raw, dest), nil
}

func (s *FileStore) Set(ctx context.Context, key string, value any) error {
	return s.withWrite(ctx, "set", key, func(snap map[string]json.RawMessage) error {
		data, err := json.Marshal(value)
		if err != nil {
			return err
		}
		snap[key] = data
		return nil
	})
}

func (s *FileStore) Remove(ctx context.Context, key string) error {
	return s.withWrite(ctx, "remove", key, func(snap map[string]json.RawMessage) error {
		delete(snap, key)
		return nil
	})
}

func (s *FileStore) Clear(ctx context.Context) error {
	return s.withWrite(ctx, "clear", "", func(snap map[string]json.RawMessage) error {
		clear(snap)
		return nil
	})
}

func (s *FileStore) ClearPrefix(ctx context.Context, prefix string) error {
	return s.withWrite(ctx, "clear", prefix, func(snap map[string]json.RawMessage) error {
		for k := range snap {
			if strings.HasPrefix(k, prefix) {
				delete(snap, k)
			}
		}
		return nil
	})
}
