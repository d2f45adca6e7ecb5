package metadata

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// CacheStore persists snapshots between processes. The blob format is
// private to this package; nothing else should parse it.
type CacheStore interface {
	// Load returns the stored snapshot, or ok == false when none exists.
	Load(ctx context.Context) (*Snapshot, bool, error)
	Save(ctx context.Context, snap *Snapshot) error
	Clear(ctx context.Context) error
}

// FileStore persists the snapshot as a single msgpack blob on disk. Writers
// are not coordinated; the last writer wins.
type FileStore struct {
	path string
}

// NewFileStore builds a store writing to path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the blob location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Load(context.Context) (*Snapshot, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("decode cache blob %s: %w", s.path, err)
	}
	return &snap, true, nil
}

func (s *FileStore) Save(_ context.Context, snap *Snapshot) error {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cache blob: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(s.path, data, 0o644)
}

func (s *FileStore) Clear(context.Context) error {
	err := os.Remove(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// DefaultRedisKey is the key RedisStore writes unless configured otherwise.
const DefaultRedisKey = "trestle:metadata"

// RedisStore persists the snapshot blob in Redis, letting worker processes
// share one warm cache.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisKey overrides the storage key.
func WithRedisKey(key string) RedisOption {
	return func(s *RedisStore) { s.key = key }
}

// WithRedisTTL sets an expiry on the stored blob. Zero means no expiry.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(s *RedisStore) { s.ttl = ttl }
}

// NewRedisStore builds a store over an existing client.
func NewRedisStore(client *redis.Client, opts ...RedisOption) *RedisStore {
	s := &RedisStore{client: client, key: DefaultRedisKey}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) Load(ctx context.Context) (*Snapshot, bool, error) {
	data, err := s.client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	var snap Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("decode cache blob %s: %w", s.key, err)
	}
	return &snap, true, nil
}

func (s *RedisStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode cache blob: %w", err)
	}
	return s.client.Set(ctx, s.key, data, s.ttl).Err()
}

func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
