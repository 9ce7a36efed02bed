// Package store persists trained machines under symbolic names so they can be
// reused without retraining.
package store

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/hervehildenbrand/bgp-baseline/pkg/machine"
)

// ModelStore saves and loads trained machines by name (e.g. "one_month").
type ModelStore interface {
	Save(ctx context.Context, name string, m *machine.Machine) error
	Load(ctx context.Context, name string) (*machine.Machine, error)
	List(ctx context.Context) ([]string, error)
}

// FileStore keeps one gob file per model in a directory.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create model directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(name string) string {
	return filepath.Join(s.dir, name+".gob")
}

func (s *FileStore) Save(_ context.Context, name string, m *machine.Machine) error {
	return m.Save(s.path(name))
}

func (s *FileStore) Load(_ context.Context, name string) (*machine.Machine, error) {
	return machine.Load(s.path(name))
}

func (s *FileStore) List(_ context.Context) ([]string, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.gob"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(paths))
	for _, path := range paths {
		names = append(names, strings.TrimSuffix(filepath.Base(path), ".gob"))
	}
	sort.Strings(names)
	return names, nil
}

const (
	redisModelPrefix = "bgpbaseline:model:"
	redisModelIndex  = "bgpbaseline:models"
)

// RedisStore keeps gob-encoded machines in Redis, with a set tracking the
// known model names.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore wraps an existing Redis client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Save(ctx context.Context, name string, m *machine.Machine) error {
	var buf bytes.Buffer
	if err := m.Encode(&buf); err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisModelPrefix+name, buf.Bytes(), 0).Err(); err != nil {
		return fmt.Errorf("store model %q: %w", name, err)
	}
	if err := s.client.SAdd(ctx, redisModelIndex, name).Err(); err != nil {
		return fmt.Errorf("index model %q: %w", name, err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, name string) (*machine.Machine, error) {
	data, err := s.client.Get(ctx, redisModelPrefix+name).Bytes()
	if err != nil {
		return nil, fmt.Errorf("load model %q: %w", name, err)
	}
	return machine.Decode(bytes.NewReader(data))
}

func (s *RedisStore) List(ctx context.Context) ([]string, error) {
	names, err := s.client.SMembers(ctx, redisModelIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
