package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// FileDraftStore keeps one JSON file per draft under a directory.
type FileDraftStore struct {
	dir string
	mu  sync.Mutex
	now func() time.Time
}

// NewFileDraftStore creates dir if needed.
func NewFileDraftStore(dir string) (*FileDraftStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create draft dir: %w", err)
	}
	return &FileDraftStore{dir: dir, now: time.Now}, nil
}

func (s *FileDraftStore) path(id string) (string, error) {
	if !validDraftID(id) {
		return "", fmt.Errorf("invalid draft id %q", id)
	}
	return filepath.Join(s.dir, id+".json"), nil
}

func (s *FileDraftStore) Load(_ context.Context, id string) (*Draft, error) {
	p, err := s.path(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", id, err)
	}
	return &d, nil
}

// Save writes the draft atomically through a temp file and rename.
func (s *FileDraftStore) Save(_ context.Context, d *Draft) error {
	p, err := s.path(d.ID)
	if err != nil {
		return err
	}
	d.UpdatedAt = s.now().UTC()
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write draft: %w", err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("write draft: %w", err)
	}
	return nil
}

func (s *FileDraftStore) Delete(_ context.Context, id string) error {
	p, err := s.path(id)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

const draftKeyPrefix = "lessonnotes:draft:"

// RedisDraftStore keeps drafts as JSON strings with an optional TTL.
type RedisDraftStore struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisDraftStore wraps client. A zero ttl keeps drafts forever.
func NewRedisDraftStore(client *redis.Client, ttl time.Duration) *RedisDraftStore {
	return &RedisDraftStore{client: client, ttl: ttl, now: time.Now}
}

func (s *RedisDraftStore) Load(ctx context.Context, id string) (*Draft, error) {
	if !validDraftID(id) {
		return nil, fmt.Errorf("invalid draft id %q", id)
	}
	data, err := s.client.Get(ctx, draftKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode draft %s: %w", id, err)
	}
	return &d, nil
}

func (s *RedisDraftStore) Save(ctx context.Context, d *Draft) error {
	if !validDraftID(d.ID) {
		return fmt.Errorf("invalid draft id %q", d.ID)
	}
	d.UpdatedAt = s.now().UTC()
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.client.Set(ctx, draftKeyPrefix+d.ID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *RedisDraftStore) Delete(ctx context.Context, id string) error {
	if !validDraftID(id) {
		return fmt.Errorf("invalid draft id %q", id)
	}
	if err := s.client.Del(ctx, draftKeyPrefix+id).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
