// Package services provides external service integrations and technical concerns like tokens and attribution storage
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/friendumbrella/landing-api/models"
	"github.com/redis/go-redis/v9"
)

// Attribution store key prefixes. Each visitor session holds up to two
// records: the standard attribution and the Google-specific view, written
// redundantly for Google-originated traffic.
const (
	attributionKeyPrefix       = "utm_tracking_data"
	googleAttributionKeyPrefix = "google_utm_tracking"
)

// AttributionStore persists captured attribution for the lifetime of a
// visitor session. Implementations must be safe for concurrent use. Callers
// treat every error as non-fatal: attribution is best-effort.
type AttributionStore interface {
	SaveAttribution(ctx context.Context, sessionID string, a *models.Attribution) error
	LoadAttribution(ctx context.Context, sessionID string) (*models.Attribution, error)
	SaveGoogleAttribution(ctx context.Context, sessionID string, g *models.GoogleAttribution) error
	LoadGoogleAttribution(ctx context.Context, sessionID string) (*models.GoogleAttribution, error)
	Clear(ctx context.Context, sessionID string) error
}

// RedisAttributionStore stores attribution in Redis with a per-session TTL
// approximating a browser session. The TTL is refreshed on every write.
type RedisAttributionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisAttributionStore creates a Redis-backed attribution store
func NewRedisAttributionStore(client *redis.Client, ttl time.Duration) *RedisAttributionStore {
	return &RedisAttributionStore{client: client, ttl: ttl}
}

func (s *RedisAttributionStore) SaveAttribution(ctx context.Context, sessionID string, a *models.Attribution) error {
	return s.save(ctx, attributionKey(sessionID), a)
}

func (s *RedisAttributionStore) LoadAttribution(ctx context.Context, sessionID string) (*models.Attribution, error) {
	var a models.Attribution
	found, err := s.load(ctx, attributionKey(sessionID), &a)
	if err != nil || !found {
		return nil, err
	}
	return &a, nil
}

func (s *RedisAttributionStore) SaveGoogleAttribution(ctx context.Context, sessionID string, g *models.GoogleAttribution) error {
	return s.save(ctx, googleAttributionKey(sessionID), g)
}

func (s *RedisAttributionStore) LoadGoogleAttribution(ctx context.Context, sessionID string) (*models.GoogleAttribution, error) {
	var g models.GoogleAttribution
	found, err := s.load(ctx, googleAttributionKey(sessionID), &g)
	if err != nil || !found {
		return nil, err
	}
	return &g, nil
}

func (s *RedisAttributionStore) Clear(ctx context.Context, sessionID string) error {
	err := s.client.Del(ctx, attributionKey(sessionID), googleAttributionKey(sessionID)).Err()
	if err != nil {
		return fmt.Errorf("failed to clear attribution: %w", err)
	}
	return nil
}

func (s *RedisAttributionStore) save(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal attribution: %w", err)
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store attribution: %w", err)
	}
	return nil
}

func (s *RedisAttributionStore) load(ctx context.Context, key string, v any) (bool, error) {
	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to load attribution: %w", err)
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal attribution: %w", err)
	}
	return true, nil
}

func attributionKey(sessionID string) string {
	return fmt.Sprintf("%s:%s", attributionKeyPrefix, sessionID)
}

func googleAttributionKey(sessionID string) string {
	return fmt.Sprintf("%s:%s", googleAttributionKeyPrefix, sessionID)
}

// MemoryAttributionStore is an in-process attribution store used in demo mode
// and tests. Entries expire lazily on read.
type MemoryAttributionStore struct {
	mu      sync.RWMutex
	entries map[string]memoryAttributionEntry
	ttl     time.Duration
}

type memoryAttributionEntry struct {
	payload   []byte
	expiresAt time.Time
}

// NewMemoryAttributionStore creates an in-process attribution store
func NewMemoryAttributionStore(ttl time.Duration) *MemoryAttributionStore {
	return &MemoryAttributionStore{
		entries: make(map[string]memoryAttributionEntry),
		ttl:     ttl,
	}
}

func (s *MemoryAttributionStore) SaveAttribution(ctx context.Context, sessionID string, a *models.Attribution) error {
	return s.save(attributionKey(sessionID), a)
}

func (s *MemoryAttributionStore) LoadAttribution(ctx context.Context, sessionID string) (*models.Attribution, error) {
	var a models.Attribution
	found, err := s.load(attributionKey(sessionID), &a)
	if err != nil || !found {
		return nil, err
	}
	return &a, nil
}

func (s *MemoryAttributionStore) SaveGoogleAttribution(ctx context.Context, sessionID string, g *models.GoogleAttribution) error {
	return s.save(googleAttributionKey(sessionID), g)
}

func (s *MemoryAttributionStore) LoadGoogleAttribution(ctx context.Context, sessionID string) (*models.GoogleAttribution, error) {
	var g models.GoogleAttribution
	found, err := s.load(googleAttributionKey(sessionID), &g)
	if err != nil || !found {
		return nil, err
	}
	return &g, nil
}

func (s *MemoryAttributionStore) Clear(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, attributionKey(sessionID))
	delete(s.entries, googleAttributionKey(sessionID))
	return nil
}

func (s *MemoryAttributionStore) save(key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal attribution: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = memoryAttributionEntry{
		payload:   payload,
		expiresAt: time.Now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryAttributionStore) load(key string, v any) (bool, error) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if time.Now().After(entry.expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return false, nil
	}
	if err := json.Unmarshal(entry.payload, v); err != nil {
		return false, fmt.Errorf("failed to unmarshal attribution: %w", err)
	}
	return true, nil
}
