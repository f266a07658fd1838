package database

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/lysyi3m/feed-curator/app/feed"
)

var _ ExclusionRepository = (*RedisExclusionStore)(nil)

const saveRetries = 10

// RedisExclusionStore keeps exclusions in the key layout of the hosted
// version: current:<feed key>, a history:<feed key> list with the newest
// entry first, and save:<feed key>:<save id> for every save in the history.
type RedisExclusionStore struct {
	client  *redis.Client
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

func NewRedisExclusionStore(ctx context.Context, addr string) (*RedisExclusionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	slog.Info("Connected to Redis", "addr", addr)

	return newRedisExclusionStore(client), nil
}

func newRedisExclusionStore(client *redis.Client) *RedisExclusionStore {
	return &RedisExclusionStore{
		client:  client,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

func currentKey(feedKey string) string {
	return "current:" + feedKey
}

func historyKey(feedKey string) string {
	return "history:" + feedKey
}

func saveKey(feedKey, saveID string) string {
	return fmt.Sprintf("save:%s:%s", feedKey, saveID)
}

func (s *RedisExclusionStore) Save(ctx context.Context, req feed.SaveRequest) (*SaveRecord, error) {
	if req.FeedURL == "" {
		return nil, feed.NewValidationError("feedUrl", "feedUrl and excludedIds required")
	}

	savedAt := s.now()
	s.mu.Lock()
	id := ulid.MustNew(ulid.Timestamp(savedAt), s.entropy).String()
	s.mu.Unlock()

	record := newSaveRecord(id, req, savedAt)
	feedKey := FeedKey(req.FeedURL)

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode save: %w", err)
	}
	entryJSON, err := json.Marshal(record.HistoryEntry())
	if err != nil {
		return nil, fmt.Errorf("failed to encode history entry: %w", err)
	}

	history := historyKey(feedKey)

	// Eviction is computed and applied under WATCH on the history list.
	store := func(tx *redis.Tx) error {
		// Entries from index HistoryLimit-1 on fall off once the new one is pushed.
		evicted, err := tx.LRange(ctx, history, HistoryLimit-1, -1).Result()
		if err != nil {
			return err
		}
		evictedKeys := evictedSaveKeys(feedKey, evicted)

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, currentKey(feedKey), recordJSON, 0)
			pipe.Set(ctx, saveKey(feedKey, id), recordJSON, 0)
			pipe.LPush(ctx, history, entryJSON)
			pipe.LTrim(ctx, history, 0, HistoryLimit-1)
			if len(evictedKeys) > 0 {
				pipe.Del(ctx, evictedKeys...)
			}
			return nil
		})
		return err
	}

	for attempt := 0; attempt < saveRetries; attempt++ {
		err = s.client.Watch(ctx, store, history)
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
		slog.Debug("Save history changed concurrently, retrying", "feed", feedKey, "attempt", attempt+1)
	}
	if err != nil {
		return nil, s.storageError("failed to store save", err)
	}

	return record, nil
}

func (s *RedisExclusionStore) LoadCurrent(ctx context.Context, feedURL string) (*SaveRecord, error) {
	data, err := s.client.Get(ctx, currentKey(FeedKey(feedURL))).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, s.storageError("failed to load current exclusions", err)
	}

	return decodeSaveRecord(data)
}

func (s *RedisExclusionStore) LoadHistory(ctx context.Context, feedURL string) ([]HistoryEntry, error) {
	values, err := s.client.LRange(ctx, historyKey(FeedKey(feedURL)), 0, HistoryLimit-1).Result()
	if err != nil {
		return nil, s.storageError("failed to load save history", err)
	}

	return decodeHistory(values), nil
}

func (s *RedisExclusionStore) LoadSave(ctx context.Context, feedURL, saveID string) (*SaveRecord, error) {
	data, err := s.client.Get(ctx, saveKey(FeedKey(feedURL), saveID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, feed.NewNotFoundError("save", saveID)
	}
	if err != nil {
		return nil, s.storageError("failed to load save", err)
	}

	return decodeSaveRecord(data)
}

func (s *RedisExclusionStore) Close() error {
	return s.client.Close()
}

func (s *RedisExclusionStore) storageError(message string, err error) error {
	return &feed.ExternalServiceError{
		Service: "redis",
		Kind:    feed.FailureStorage,
		Err:     fmt.Errorf("%s: %w", message, err),
	}
}

func decodeSaveRecord(data []byte) (*SaveRecord, error) {
	var record SaveRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode save: %w", err)
	}
	record.ExcludedIDs = nonNil(record.ExcludedIDs)
	record.ExcludedItems = nonNil(record.ExcludedItems)
	record.AllFeedIDs = nonNil(record.AllFeedIDs)
	return &record, nil
}

// decodeHistory skips entries that are not valid JSON.
func decodeHistory(values []string) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(values))
	for _, value := range values {
		var entry HistoryEntry
		if err := json.Unmarshal([]byte(value), &entry); err != nil {
			slog.Warn("Skipping unreadable history entry", "error", err)
			continue
		}
		history = append(history, entry)
	}
	return history
}

func evictedSaveKeys(feedKey string, evicted []string) []string {
	keys := make([]string, 0, len(evicted))
	for _, entry := range decodeHistory(evicted) {
		if entry.ID != "" {
			keys = append(keys, saveKey(feedKey, entry.ID))
		}
	}
	return keys
}
