package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crowdfund/internal/domain"
)

// RedisKV is the part of redis.Cmdable the draft repository uses.
type RedisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// DraftRepositoryRedis stores the draft slot as a JSON string value.
type DraftRepositoryRedis struct {
	client RedisKV
	key    string
	ttl    time.Duration
}

// NewDraftRepositoryRedis creates a Redis-backed draft repository. prefix
// namespaces the key; ttl 0 keeps the draft until it is cleared.
func NewDraftRepositoryRedis(client RedisKV, prefix string, ttl time.Duration) *DraftRepositoryRedis {
	key := domain.DraftKey
	if prefix != "" {
		key = prefix + ":" + key
	}
	return &DraftRepositoryRedis{client: client, key: key, ttl: ttl}
}

func (r *DraftRepositoryRedis) Load(ctx context.Context) (*domain.Draft, error) {
	raw, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("repo: load draft: %w", err)
	}
	var draft domain.Draft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("repo: decode draft: %w", err)
	}
	return &draft, nil
}

func (r *DraftRepositoryRedis) Save(ctx context.Context, draft domain.Draft) error {
	raw, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("repo: encode draft: %w", err)
	}
	if err := r.client.Set(ctx, r.key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("repo: save draft: %w", err)
	}
	return nil
}

func (r *DraftRepositoryRedis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("repo: clear draft: %w", err)
	}
	return nil
}

var (
	_ domain.DraftRepository = (*DraftRepositoryRedis)(nil)
	_ RedisKV                = (*redis.Client)(nil)
)
