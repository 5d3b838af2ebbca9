package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis keys: a list preserves enqueue order, a hash holds item bodies.
const (
	redisOrderKey = "offline_queue:order"
	redisItemsKey = "offline_queue:items"
)

// RedisStore is the durable Store. Queue contents survive a process restart,
// which is the point of the offline queue for field submissions.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a store on an existing client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// NewRedisStoreFromURL dials Redis from a URL (redis://host:port/db).
func NewRedisStoreFromURL(url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisStore(redis.NewClient(opts)), nil
}

func (s *RedisStore) Append(ctx context.Context, item Item) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, redisOrderKey, item.ID)
	pipe.HSet(ctx, redisItemsKey, item.ID, body)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append item: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context) ([]Item, error) {
	ids, err := s.client.LRange(ctx, redisOrderKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list item ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	bodies, err := s.client.HMGet(ctx, redisItemsKey, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("load item bodies: %w", err)
	}

	items := make([]Item, 0, len(ids))
	for i, body := range bodies {
		raw, ok := body.(string)
		if !ok {
			// Order entry without a body; skip, it will be cleaned on Remove.
			continue
		}
		var item Item
		if err := json.Unmarshal([]byte(raw), &item); err != nil {
			return nil, fmt.Errorf("decode item %s: %w", ids[i], err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *RedisStore) Update(ctx context.Context, item Item) error {
	body, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("encode item: %w", err)
	}
	if err := s.client.HSet(ctx, redisItemsKey, item.ID, body).Err(); err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, id string) error {
	pipe := s.client.TxPipeline()
	pipe.LRem(ctx, redisOrderKey, 1, id)
	pipe.HDel(ctx, redisItemsKey, id)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	return nil
}

func (s *RedisStore) Len(ctx context.Context) (int, error) {
	n, err := s.client.LLen(ctx, redisOrderKey).Result()
	if err != nil {
		return 0, fmt.Errorf("queue length: %w", err)
	}
	return int(n), nil
}
