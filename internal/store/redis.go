package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisKV stores each collection as one Redis hash, record id as the hash
// field and the JSON document as the value.
type redisKV struct {
	client *redis.Client
	prefix string
}

const redisKeyPrefix = "lexdesk:"

// NewRedisStore connects to Redis and returns a Store backed by it.
func NewRedisStore(redisURL string) (*KVStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client), nil
}

// NewRedisStoreWithClient wraps an existing client, used by tests.
func NewRedisStoreWithClient(client *redis.Client) *KVStore {
	return newKVStore(&redisKV{client: client, prefix: redisKeyPrefix})
}

func (r *redisKV) key(collection string) string {
	return r.prefix + collection
}

func (r *redisKV) Put(ctx context.Context, collection, id string, value []byte) error {
	if err := r.client.HSet(ctx, r.key(collection), id, value).Err(); err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (r *redisKV) Get(ctx context.Context, collection, id string) ([]byte, error) {
	value, err := r.client.HGet(ctx, r.key(collection), id).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return value, nil
}

func (r *redisKV) Delete(ctx context.Context, collection, id string) error {
	removed, err := r.client.HDel(ctx, r.key(collection), id).Result()
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	if removed == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *redisKV) Scan(ctx context.Context, collection string) ([][]byte, error) {
	values, err := r.client.HVals(ctx, r.key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", collection, err)
	}
	raws := make([][]byte, len(values))
	for i, value := range values {
		raws[i] = []byte(value)
	}
	return raws, nil
}

func (r *redisKV) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisKV) Close() error {
	return r.client.Close()
}
