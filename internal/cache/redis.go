package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/justsurfingit/jobboard-gateway/internal/models"
)

const keyPrefix = "jobboard:jobs:"

// Redis shares the job cache between gateway instances.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to the server at rawURL (redis://...).
func NewRedis(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (r *Redis) Get(ctx context.Context, key string) (models.JobData, error) {
	raw, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.JobData{}, ErrMiss
	}
	if err != nil {
		return models.JobData{}, fmt.Errorf("redis get: %w", err)
	}
	var data models.JobData
	if err := json.Unmarshal(raw, &data); err != nil {
		return models.JobData{}, fmt.Errorf("decode cached jobs: %w", err)
	}
	return data, nil
}

func (r *Redis) Put(ctx context.Context, key string, data models.JobData) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode cached jobs: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
