package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "paper-assistant:state:"

// RedisConfig holds connection settings for RedisStateStore
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStateStore keeps state records in Redis, one JSON value per name.
type RedisStateStore struct {
	client *redis.Client
}

type redisRecord struct {
	Version   int             `json:"version"`
	Data      json.RawMessage `json:"data"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewRedisStateStore connects to Redis and verifies the connection.
func NewRedisStateStore(cfg RedisConfig) (*RedisStateStore, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "127.0.0.1:6379"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}

	return &RedisStateStore{client: client}, nil
}

// LoadState returns the record stored under name
func (r *RedisStateStore) LoadState(ctx context.Context, name string) (*StateRecord, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+name).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state %s: %w", name, err)
	}

	var rec redisRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode state %s: %w", name, err)
	}

	return &StateRecord{
		Name:      name,
		Version:   rec.Version,
		Data:      []byte(rec.Data),
		UpdatedAt: rec.UpdatedAt,
	}, nil
}

// SaveState creates or replaces a record. Records never expire.
func (r *RedisStateStore) SaveState(ctx context.Context, record StateRecord) error {
	updatedAt := record.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	data := record.Data
	if len(data) == 0 {
		data = []byte("null")
	}

	raw, err := json.Marshal(redisRecord{
		Version:   record.Version,
		Data:      json.RawMessage(data),
		UpdatedAt: updatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to encode state %s: %w", record.Name, err)
	}

	if err := r.client.Set(ctx, redisKeyPrefix+record.Name, raw, 0).Err(); err != nil {
		return fmt.Errorf("failed to save state %s: %w", record.Name, err)
	}
	return nil
}

// DeleteState removes a record
func (r *RedisStateStore) DeleteState(ctx context.Context, name string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+name).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete state %s: %w", name, err)
	}
	return nil
}

// Close closes the client
func (r *RedisStateStore) Close() error {
	return r.client.Close()
}
