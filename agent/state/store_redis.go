package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

type RedisConfig struct {
	Addr     string        `envconfig:"ADDR" split_words:"true" default:"localhost:6379"`
	Password string        `envconfig:"PASSWORD" split_words:"true"`
	DB       int           `envconfig:"DB" split_words:"true" default:"0"`
	TTL      time.Duration `envconfig:"TTL" split_words:"true" default:"24h"`
}

// RedisStore persists Session in a Redis server through go-redis.
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

var _ Store = (*RedisStore)(nil)

func NewRedisClient(cfg RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

func NewRedisStore(client *redis.Client, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	return &RedisStore{client: client, keyPrefix: defaultStoreKeyPrefix, ttl: ttl}, nil
}

func (s *RedisStore) Load(ctx context.Context, threadID string) (*Session, error) {
	key, err := storeKey(s.keyPrefix, threadID)
	if err != nil {
		return nil, err
	}
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeSession(data)
}

func (s *RedisStore) Save(ctx context.Context, st *Session) error {
	payload, err := encodeSession(st)
	if err != nil {
		return err
	}
	key, err := storeKey(s.keyPrefix, st.ThreadID)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, threadID string) error {
	key, err := storeKey(s.keyPrefix, threadID)
	if err != nil {
		return err
	}
	return s.client.Del(ctx, key).Err()
}
