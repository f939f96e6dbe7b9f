package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/AymaneHaj/Share-In/internal/core/domain"
)

const DefaultRedisKey = "docctl:session"

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// Key defaults to DefaultRedisKey.
	Key string
	// TTL of zero keeps the session until logout.
	TTL time.Duration
}

// RedisStore shares one session between machines through redis.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore dials redis and pings it before returning.
func NewRedisStore(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	addr := opts.Addr
	if addr == "" {
		addr = "127.0.0.1:6379"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return NewRedisStoreWithClient(client, opts.Key, opts.TTL), nil
}

func NewRedisStoreWithClient(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if !session.Valid() {
		return nil, nil
	}
	return &session, nil
}

func (s *RedisStore) Save(ctx context.Context, session *domain.Session) error {
	if !session.Valid() {
		return errors.New("refusing to save a session without a token")
	}
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// TTL reports how long the stored session has left; negative when it has no expiry or is missing.
func (s *RedisStore) TTL(ctx context.Context) (time.Duration, error) {
	return s.client.TTL(ctx, s.key).Result()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
