package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-userbase"
)

// DefaultPrefix namespaces session keys.
const DefaultPrefix = "userbase:session:"

// Redis keeps sessions as JSON values with a TTL so every instance of a
// deployment sees the same revocations.
type Redis struct {
	client redis.Cmdable
	prefix string
}

var _ userbase.SessionStore = (*Redis)(nil)

// RedisOption customizes the store.
type RedisOption func(*Redis)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) RedisOption {
	return func(r *Redis) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// NewRedis returns a store using client.
func NewRedis(client redis.Cmdable, opts ...RedisOption) *Redis {
	r := &Redis{client: client, prefix: DefaultPrefix}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Dial connects to addr and pings it before returning the client.
func Dial(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (r *Redis) key(id string) string {
	return r.prefix + id
}

// SaveSession implements userbase.SessionStore.
func (r *Redis) SaveSession(ctx context.Context, session userbase.Session, ttl time.Duration) error {
	if session.ID == "" {
		return userbase.ErrSessionMalformed
	}
	if ttl <= 0 {
		return r.client.Del(ctx, r.key(session.ID)).Err()
	}

	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(session.ID), data, ttl).Err()
}

// GetSession implements userbase.SessionStore.
func (r *Redis) GetSession(ctx context.Context, id string) (*userbase.Session, error) {
	val, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var session userbase.Session
	if err := json.Unmarshal(val, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// DeleteSession implements userbase.SessionStore.
func (r *Redis) DeleteSession(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.key(id)).Err()
}
