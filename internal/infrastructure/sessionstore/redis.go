package sessionstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"NewsRelay/internal/domain"
	"NewsRelay/internal/ports"
)

// Redis keeps sessions under prefix+account. Entries expire with the session.
type Redis struct {
	rdb    *redis.Client
	prefix string
}

var _ ports.SessionStore = (*Redis)(nil)

// NewRedis wraps an existing client.
func NewRedis(rdb *redis.Client, prefix string) *Redis {
	return &Redis{rdb: rdb, prefix: prefix}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr string, db int, prefix string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return NewRedis(rdb, prefix), nil
}

func (r *Redis) key(account string) string {
	return r.prefix + account
}

// Load reads the session for account; a missing key is ErrNotFound.
func (r *Redis) Load(ctx context.Context, account string) (domain.Session, error) {
	raw, err := r.rdb.Get(ctx, r.key(account)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Session{}, fmt.Errorf("session %s: %w", account, domain.ErrNotFound)
		}
		return domain.Session{}, fmt.Errorf("redis get session: %w", err)
	}
	return decode(raw)
}

// Save stores the session with a TTL of the session lifetime.
func (r *Redis) Save(ctx context.Context, session domain.Session) error {
	raw, err := encode(session)
	if err != nil {
		return err
	}
	if err := r.rdb.Set(ctx, r.key(session.Account), raw, domain.SessionMaxAge).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

// Delete removes the stored session.
func (r *Redis) Delete(ctx context.Context, account string) error {
	if err := r.rdb.Del(ctx, r.key(account)).Err(); err != nil {
		return fmt.Errorf("redis del session: %w", err)
	}
	return nil
}

// Close releases the client.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
