package sessions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore shares sessions between instances. Each session is a JSON
// value with a TTL; a per-account set indexes the ids for bulk logout.
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a store using keys under prefix
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix, now: time.Now}
}

func (r *RedisStore) sessionKey(id string) string {
	return r.prefix + "session:" + id
}

func (r *RedisStore) accountKey(accountID uint) string {
	return fmt.Sprintf("%saccount-sessions:%d", r.prefix, accountID)
}

// Create implements Store
func (r *RedisStore) Create(ctx context.Context, accountID uint, ttl time.Duration) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}

	now := r.now()
	session := &Session{ID: id, AccountID: accountID, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	data, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(id), data, ttl)
	pipe.SAdd(ctx, r.accountKey(accountID), id)
	pipe.Expire(ctx, r.accountKey(accountID), ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return session, nil
}

// Get implements Store
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, r.sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	if session.Expired(r.now()) {
		return nil, nil
	}
	return &session, nil
}

// Touch implements Store
func (r *RedisStore) Touch(ctx context.Context, id string, ttl time.Duration) error {
	session, err := r.Get(ctx, id)
	if err != nil || session == nil {
		return err
	}

	session.ExpiresAt = r.now().Add(ttl)
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, r.sessionKey(id), data, ttl)
	pipe.Expire(ctx, r.accountKey(session.AccountID), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// Delete implements Store
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	session, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, r.sessionKey(id))
	if session != nil {
		pipe.SRem(ctx, r.accountKey(session.AccountID), id)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// DeleteForAccount implements Store
func (r *RedisStore) DeleteForAccount(ctx context.Context, accountID uint, except string) error {
	ids, err := r.client.SMembers(ctx, r.accountKey(accountID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	pipe := r.client.TxPipeline()
	for _, id := range ids {
		if id == except {
			continue
		}
		pipe.Del(ctx, r.sessionKey(id))
		pipe.SRem(ctx, r.accountKey(accountID), id)
	}
	_, err = pipe.Exec(ctx)
	return err
}
