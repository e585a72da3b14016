package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sahaya/pkg/domain"
	"sahaya/pkg/platform/sentinel"
)

// RedisStore persists sessions as JSON values with a TTL equal to the idle
// timeout. Every write refreshes the TTL, so Redis itself enforces idle
// expiry and erases the value; SweepExpired is therefore a no-op here.
// Read-modify-write goes through WATCH so two concurrent updates of one
// session cannot interleave.
type RedisStore struct {
	client      *redis.Client
	idleTimeout time.Duration
}

const (
	redisKeyPrefix = "sahaya:session:"
	updateRetries  = 3
)

func NewRedisStore(client *redis.Client, idleTimeout time.Duration) *RedisStore {
	return &RedisStore{client: client, idleTimeout: idleTimeout}
}

func key(id domain.SessionID) string {
	return redisKeyPrefix + id.String()
}

func (s *RedisStore) Create(ctx context.Context, sess *Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	ok, err := s.client.SetNX(ctx, key(sess.ID), payload, s.idleTimeout).Result()
	if err != nil {
		return fmt.Errorf("create session: %w: %w", sentinel.ErrUnavailable, err)
	}
	if !ok {
		return sentinel.ErrConflict
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id domain.SessionID) (*Session, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get session: %w: %w", sentinel.ErrUnavailable, err)
	}
	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

func (s *RedisStore) Update(ctx context.Context, id domain.SessionID, now time.Time, mutate func(*Session) error) error {
	k := key(id)
	txn := func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, k).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return sentinel.ErrNotFound
			}
			return err
		}
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			return fmt.Errorf("decode session: %w", err)
		}
		if err := mutate(&sess); err != nil {
			return err
		}
		sess.LastActivityAt = now
		payload, err := json.Marshal(&sess)
		if err != nil {
			return fmt.Errorf("encode session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, payload, s.idleTimeout)
			return nil
		})
		return err
	}

	for i := 0; i < updateRetries; i++ {
		err := s.client.Watch(ctx, txn, k)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return err
	}
	return sentinel.ErrConflict
}

func (s *RedisStore) Delete(ctx context.Context, id domain.SessionID) error {
	deleted, err := s.client.Del(ctx, key(id)).Result()
	if err != nil {
		return fmt.Errorf("delete session: %w: %w", sentinel.ErrUnavailable, err)
	}
	if deleted == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// SweepExpired is a no-op: the per-key TTL already erases idle sessions.
func (s *RedisStore) SweepExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
