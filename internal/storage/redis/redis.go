package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backpack/internal/models"
	"backpack/internal/storage"

	"github.com/redis/go-redis/v9"
)

type RedisRepo struct {
	client *redis.Client
}

func New(ctx context.Context, addr, pass string, db int) (*RedisRepo, error) {
	const op = "storage.redis.New"

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisRepo{
		client: client,
	}, nil
}

func challengeKey(id string) string {
	return fmt.Sprintf("verify:challenge:%s", id)
}

func activeKey(email, purpose string) string {
	return fmt.Sprintf("verify:active:%s:%s", purpose, email)
}

// SaveChallenge stores the challenge with a TTL plus an email index key used
// to enforce a single active challenge per email and purpose.
func (r *RedisRepo) SaveChallenge(ctx context.Context, ch models.Challenge, ttl time.Duration) error {
	const op = "storage.redis.SaveChallenge"

	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, challengeKey(ch.ID), data, ttl)
	pipe.Set(ctx, activeKey(ch.Email, ch.Purpose), ch.ID, ttl)

	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) Challenge(ctx context.Context, id string) (models.Challenge, error) {
	const op = "storage.redis.Challenge"

	data, err := r.client.Get(ctx, challengeKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.Challenge{}, storage.ErrChallengeNotFound
		}

		return models.Challenge{}, fmt.Errorf("%s: %w", op, err)
	}

	var ch models.Challenge
	if err := json.Unmarshal(data, &ch); err != nil {
		return models.Challenge{}, fmt.Errorf("%s: %w", op, err)
	}

	return ch, nil
}

func (r *RedisRepo) UpdateAttempts(ctx context.Context, id string, attempts int) error {
	const op = "storage.redis.UpdateAttempts"

	ch, err := r.Challenge(ctx, id)
	if err != nil {
		return err
	}

	ch.Attempts = attempts

	data, err := json.Marshal(ch)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	// KeepTTL: the attempt counter must not extend the challenge lifetime.
	if err := r.client.Set(ctx, challengeKey(id), data, redis.KeepTTL).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (r *RedisRepo) DeleteChallenge(ctx context.Context, id string) error {
	const op = "storage.redis.DeleteChallenge"

	ch, err := r.Challenge(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrChallengeNotFound) {
			return nil
		}

		return err
	}

	// The index may already point at a newer challenge for this email;
	// only remove it when it still references the one being deleted.
	current, err := r.client.Get(ctx, activeKey(ch.Email, ch.Purpose)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%s: %w", op, err)
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, challengeKey(id))
	if current == id {
		pipe.Del(ctx, activeKey(ch.Email, ch.Purpose))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * DeleteActiveChallenge инвалидирует прошлый активный challenge
func (r *RedisRepo) DeleteActiveChallenge(ctx context.Context, email, purpose string) error {
	const op = "storage.redis.DeleteActiveChallenge"

	id, err := r.client.Get(ctx, activeKey(email, purpose)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, challengeKey(id))
	pipe.Del(ctx, activeKey(email, purpose))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// * Close закрывает соединение с базой данных.
func (r *RedisRepo) Close() {
	r.client.Close()
}
