// Package redisstore keeps room records in Redis so several server processes
// can share one registry.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"contest-rooms/room"

	"github.com/go-redis/redis/v8"
)

const DefaultPrefix = "contest-room:"

type Config struct {
	Addr     string
	Password string
	DB       int
}

func NewClient(cfg Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

type Store struct {
	client *redis.Client
	prefix string
}

func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(code string) string {
	return s.prefix + code
}

func (s *Store) Insert(ctx context.Context, r room.Room) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	created, err := s.client.SetNX(ctx, s.key(r.Code), data, 0).Result()
	if err != nil {
		return fmt.Errorf("insert room %s: %w", r.Code, err)
	}
	if !created {
		return room.NewCodeTakenError(r.Code)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, code string) (room.Room, error) {
	return s.get(ctx, s.client, code)
}

// Update is a WATCH/MULTI check-and-set on the stored version.
func (s *Store) Update(ctx context.Context, r room.Room, prevVersion uint64) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	key := s.key(r.Code)
	err = s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, r.Code)
		if err != nil {
			return err
		}
		if current.Version != prevVersion {
			return room.NewVersionConflictError(r.Code, prevVersion)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return room.NewVersionConflictError(r.Code, prevVersion)
	}
	return err
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) get(ctx context.Context, c getter, code string) (room.Room, error) {
	data, err := c.Get(ctx, s.key(code)).Bytes()
	if errors.Is(err, redis.Nil) {
		return room.Room{}, room.NewNotFoundError(code)
	}
	if err != nil {
		return room.Room{}, fmt.Errorf("get room %s: %w", code, err)
	}
	var r room.Room
	if err := json.Unmarshal(data, &r); err != nil {
		return room.Room{}, fmt.Errorf("decode room %s: %w", code, err)
	}
	return r, nil
}
