// Package redis - session store поверх Redis с TTL в роли idle-таймаута.
// Данные всё равно живут не дольше сессии.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/okravets/tour-bot/internal/domain"
	"github.com/okravets/tour-bot/internal/session"
)

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

type Config struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func New(cfg Config) *Store {
	if cfg.TTL == 0 {
		cfg.TTL = 30 * time.Minute
	}
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		}),
		ttl: cfg.TTL,
	}
}

func key(id int64) string {
	return fmt.Sprintf("session:%d", id)
}

func (s *Store) Get(ctx context.Context, id int64) (*domain.PartialState, bool, error) {
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}

	var st domain.PartialState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, false, fmt.Errorf("unmarshal session: %w", err)
	}

	// touch
	s.client.Expire(ctx, key(id), s.ttl)
	return &st, true, nil
}

func (s *Store) Put(ctx context.Context, id int64, st *domain.PartialState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.Set(ctx, key(id), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, id int64, d *domain.Delta, src domain.Source) (*domain.PartialState, error) {
	st, ok, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		st = domain.NewPartialState()
	}
	st.Merge(d, src)
	if err := s.Put(ctx, id, st); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) Clear(ctx context.Context, id int64) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

var _ session.Store = (*Store)(nil)
