// Package redisstore keeps the serialized collection under a single Redis
// string key.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/sundayezeilo/shortlinks/internal/errx"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
)

type Store struct {
	client redis.Cmdable
	key    string
}

// New returns a store over client. An empty key selects
// shortener.StorageKey.
func New(client redis.Cmdable, key string) *Store {
	if key == "" {
		key = shortener.StorageKey
	}
	return &Store{client: client, key: key}
}

// Connect builds a client from addr, which is either host:port or a
// redis:// URL, and pings it.
func Connect(ctx context.Context, addr string, db int) (*redis.Client, error) {
	const op = "redisstore.Connect"

	opt, err := redis.ParseURL(addr)
	if err != nil {
		opt = &redis.Options{Addr: addr, DB: db}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errx.E(op, errx.Unavailable, fmt.Errorf("failed to ping redis at %s: %w", opt.Addr, err))
	}
	return client, nil
}

func (s *Store) Load(ctx context.Context) ([]shortener.Link, error) {
	const op = "redisstore.Load"

	data, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []shortener.Link{}, nil
	}
	if err != nil {
		return nil, errx.E(op, errx.Unavailable, err)
	}

	links, err := shortener.DecodeLinks(data)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

func (s *Store) Save(ctx context.Context, links []shortener.Link) error {
	const op = "redisstore.Save"

	data, err := shortener.EncodeLinks(links)
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}

	if err := s.client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}
