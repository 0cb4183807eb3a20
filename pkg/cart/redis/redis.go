// Package redis stores cart snapshots as plain Redis string keys.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	goredis "github.com/redis/go-redis/v9"
)

// Snapshots persists cart snapshots in Redis. A zero ttl keeps keys forever.
type Snapshots struct {
	client *goredis.Client
	ttl    time.Duration
}

// New wraps an existing client.
func New(client *goredis.Client, ttl time.Duration) *Snapshots {
	return &Snapshots{client: client, ttl: ttl}
}

// Dial builds a client from a redis:// URL or a bare host:port address.
func Dial(addr string) *goredis.Client {
	opts, err := goredis.ParseURL(addr)
	if err != nil {
		opts = &goredis.Options{
			Addr:         addr,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}
	}
	return goredis.NewClient(opts)
}

// Load returns the snapshot stored under key.
func (s *Snapshots) Load(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

// Save overwrites the snapshot under key.
func (s *Snapshots) Save(ctx context.Context, key string, data []byte) error {
	return s.client.Set(ctx, key, data, s.ttl).Err()
}

// Ping checks the connection once.
func (s *Snapshots) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// WaitReady pings with exponential backoff until Redis answers, ctx ends,
// or attempts are exhausted.
func (s *Snapshots) WaitReady(ctx context.Context, attempts uint) error {
	_, err := backoff.Retry(ctx, func() (string, error) {
		return s.client.Ping(ctx).Result()
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(attempts),
	)
	if err != nil {
		return fmt.Errorf("redis not ready after %d attempts: %w", attempts, err)
	}
	return nil
}
