package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/biatec-io/gdrive-account/internal/service"
)

type pairingCache struct {
	rdb *redis.Client
}

// NewPairingCache backs the pairing KV contract with redis. Keys carry their
// full prefix already, the service layer owns the key format.
func NewPairingCache(rdb *redis.Client) service.PairingCache {
	return &pairingCache{rdb: rdb}
}

func (c *pairingCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

func (c *pairingCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *pairingCache) Delete(ctx context.Context, key string) error {
	return c.rdb.Del(ctx, key).Err()
}
