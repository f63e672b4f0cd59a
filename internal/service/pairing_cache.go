package service

import (
	"context"
	"time"
)

// PairingCache defines the KV operations pairing state needs. Get returns
// (nil, nil) for an absent or expired key so callers can tell "not found"
// apart from a cache outage, which surfaces as an error.
type PairingCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
