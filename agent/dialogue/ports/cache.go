package ports

import "context"

// Cache provides idempotent memoization, keyed by prompt digests.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
}
