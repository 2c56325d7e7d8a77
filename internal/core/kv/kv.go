// Package kv defines the local key-value store used for credentials and
// console preferences that survive between sessions.
package kv

import (
	"context"
	"time"
)

// KV is a persistent store of JSON values. Keys are namespaced by
// convention as "namespace:key"; use Scoped rather than building them by
// hand. Get on a missing or expired key returns an error wrapping
// sql.ErrNoRows.
type KV interface {
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any) error
	SetTTL(ctx context.Context, key string, value any, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// ListKeys returns the live keys starting with prefix, sorted.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}
