package kv

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// TypedKV is one namespace of a KV store holding values of type T.
type TypedKV[T any] struct {
	store  KV
	prefix string
}

// Scoped returns the namespace of store whose keys start with "namespace:".
func Scoped[T any](store KV, namespace string) *TypedKV[T] {
	return &TypedKV[T]{store: store, prefix: namespace + ":"}
}

func (t *TypedKV[T]) Get(ctx context.Context, key string) (T, error) {
	var v T
	err := t.store.Get(ctx, t.prefix+key, &v)
	return v, err
}

// GetOr returns fallback when key is missing or expired. Other errors are
// returned with fallback.
func (t *TypedKV[T]) GetOr(ctx context.Context, key string, fallback T) (T, error) {
	v, err := t.Get(ctx, key)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return fallback, nil
	case err != nil:
		return fallback, err
	}
	return v, nil
}

func (t *TypedKV[T]) Set(ctx context.Context, key string, value T) error {
	return t.store.Set(ctx, t.prefix+key, value)
}

// SetTTL stores value until ttl elapses.
func (t *TypedKV[T]) SetTTL(ctx context.Context, key string, value T, ttl time.Duration) error {
	return t.store.SetTTL(ctx, t.prefix+key, value, ttl)
}

func (t *TypedKV[T]) Delete(ctx context.Context, key string) error {
	return t.store.Delete(ctx, t.prefix+key)
}

// Keys returns the live keys of the namespace without their prefix.
func (t *TypedKV[T]) Keys(ctx context.Context) ([]string, error) {
	keys, err := t.store.ListKeys(ctx, t.prefix)
	if err != nil {
		return nil, err
	}
	for i, k := range keys {
		keys[i] = strings.TrimPrefix(k, t.prefix)
	}
	return keys, nil
}

// Clear deletes every key in the namespace.
func (t *TypedKV[T]) Clear(ctx context.Context) error {
	keys, err := t.store.ListKeys(ctx, t.prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := t.store.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}
