// Package storage models the durable key-value storage the client-side stores persist into.
//
// A Backend behaves like browser local storage: string keys, string values, and a
// missing key is reported as ErrNotFound rather than an empty value.
package storage

import (
	"context"
	"errors"
)

const (
	KeyCart         = "shopee_cart"
	KeyViewHistory  = "view_history"
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
)

var (
	ErrNotFound      = errors.New("storage: key not found")
	ErrQuotaExceeded = errors.New("storage: quota exceeded")
	ErrCorrupt       = errors.New("storage: corrupt value")
)

// Backend is implemented by every durable storage driver.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
