// Package snapshot persists serialized onboarding records as opaque blobs
// keyed by owner.
package snapshot

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("snapshot not found")

type Store interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

func UserKey(userID string) string {
	return "user:" + userID
}
