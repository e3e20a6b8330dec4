// Package storage writes generated artifacts (partner statements) to a local
// directory or an S3 bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

type PutInput struct {
	Key         string // slash-separated, relative; existing objects are replaced
	ContentType string
}

type PutResult struct {
	Key string
	URL string
}

type Storage interface {
	Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error)
	Delete(ctx context.Context, key string) error
}

var ErrInvalidKey = errors.New("invalid storage key")

// CleanKey normalizes a key and rejects ones that escape the root.
func CleanKey(key string) (string, error) {
	k := strings.TrimSpace(strings.ReplaceAll(key, "\\", "/"))
	if k == "" || strings.HasPrefix(k, "/") {
		return "", ErrInvalidKey
	}
	k = path.Clean(k)
	if k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", ErrInvalidKey
	}
	return k, nil
}
