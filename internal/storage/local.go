package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type Local struct {
	BaseDir   string
	URLPrefix string
}

func NewLocal(baseDir, urlPrefix string) *Local {
	return &Local{BaseDir: baseDir, URLPrefix: urlPrefix}
}

// Put writes through a temp file and renames, so readers never see a partial file.
func (l *Local) Put(ctx context.Context, r io.Reader, in PutInput) (PutResult, error) {
	key, err := CleanKey(in.Key)
	if err != nil {
		return PutResult{}, err
	}
	dstPath := filepath.Join(l.BaseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dstPath), 0o755); err != nil {
		return PutResult{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dstPath), ".put-*")
	if err != nil {
		return PutResult{}, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return PutResult{}, err
	}
	if err := tmp.Close(); err != nil {
		return PutResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return PutResult{}, err
	}
	if err := os.Rename(tmp.Name(), dstPath); err != nil {
		return PutResult{}, err
	}

	url := strings.TrimRight(l.URLPrefix, "/") + "/" + key
	return PutResult{Key: key, URL: url}, nil
}

func (l *Local) Delete(ctx context.Context, key string) error {
	k, err := CleanKey(key)
	if err != nil {
		return err
	}
	return os.Remove(filepath.Join(l.BaseDir, filepath.FromSlash(k)))
}

func (l *Local) String() string { return fmt.Sprintf("local(%s)", l.BaseDir) }
