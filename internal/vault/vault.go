// Package vault stores encoded snapshot files on a local directory, an S3
// bucket or in memory.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"almmr/internal/config"
)

const (
	DriverFilesystem = "fs"
	DriverS3         = "s3"
	DriverMemory     = "memory"
)

// ErrNotFound is returned by Open when no object is stored under the key.
var ErrNotFound = errors.New("vault: object not found")

// Object describes one stored snapshot file.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
	ETag         string
}

// Vault is the storage boundary for snapshot files.
type Vault interface {
	Driver() string
	Put(ctx context.Context, key string, r io.Reader) (Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]Object, error)
}

// New builds the vault selected by cfg.Driver. A blank driver means the
// local filesystem.
func New(ctx context.Context, cfg config.BackupConfig) (Vault, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", DriverFilesystem:
		v, err := NewFS(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return v, nil
	case DriverS3:
		v, err := NewS3(ctx, S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			PathStyle:       cfg.S3.PathStyle,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("vault: unsupported driver %q", cfg.Driver)
	}
}

// sanitizeKey rejects keys that would escape the vault root.
func sanitizeKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("vault: empty key")
	}
	if strings.HasPrefix(key, "/") || strings.HasPrefix(key, "\\") {
		return "", fmt.Errorf("vault: invalid absolute key %q", key)
	}
	for _, part := range strings.FieldsFunc(key, func(r rune) bool { return r == '/' || r == '\\' }) {
		if part == ".." {
			return "", fmt.Errorf("vault: invalid key %q", key)
		}
	}
	return key, nil
}
