package vault

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FS keeps snapshots as plain files under a root directory. The ETag is the
// hex sha256 of the file contents.
type FS struct {
	root string
}

// NewFS returns a filesystem vault rooted at dir, creating it if needed.
func NewFS(dir string) (*FS, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "backups"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("vault: create %s: %w", dir, err)
	}
	return &FS{root: dir}, nil
}

func (v *FS) Driver() string { return DriverFilesystem }

func (v *FS) pathFor(key string) (string, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(v.root, filepath.FromSlash(clean)), nil
}

func (v *FS) Put(ctx context.Context, key string, r io.Reader) (Object, error) {
	path, err := v.pathFor(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return Object{}, fmt.Errorf("vault: create directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return Object{}, fmt.Errorf("vault: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err != nil {
		_ = tmp.Close()
		return Object{}, fmt.Errorf("vault: write %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return Object{}, fmt.Errorf("vault: sync %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, fmt.Errorf("vault: close %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return Object{}, fmt.Errorf("vault: move %s into place: %w", key, err)
	}

	info, err := os.Stat(path)
	if err != nil {
		return Object{}, fmt.Errorf("vault: stat %s: %w", key, err)
	}
	return Object{
		Key:          key,
		Size:         size,
		LastModified: info.ModTime().UTC(),
		ETag:         hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func (v *FS) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	path, err := v.pathFor(key)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("vault: open %s: %w", key, err)
	}
	return file, nil
}

// List walks the root and returns every file whose key starts with prefix,
// newest first. Temp files from interrupted writes are skipped.
func (v *FS) List(ctx context.Context, prefix string) ([]Object, error) {
	var objects []Object
	err := filepath.WalkDir(v.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(v.root, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, Object{Key: key, Size: info.Size(), LastModified: info.ModTime().UTC()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("vault: list %s: %w", v.root, err)
	}
	sortNewestFirst(objects)
	return objects, nil
}
