package vault

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

type memoryObject struct {
	data []byte
	meta Object
}

// Memory is a process-local vault used by tests and the mock server.
type Memory struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string]memoryObject),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (v *Memory) Driver() string { return DriverMemory }

func (v *Memory) Put(ctx context.Context, key string, r io.Reader) (Object, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return Object{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Object{}, fmt.Errorf("vault: read %s: %w", key, err)
	}
	sum := sha256.Sum256(data)
	obj := Object{
		Key:          clean,
		Size:         int64(len(data)),
		LastModified: v.now(),
		ETag:         hex.EncodeToString(sum[:]),
	}

	v.mu.Lock()
	v.objects[clean] = memoryObject{data: data, meta: obj}
	v.mu.Unlock()
	return obj, nil
}

func (v *Memory) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	v.mu.RLock()
	obj, ok := v.objects[strings.TrimSpace(key)]
	v.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

func (v *Memory) List(ctx context.Context, prefix string) ([]Object, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	objects := make([]Object, 0, len(v.objects))
	for key, obj := range v.objects {
		if strings.HasPrefix(key, prefix) {
			objects = append(objects, obj.meta)
		}
	}
	sortNewestFirst(objects)
	return objects, nil
}

// sortNewestFirst orders by modification time descending, then key
// descending. Snapshot keys embed their timestamp, so the key breaks ties
// between files written within the same clock tick.
func sortNewestFirst(objects []Object) {
	sort.Slice(objects, func(i, j int) bool {
		if !objects[i].LastModified.Equal(objects[j].LastModified) {
			return objects[i].LastModified.After(objects[j].LastModified)
		}
		return objects[i].Key > objects[j].Key
	})
}
