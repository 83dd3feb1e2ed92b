// Package backup writes and restores full snapshots of the store and checks
// cross-record references.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	applog "almmr/internal/log"
	"almmr/internal/metrics"
	"almmr/internal/store"
	"almmr/internal/vault"
)

const (
	DefaultPrefix = "almmr_backup_"
	keyLayout     = "20060102_150405"
)

// ErrInvalidBackup marks a snapshot that fails structural validation.
var ErrInvalidBackup = errors.New("invalid backup")

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusError   Status = "ERROR"
)

// RestoreResult reports the outcome of a restore. Failures are carried in
// Err rather than returned.
type RestoreResult struct {
	Status     Status    `json:"status"`
	Err        error     `json:"-"`
	Source     string    `json:"source,omitempty"`
	SnapshotAt time.Time `json:"snapshot_at,omitzero"`
	Counts     Counts    `json:"counts"`
}

func (r RestoreResult) OK() bool { return r.Status == StatusSuccess }

// BackupInfo describes a snapshot written to the vault.
type BackupInfo struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	ETag      string    `json:"etag,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Counts    Counts    `json:"counts"`
}

// Event is a ledger entry for the latest backup or restore.
type Event struct {
	At         time.Time `json:"at"`
	Key        string    `json:"key,omitempty"`
	Size       int64     `json:"size,omitempty"`
	SnapshotAt time.Time `json:"snapshot_at,omitzero"`
}

// Engine runs one backup, restore or integrity check at a time.
type Engine struct {
	mu     sync.Mutex
	store  *store.Store
	vault  vault.Vault
	ledger *Ledger
	prefix string
	now    func() time.Time
}

type Option func(*Engine)

func WithPrefix(prefix string) Option {
	return func(e *Engine) {
		if prefix != "" {
			e.prefix = prefix
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an engine over s that writes snapshot files to v. A nil ledger
// uses the store's database.
func New(s *store.Store, v vault.Vault, ledger *Ledger, opts ...Option) (*Engine, error) {
	if s == nil {
		return nil, fmt.Errorf("backup: store is nil")
	}
	if v == nil {
		return nil, fmt.Errorf("backup: vault is nil")
	}
	if ledger == nil {
		ledger = NewLedger(s.DB())
	}
	e := &Engine{
		store:  s,
		vault:  v,
		ledger: ledger,
		prefix: DefaultPrefix,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// CreateBackup reads every record, archived ones included, into a snapshot.
func (e *Engine) CreateBackup(ctx context.Context) (Snapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap, err := e.snapshot(ctx)
	metrics.ObserveBackup("create", err)
	return snap, err
}

func (e *Engine) snapshot(ctx context.Context) (Snapshot, error) {
	contents, err := e.store.Dump(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("create backup: %w", err)
	}
	snap := FromContents(contents, e.now())
	counts := snap.Counts()
	applog.Info(ctx, "backup created",
		"materials", counts.Materials,
		"formulas", counts.Formulas,
		"manufacturers", counts.Manufacturers,
		"perfumes", counts.Perfumes,
	)
	return snap, nil
}

// WriteBackup creates a snapshot and stores it in the vault under
// <prefix><yyyyMMdd_HHmmss>.json.
func (e *Engine) WriteBackup(ctx context.Context) (info BackupInfo, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() { metrics.ObserveBackup("write", err) }()

	snap, err := e.snapshot(ctx)
	if err != nil {
		return BackupInfo{}, err
	}

	var buf bytes.Buffer
	if err := Encode(&buf, snap); err != nil {
		return BackupInfo{}, err
	}

	taken := snap.TakenAt()
	key := e.prefix + taken.Format(keyLayout) + ".json"
	obj, err := e.vault.Put(ctx, key, &buf)
	if err != nil {
		return BackupInfo{}, fmt.Errorf("store backup %s: %w", key, err)
	}
	if err := e.ledger.RecordBackup(ctx, taken, obj.Key, obj.Size); err != nil {
		return BackupInfo{}, err
	}
	metrics.SetBackupSize(obj.Size)

	applog.Info(ctx, "backup written", "key", obj.Key, "size", obj.Size, "driver", e.vault.Driver())
	return BackupInfo{
		Key:       obj.Key,
		Size:      obj.Size,
		ETag:      obj.ETag,
		Timestamp: taken,
		Counts:    snap.Counts(),
	}, nil
}

// Restore validates snap and swaps it in for the current contents, keeping
// the snapshot ids. Nothing is written when validation or loading fails.
func (e *Engine) Restore(ctx context.Context, snap Snapshot) RestoreResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.guardedRestore(ctx, snap, "")
}

// RestoreFrom restores the snapshot stored under key in the vault.
func (e *Engine) RestoreFrom(ctx context.Context, key string) RestoreResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	rc, err := e.vault.Open(ctx, key)
	if err != nil {
		return e.failed(ctx, key, fmt.Errorf("open backup %s: %w", key, err))
	}
	defer rc.Close()
	return e.decodeAndRestore(ctx, rc, key)
}

// RestoreReader restores a snapshot document read from r. source names the
// document in logs and in the ledger.
func (e *Engine) RestoreReader(ctx context.Context, r io.Reader, source string) RestoreResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.decodeAndRestore(ctx, r, source)
}

func (e *Engine) decodeAndRestore(ctx context.Context, r io.Reader, source string) RestoreResult {
	snap, err := Decode(r)
	if err != nil {
		return e.failed(ctx, source, err)
	}
	return e.guardedRestore(ctx, snap, source)
}

func (e *Engine) guardedRestore(ctx context.Context, snap Snapshot, source string) (result RestoreResult) {
	defer func() {
		if r := recover(); r != nil {
			result = e.failed(ctx, source, fmt.Errorf("restore aborted: %v", r))
		}
	}()
	return e.restore(ctx, snap, source)
}

func (e *Engine) restore(ctx context.Context, snap Snapshot, source string) RestoreResult {
	if !snap.IsValid() {
		reason := "snapshot holds no records"
		if snap.Timestamp <= 0 {
			reason = fmt.Sprintf("timestamp %d is not positive", snap.Timestamp)
		}
		return e.failed(ctx, source, fmt.Errorf("%w: %s", ErrInvalidBackup, reason))
	}

	if err := e.store.Replace(ctx, snap.Contents()); err != nil {
		return e.failed(ctx, source, fmt.Errorf("restore: %w", err))
	}

	taken := snap.TakenAt()
	if err := e.ledger.RecordRestore(ctx, e.now(), source, taken); err != nil {
		applog.Warn(ctx, "restore not recorded in ledger", "error", err)
	}
	metrics.ObserveBackup("restore", nil)

	counts := snap.Counts()
	applog.Info(ctx, "backup restored", "source", source, "snapshot_at", taken, "records", counts.Total())
	return RestoreResult{Status: StatusSuccess, Source: source, SnapshotAt: taken, Counts: counts}
}

func (e *Engine) failed(ctx context.Context, source string, err error) RestoreResult {
	metrics.ObserveBackup("restore", err)
	applog.Error(ctx, "restore failed", "source", source, "error", err)
	return RestoreResult{Status: StatusError, Err: err, Source: source}
}

// Inspect decodes the snapshot stored under key without restoring it.
func (e *Engine) Inspect(ctx context.Context, key string) (Snapshot, error) {
	rc, err := e.vault.Open(ctx, key)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open backup %s: %w", key, err)
	}
	defer rc.Close()
	return Decode(rc)
}

// Backups lists the snapshot files in the vault, newest first.
func (e *Engine) Backups(ctx context.Context) ([]vault.Object, error) {
	objects, err := e.vault.List(ctx, e.prefix)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	return objects, nil
}

// LastBackup returns the most recent backup, or nil if none was written.
func (e *Engine) LastBackup(ctx context.Context) (*Event, error) {
	row, err := e.ledger.Get(ctx)
	if err != nil {
		return nil, err
	}
	if row.LastBackupAt == nil {
		return nil, nil
	}
	return &Event{At: *row.LastBackupAt, Key: row.LastBackupKey, Size: row.LastBackupSize}, nil
}

// LastRestore returns the most recent successful restore, or nil.
func (e *Engine) LastRestore(ctx context.Context) (*Event, error) {
	row, err := e.ledger.Get(ctx)
	if err != nil {
		return nil, err
	}
	if row.LastRestoreAt == nil {
		return nil, nil
	}
	ev := &Event{At: *row.LastRestoreAt, Key: row.LastRestoreKey}
	if row.LastRestoreSnapshotAt != nil {
		ev.SnapshotAt = *row.LastRestoreSnapshotAt
	}
	return ev, nil
}
