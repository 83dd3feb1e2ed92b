package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"almmr/internal/db"
	applog "almmr/internal/log"
	"almmr/internal/metrics"
	"almmr/models"
)

const insertBatchSize = 200

// Store owns the database handle and serialises writes: one mutation at a
// time, any number of concurrent reads.
type Store struct {
	db  *gorm.DB
	mu  sync.RWMutex
	now func() time.Time
}

type Option func(*Store)

// WithClock overrides the time source used for created/updated stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(database *gorm.DB, opts ...Option) (*Store, error) {
	if database == nil {
		return nil, fmt.Errorf("store: database handle is nil")
	}

	s := &Store{
		db:  database,
		now: func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// DB exposes the underlying handle for components that keep their own
// tables, such as the backup ledger.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Now returns the store clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return db.Close(s.db)
}

type txKey struct{}

func txFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(txKey{}).(*gorm.DB)
	return tx, ok
}

// Atomic runs fn inside one transaction with the write lock held. Repository
// calls made with the context passed to fn join that transaction. Nested
// calls reuse the outer transaction.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := txFrom(ctx); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

func (s *Store) write(ctx context.Context, kind models.Kind, op string, fn func(tx *gorm.DB) error) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore(string(kind), op, started, err)
	}()

	if tx, ok := txFrom(ctx); ok {
		return fn(tx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.db.WithContext(ctx))
}

func (s *Store) read(ctx context.Context, fn func(conn *gorm.DB) error) error {
	if tx, ok := txFrom(ctx); ok {
		return fn(tx)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.db.WithContext(ctx))
}

// Contents is every row of every collection, archived rows included.
type Contents struct {
	Materials     []models.RawMaterial
	Formulas      []models.Formula
	Manufacturers []models.Manufacturer
	Perfumes      []models.RegisteredPerfume
}

// Empty reports whether no collection holds a record.
func (c Contents) Empty() bool {
	return len(c.Materials) == 0 && len(c.Formulas) == 0 && len(c.Manufacturers) == 0 && len(c.Perfumes) == 0
}

// Dump reads the full unfiltered contents of the store. Writes are blocked
// for its duration so the four collections are mutually consistent.
func (s *Store) Dump(ctx context.Context) (Contents, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Contents
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.db.WithContext(gctx).Order("id").Find(&c.Materials).Error })
	g.Go(func() error { return s.db.WithContext(gctx).Order("id").Find(&c.Formulas).Error })
	g.Go(func() error { return s.db.WithContext(gctx).Order("id").Find(&c.Manufacturers).Error })
	g.Go(func() error { return s.db.WithContext(gctx).Order("id").Find(&c.Perfumes).Error })
	if err := g.Wait(); err != nil {
		return Contents{}, fmt.Errorf("dump store: %w", err)
	}

	applog.Debug(ctx, "store dumped",
		"materials", len(c.Materials),
		"formulas", len(c.Formulas),
		"manufacturers", len(c.Manufacturers),
		"perfumes", len(c.Perfumes),
	)
	return c, nil
}

// Replace clears every collection and loads c with its ids preserved. The
// whole exchange is one transaction under the write lock: on failure the
// previous contents remain.
func (s *Store) Replace(ctx context.Context, c Contents) (err error) {
	started := time.Now()
	defer func() {
		metrics.ObserveStore("all", "replace", started, err)
	}()

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		wipe := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		for _, model := range []any{&models.RegisteredPerfume{}, &models.Manufacturer{}, &models.Formula{}, &models.RawMaterial{}} {
			if err := wipe.Delete(model).Error; err != nil {
				return fmt.Errorf("clear %T: %w", model, err)
			}
		}

		if err := createAll(tx, c.Materials); err != nil {
			return fmt.Errorf("load materials: %w", err)
		}
		if err := createAll(tx, c.Formulas); err != nil {
			return fmt.Errorf("load formulas: %w", err)
		}
		if err := createAll(tx, c.Manufacturers); err != nil {
			return fmt.Errorf("load manufacturers: %w", err)
		}
		if err := createAll(tx, c.Perfumes); err != nil {
			return fmt.Errorf("load perfumes: %w", err)
		}

		if tx.Dialector.Name() == "postgres" {
			for _, model := range []any{&models.RawMaterial{}, &models.Formula{}, &models.Manufacturer{}, &models.RegisteredPerfume{}} {
				if err := resetSequence(tx, model); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func createAll[T any](tx *gorm.DB, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	return tx.CreateInBatches(&rows, insertBatchSize).Error
}

// resetSequence moves a postgres serial past the largest loaded id so later
// inserts do not collide with restored rows.
func resetSequence(tx *gorm.DB, model any) error {
	stmt := &gorm.Statement{DB: tx}
	if err := stmt.Parse(model); err != nil {
		return err
	}
	table := stmt.Schema.Table
	sql := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE((SELECT MAX(id) FROM %s), 0) + 1, false)",
		table, tx.Statement.Quote(table),
	)
	if err := tx.Exec(sql).Error; err != nil {
		return fmt.Errorf("reset %s sequence: %w", table, err)
	}
	return nil
}
