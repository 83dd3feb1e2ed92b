package store

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"reflect"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	applog "almmr/internal/log"
	"almmr/models"
)

type kindSpec struct {
	kind          models.Kind
	liveColumn    string
	liveValue     bool
	updatedColumn string
	// kept lists columns Update copies from the stored row; the live flag
	// changes only through Archive.
	kept []string
	// referencedBy is the perfumes column pointing at this kind, if any.
	referencedBy string
}

var (
	materialSpec     = kindSpec{kind: models.KindMaterial, liveColumn: "is_archived", liveValue: false, updatedColumn: "updated_at"}
	formulaSpec      = kindSpec{kind: models.KindFormula, liveColumn: "is_archived", liveValue: false, updatedColumn: "last_modified", kept: []string{"name", "version"}, referencedBy: "formula_id"}
	manufacturerSpec = kindSpec{kind: models.KindManufacturer, liveColumn: "is_active", liveValue: true, updatedColumn: "updated_at", referencedBy: "manufacturer_id"}
	perfumeSpec      = kindSpec{kind: models.KindPerfume, liveColumn: "is_archived", liveValue: false, updatedColumn: "updated_at"}
)

func (k kindSpec) live(conn *gorm.DB) *gorm.DB {
	return conn.Where(k.liveColumn+" = ?", k.liveValue)
}

// Repository gives typed access to one collection. P is the pointer type
// of T and carries the Entity methods.
type Repository[T any, P interface {
	*T
	models.Entity
}] struct {
	store *Store
	spec  kindSpec

	schemaOnce sync.Once
	schema     *schema.Schema
	schemaErr  error
}

func newRepository[T any, P interface {
	*T
	models.Entity
}](s *Store, spec kindSpec) *Repository[T, P] {
	return &Repository[T, P]{store: s, spec: spec}
}

func Materials(s *Store) *Repository[models.RawMaterial, *models.RawMaterial] {
	return newRepository[models.RawMaterial](s, materialSpec)
}

func Formulas(s *Store) *Repository[models.Formula, *models.Formula] {
	return newRepository[models.Formula](s, formulaSpec)
}

func Manufacturers(s *Store) *Repository[models.Manufacturer, *models.Manufacturer] {
	return newRepository[models.Manufacturer](s, manufacturerSpec)
}

func Perfumes(s *Store) *Repository[models.RegisteredPerfume, *models.RegisteredPerfume] {
	return newRepository[models.RegisteredPerfume](s, perfumeSpec)
}

func (r *Repository[T, P]) Kind() models.Kind {
	return r.spec.kind
}

func (r *Repository[T, P]) modelSchema() (*schema.Schema, error) {
	r.schemaOnce.Do(func() {
		stmt := &gorm.Statement{DB: r.store.db}
		if err := stmt.Parse(new(T)); err != nil {
			r.schemaErr = fmt.Errorf("parse %s schema: %w", r.spec.kind, err)
			return
		}
		r.schema = stmt.Schema
	})
	return r.schema, r.schemaErr
}

// Insert stores a new record and returns its id. The record must not carry
// an id; created and updated stamps are set to now.
func (r *Repository[T, P]) Insert(ctx context.Context, entity P) (uint, error) {
	if entity == nil {
		return 0, invalid("", "nil "+string(r.spec.kind))
	}
	if entity.PrimaryKey() != 0 {
		return 0, invalid("id", "must be zero for a new record")
	}

	now := r.store.now()
	entity.Touch(now, now)
	if err := Validate(entity); err != nil {
		return 0, err
	}

	err := r.store.write(ctx, r.spec.kind, "insert", func(tx *gorm.DB) error {
		return tx.Create(entity).Error
	})
	if err != nil {
		return 0, fmt.Errorf("insert %s: %w", r.spec.kind, err)
	}

	applog.Debug(ctx, "record inserted", "kind", r.spec.kind, "id", entity.PrimaryKey())
	return entity.PrimaryKey(), nil
}

// Update overwrites an existing record. The stored creation stamp is kept
// and the updated stamp is set to now. The soft-delete flag, and a formula's
// name and version, are copied from the stored row onto entity whatever the
// caller sent.
func (r *Repository[T, P]) Update(ctx context.Context, entity P) error {
	if entity == nil {
		return invalid("", "nil "+string(r.spec.kind))
	}
	id := entity.PrimaryKey()
	if id == 0 {
		return notFound(r.spec.kind, 0)
	}
	sch, err := r.modelSchema()
	if err != nil {
		return err
	}

	err = r.store.write(ctx, r.spec.kind, "update", func(tx *gorm.DB) error {
		var current T
		if err := tx.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(r.spec.kind, id)
			}
			return err
		}
		if err := r.keepStored(ctx, sch, &current, entity); err != nil {
			return err
		}
		if err := Validate(entity); err != nil {
			return err
		}
		entity.Touch(P(&current).CreatedTime(), r.store.now())
		return tx.Save(entity).Error
	})
	if err != nil {
		return wrapUnlessDomain(err, "update "+string(r.spec.kind))
	}

	applog.Debug(ctx, "record updated", "kind", r.spec.kind, "id", id)
	return nil
}

func (r *Repository[T, P]) keepStored(ctx context.Context, sch *schema.Schema, current *T, entity P) error {
	src, dst := reflect.ValueOf(current), reflect.ValueOf(entity)
	for _, column := range append([]string{r.spec.liveColumn}, r.spec.kept...) {
		field := sch.LookUpField(column)
		if field == nil {
			return fmt.Errorf("%s has no column %q", r.spec.kind, column)
		}
		value, _ := field.ValueOf(ctx, src)
		if err := field.Set(ctx, dst, value); err != nil {
			return fmt.Errorf("keep %s.%s: %w", r.spec.kind, column, err)
		}
	}
	return nil
}

// Get loads one record. Archived records are reported as not found unless
// IncludeArchived is passed.
func (r *Repository[T, P]) Get(ctx context.Context, id uint, opts ...QueryOption) (P, error) {
	q := buildQuery(opts)
	var out T
	err := r.store.read(ctx, func(conn *gorm.DB) error {
		if !q.includeArchived {
			conn = r.spec.live(conn)
		}
		return conn.First(&out, id).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(r.spec.kind, id)
		}
		return nil, fmt.Errorf("get %s %d: %w", r.spec.kind, id, err)
	}
	return P(&out), nil
}

// List runs the query and returns the materialised rows.
func (r *Repository[T, P]) List(ctx context.Context, opts ...QueryOption) ([]T, error) {
	sch, err := r.modelSchema()
	if err != nil {
		return nil, err
	}

	q := buildQuery(opts)
	var rows []T
	err = r.store.read(ctx, func(conn *gorm.DB) error {
		conn = conn.Model(new(T))
		if !q.includeArchived {
			conn = r.spec.live(conn)
		}
		conn, err := q.apply(conn, sch)
		if err != nil {
			return err
		}
		return conn.Find(&rows).Error
	})
	if err != nil {
		return nil, wrapUnlessDomain(err, "query "+string(r.spec.kind))
	}
	return rows, nil
}

// Query returns a lazy sequence over matching records. Nothing is read
// until the sequence is ranged over, and the store lock is released before
// the first item is yielded, so the loop body may write.
func (r *Repository[T, P]) Query(ctx context.Context, opts ...QueryOption) iter.Seq2[*T, error] {
	return func(yield func(*T, error) bool) {
		rows, err := r.List(ctx, opts...)
		if err != nil {
			yield(nil, err)
			return
		}
		for idx := range rows {
			if !yield(&rows[idx], nil) {
				return
			}
		}
	}
}

func (r *Repository[T, P]) Count(ctx context.Context, opts ...QueryOption) (int64, error) {
	sch, err := r.modelSchema()
	if err != nil {
		return 0, err
	}

	q := buildQuery(opts)
	var count int64
	err = r.store.read(ctx, func(conn *gorm.DB) error {
		conn = conn.Model(new(T))
		if !q.includeArchived {
			conn = r.spec.live(conn)
		}
		conn, err := q.applyFilters(conn, sch)
		if err != nil {
			return err
		}
		return conn.Count(&count).Error
	})
	if err != nil {
		return 0, wrapUnlessDomain(err, "count "+string(r.spec.kind))
	}
	return count, nil
}

// Archive soft-deletes a record. Formulas and manufacturers that a live
// perfume references are refused with a *ReferenceError. Archiving an
// archived record does nothing.
func (r *Repository[T, P]) Archive(ctx context.Context, id uint) error {
	err := r.store.write(ctx, r.spec.kind, "archive", func(tx *gorm.DB) error {
		var current T
		if err := tx.First(&current, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return notFound(r.spec.kind, id)
			}
			return err
		}

		var live int64
		if err := r.spec.live(tx.Model(new(T))).Where("id = ?", id).Count(&live).Error; err != nil {
			return err
		}
		if live == 0 {
			return nil
		}

		if r.spec.referencedBy != "" {
			var refs int64
			err := perfumeSpec.live(tx.Model(&models.RegisteredPerfume{})).
				Where(r.spec.referencedBy+" = ?", id).
				Count(&refs).Error
			if err != nil {
				return err
			}
			if refs > 0 {
				return &ReferenceError{Kind: r.spec.kind, ID: id, Count: refs}
			}
		}

		return tx.Model(new(T)).Where("id = ?", id).UpdateColumns(map[string]any{
			r.spec.liveColumn:    !r.spec.liveValue,
			r.spec.updatedColumn: r.store.now(),
		}).Error
	})
	if err != nil {
		return wrapUnlessDomain(err, "archive "+string(r.spec.kind))
	}

	applog.Debug(ctx, "record archived", "kind", r.spec.kind, "id", id)
	return nil
}

func wrapUnlessDomain(err error, action string) error {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrValidation) || errors.Is(err, ErrReferenced) {
		return err
	}
	return fmt.Errorf("%s: %w", action, err)
}
