// Package registration turns approved formulas into registered products
// with generated barcode and QR identifiers.
package registration

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	applog "almmr/internal/log"
	"almmr/internal/store"
	"almmr/models"
)

const qrPrefix = "ALMMR-"

type Service struct {
	store   *store.Store
	repo    *store.Repository[models.RegisteredPerfume, *models.RegisteredPerfume]
	barcode func(models.PerfumeType, time.Time) string
	qrCode  func() string
}

type Option func(*Service)

// WithIdentifiers replaces the barcode and QR generators. Nil keeps the
// default.
func WithIdentifiers(barcode func(models.PerfumeType, time.Time) string, qrCode func() string) Option {
	return func(s *Service) {
		if barcode != nil {
			s.barcode = barcode
		}
		if qrCode != nil {
			s.qrCode = qrCode
		}
	}
}

func NewService(s *store.Store, opts ...Option) *Service {
	svc := &Service{
		store:   s,
		repo:    store.Perfumes(s),
		barcode: Barcode,
		qrCode:  QRCode,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Barcode formats yyMMdd-TYP-xxxxxx where TYP is the first three letters of
// the perfume type and xxxxxx a random token.
func Barcode(kind models.PerfumeType, at time.Time) string {
	prefix := string(kind)
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}
	return fmt.Sprintf("%s-%s-%s", at.Format("060102"), prefix, uuid.NewString()[:6])
}

func QRCode() string {
	return qrPrefix + uuid.NewString()
}

// Register creates a perfume with fresh identifiers. The referenced formula
// and manufacturer must exist and be live. On success p is filled in with
// the stored record; on failure it is left as passed.
func (s *Service) Register(ctx context.Context, p *models.RegisteredPerfume) (uint, error) {
	if p == nil {
		return 0, &store.ValidationError{Field: "perfume", Reason: "must not be nil"}
	}
	if p.ID != 0 {
		return 0, &store.ValidationError{Field: "id", Reason: "must be zero for a new registration"}
	}

	rec := *p
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		if err := s.checkReferences(ctx, &rec); err != nil {
			return err
		}

		now := s.store.Now()
		barcode := s.barcode(rec.Type, now)
		qr := s.qrCode()
		rec.Barcode = &barcode
		rec.QRCode = &qr
		if rec.RegistrationDate.IsZero() {
			rec.RegistrationDate = now
		}
		if rec.Status == "" {
			rec.Status = models.PerfumeRegistered
		}

		_, err := s.repo.Insert(ctx, &rec)
		return err
	})
	if err != nil {
		return 0, err
	}
	*p = rec

	applog.Debug(ctx, "perfume registered", "perfume", p.ID, "barcode", *p.Barcode)
	return p.ID, nil
}

// Update saves edits to a registered perfume. Stored identifiers are kept
// whatever p carries.
func (s *Service) Update(ctx context.Context, p *models.RegisteredPerfume) error {
	if p == nil {
		return &store.ValidationError{Field: "perfume", Reason: "must not be nil"}
	}

	return s.store.Atomic(ctx, func(ctx context.Context) error {
		current, err := s.repo.Get(ctx, p.ID, store.IncludeArchived())
		if err != nil {
			return err
		}
		if current.FormulaID != p.FormulaID || current.ManufacturerID != p.ManufacturerID {
			if err := s.checkReferences(ctx, p); err != nil {
				return err
			}
		}
		p.Barcode = current.Barcode
		p.QRCode = current.QRCode
		return s.repo.Update(ctx, p)
	})
}

// SetStatus overwrites the status. All statuses are mutually reachable.
func (s *Service) SetStatus(ctx context.Context, id uint, status models.PerfumeStatus) error {
	if !status.Valid() {
		return &store.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown perfume status %q", status)}
	}

	return s.store.Atomic(ctx, func(ctx context.Context) error {
		p, err := s.repo.Get(ctx, id, store.IncludeArchived())
		if err != nil {
			return err
		}
		p.Status = status
		return s.repo.Update(ctx, p)
	})
}

func (s *Service) Get(ctx context.Context, id uint) (*models.RegisteredPerfume, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Archive(ctx context.Context, id uint) error {
	return s.repo.Archive(ctx, id)
}

func (s *Service) checkReferences(ctx context.Context, p *models.RegisteredPerfume) error {
	if _, err := store.Formulas(s.store).Get(ctx, p.FormulaID); err != nil {
		return fmt.Errorf("perfume formula: %w", err)
	}
	if _, err := store.Manufacturers(s.store).Get(ctx, p.ManufacturerID); err != nil {
		return fmt.Errorf("perfume manufacturer: %w", err)
	}
	return nil
}
