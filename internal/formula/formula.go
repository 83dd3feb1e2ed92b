// Package formula implements versioned perfume formulas: every edit that
// matters is a new row under the same name with the next version number.
package formula

import (
	"context"
	"fmt"
	"strings"

	applog "almmr/internal/log"
	"almmr/internal/store"
	"almmr/models"
)

type Service struct {
	store *store.Store
	repo  *store.Repository[models.Formula, *models.Formula]
}

func NewService(s *store.Store) *Service {
	return &Service{store: s, repo: store.Formulas(s)}
}

// CreateVersion inserts f as the next version of f.Name. The supplied id,
// version and creation date are ignored. A blank status becomes DRAFT.
func (s *Service) CreateVersion(ctx context.Context, f *models.Formula) (uint, error) {
	if f == nil {
		return 0, &store.ValidationError{Field: "formula", Reason: "must not be nil"}
	}
	name := strings.TrimSpace(f.Name)
	if name == "" {
		return 0, &store.ValidationError{Field: "name", Reason: "must not be blank"}
	}

	var id uint
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		latest, err := s.LatestVersionNumber(ctx, name)
		if err != nil {
			return err
		}

		next := *f
		next.ID = 0
		next.Name = name
		next.Version = latest + 1
		next.IsArchived = false
		if next.Status == "" {
			next.Status = models.FormulaDraft
		}

		id, err = s.repo.Insert(ctx, &next)
		return err
	})
	if err != nil {
		return 0, err
	}

	applog.Debug(ctx, "formula version created", "formula", id, "name", name)
	return id, nil
}

// Duplicate copies formula id into a new version of the same name. The new
// version is one past both the source and the newest existing version, so
// duplicating an older version never collides.
func (s *Service) Duplicate(ctx context.Context, id uint) (uint, error) {
	var newID uint
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		source, err := s.repo.Get(ctx, id, store.IncludeArchived())
		if err != nil {
			return err
		}
		latest, err := s.LatestVersionNumber(ctx, source.Name)
		if err != nil {
			return err
		}

		copied := *source
		copied.ID = 0
		copied.Version = max(source.Version, latest) + 1
		copied.IsArchived = false
		copied.TopNotes = cloneNotes(source.TopNotes)
		copied.MiddleNotes = cloneNotes(source.MiddleNotes)
		copied.BaseNotes = cloneNotes(source.BaseNotes)

		newID, err = s.repo.Insert(ctx, &copied)
		return err
	})
	if err != nil {
		return 0, err
	}

	applog.Debug(ctx, "formula duplicated", "source", id, "formula", newID)
	return newID, nil
}

// CopyAs copies formula id under a fresh "<name> (Copy N)" name starting at
// version 1.
func (s *Service) CopyAs(ctx context.Context, id uint) (uint, error) {
	var newID uint
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		source, err := s.repo.Get(ctx, id, store.IncludeArchived())
		if err != nil {
			return err
		}
		existing, err := s.repo.List(ctx, store.IncludeArchived())
		if err != nil {
			return err
		}

		copied := *source
		copied.ID = 0
		copied.Name = NextCopyName(existing, source.Name)
		copied.Version = 1
		copied.Status = models.FormulaDraft
		copied.IsArchived = false
		copied.TopNotes = cloneNotes(source.TopNotes)
		copied.MiddleNotes = cloneNotes(source.MiddleNotes)
		copied.BaseNotes = cloneNotes(source.BaseNotes)

		newID, err = s.repo.Insert(ctx, &copied)
		return err
	})
	return newID, err
}

// SetStatus overwrites the status. Any status may follow any other.
func (s *Service) SetStatus(ctx context.Context, id uint, status models.FormulaStatus) error {
	if !status.Valid() {
		return &store.ValidationError{Field: "status", Reason: fmt.Sprintf("unknown formula status %q", status)}
	}

	return s.store.Atomic(ctx, func(ctx context.Context) error {
		f, err := s.repo.Get(ctx, id, store.IncludeArchived())
		if err != nil {
			return err
		}
		f.Status = status
		return s.repo.Update(ctx, f)
	})
}

// ComputeAlcoholPercentage returns the quantity-weighted mean concentration
// over all notes of formula id, or 0 when the notes hold no quantity.
func (s *Service) ComputeAlcoholPercentage(ctx context.Context, id uint) (float64, error) {
	f, err := s.repo.Get(ctx, id, store.IncludeArchived())
	if err != nil {
		return 0, err
	}
	return WeightedConcentration(f.AllNotes()), nil
}

// Recalculate stores the computed percentage on the formula and returns it.
func (s *Service) Recalculate(ctx context.Context, id uint) (float64, error) {
	var value float64
	err := s.store.Atomic(ctx, func(ctx context.Context) error {
		f, err := s.repo.Get(ctx, id, store.IncludeArchived())
		if err != nil {
			return err
		}
		value = WeightedConcentration(f.AllNotes())
		f.AlcoholPercentage = value
		return s.repo.Update(ctx, f)
	})
	return value, err
}

// WeightedConcentration is Σ(quantity·concentration) / Σ quantity, or 0 for
// an empty or zero-quantity note set.
func WeightedConcentration(notes []models.Note) float64 {
	var total, weighted float64
	for _, note := range notes {
		total += note.Quantity
		weighted += note.Quantity * note.Concentration
	}
	if total == 0 {
		return 0
	}
	return weighted / total
}

func cloneNotes(notes []models.Note) []models.Note {
	if notes == nil {
		return nil
	}
	return append([]models.Note(nil), notes...)
}

// NextCopyName picks the first unused "<base> (Copy)", "<base> (Copy 2)", …
// among existing names, compared case-insensitively.
func NextCopyName(existing []models.Formula, base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "Untitled Formula"
	}

	used := make(map[string]struct{}, len(existing))
	for _, f := range existing {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			continue
		}
		used[strings.ToLower(name)] = struct{}{}
	}

	candidate := fmt.Sprintf("%s (Copy)", base)
	if _, ok := used[strings.ToLower(candidate)]; !ok {
		return candidate
	}

	for i := 2; ; i++ {
		candidate = fmt.Sprintf("%s (Copy %d)", base, i)
		if _, ok := used[strings.ToLower(candidate)]; !ok {
			return candidate
		}
	}
}
