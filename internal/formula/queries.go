package formula

import (
	"context"
	"fmt"
	"strings"

	"almmr/internal/store"
	"almmr/models"
)

func (s *Service) Get(ctx context.Context, id uint) (*models.Formula, error) {
	return s.repo.Get(ctx, id)
}

// Update edits a formula version in place.
func (s *Service) Update(ctx context.Context, f *models.Formula) error {
	return s.repo.Update(ctx, f)
}

func (s *Service) Archive(ctx context.Context, id uint) error {
	return s.repo.Archive(ctx, id)
}

// List returns live formulas, newest first.
func (s *Service) List(ctx context.Context) ([]models.Formula, error) {
	return s.repo.List(ctx, store.OrderBy("creation_date", true), store.OrderBy("id", true))
}

func (s *Service) Search(ctx context.Context, q string) ([]models.Formula, error) {
	if strings.TrimSpace(q) == "" {
		return s.List(ctx)
	}
	return s.repo.List(ctx, store.Like(q, "name", "description", "perfumer"), store.OrderBy("name", false), store.OrderBy("version", true))
}

func (s *Service) ByStatus(ctx context.Context, status models.FormulaStatus) ([]models.Formula, error) {
	return s.repo.List(ctx, store.Where("status", "=", status))
}

func (s *Service) ByAlcoholRange(ctx context.Context, lo, hi float64) ([]models.Formula, error) {
	if lo > hi {
		lo, hi = hi, lo
	}
	return s.repo.List(ctx, store.Between("alcohol_percentage", lo, hi))
}

func (s *Service) CountByPerfumer(ctx context.Context, perfumer string) (int64, error) {
	return s.repo.Count(ctx, store.Where("perfumer", "=", perfumer))
}

// Versions lists the live versions of name, highest first.
func (s *Service) Versions(ctx context.Context, name string) ([]models.Formula, error) {
	return s.repo.List(ctx, store.Where("name", "=", strings.TrimSpace(name)), store.OrderBy("version", true))
}

// Latest returns the current (highest live) version of name.
func (s *Service) Latest(ctx context.Context, name string) (*models.Formula, error) {
	rows, err := s.repo.List(ctx, store.Where("name", "=", strings.TrimSpace(name)), store.OrderBy("version", true), store.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("formula %q: %w", name, store.ErrNotFound)
	}
	return &rows[0], nil
}

// LatestVersionNumber is the highest version ever allocated to name,
// archived versions included, or 0 when the name is unused.
func (s *Service) LatestVersionNumber(ctx context.Context, name string) (int, error) {
	rows, err := s.repo.List(ctx,
		store.Where("name", "=", strings.TrimSpace(name)),
		store.OrderBy("version", true),
		store.Limit(1),
		store.IncludeArchived(),
	)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Version, nil
}

// ApplySuggestions appends suggested materials to the tier matching their
// type. Suggestions are taken as given; a material already present in the
// target tier is skipped.
func ApplySuggestions(f *models.Formula, suggestions []models.SuggestedNote) int {
	if f == nil {
		return 0
	}

	added := 0
	for _, suggestion := range suggestions {
		tier := tierFor(f, suggestion.Type)
		if containsMaterial(*tier, suggestion.MaterialID) {
			continue
		}
		*tier = append(*tier, models.Note{
			MaterialID:    suggestion.MaterialID,
			Quantity:      1,
			Concentration: suggestion.Confidence,
		})
		added++
	}
	return added
}

func tierFor(f *models.Formula, kind models.MaterialType) *[]models.Note {
	switch kind {
	case models.MaterialTopNote:
		return (*[]models.Note)(&f.TopNotes)
	case models.MaterialBaseNote, models.MaterialFixative:
		return (*[]models.Note)(&f.BaseNotes)
	default:
		return (*[]models.Note)(&f.MiddleNotes)
	}
}

func containsMaterial(notes []models.Note, materialID uint) bool {
	for _, note := range notes {
		if note.MaterialID == materialID {
			return true
		}
	}
	return false
}
