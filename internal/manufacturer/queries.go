package manufacturer

import (
	"context"
	"strings"

	"almmr/internal/store"
	"almmr/models"
)

// Active lists active manufacturers by company name.
func (s *Service) Active(ctx context.Context) ([]models.Manufacturer, error) {
	return s.repo.List(ctx, store.OrderBy("company_name", false))
}

func (s *Service) Search(ctx context.Context, q string) ([]models.Manufacturer, error) {
	if strings.TrimSpace(q) == "" {
		return s.Active(ctx)
	}
	return s.repo.List(ctx, store.Like(q, "company_name", "contact_person", "email"), store.OrderBy("company_name", false))
}

// ByProjectStage returns manufacturers with at least one project in stage.
func (s *Service) ByProjectStage(ctx context.Context, stage models.ProductionStage) ([]*models.Manufacturer, error) {
	return store.Collect(store.Filter(s.repo.Query(ctx, store.OrderBy("company_name", false)), func(m *models.Manufacturer) bool {
		for _, project := range m.ActiveProjects {
			if project.Status == stage {
				return true
			}
		}
		return false
	}))
}

// ByCertification matches cert as a case-insensitive substring of any held
// certification.
func (s *Service) ByCertification(ctx context.Context, cert string) ([]*models.Manufacturer, error) {
	needle := normalise(cert)
	return store.Collect(store.Filter(s.repo.Query(ctx, store.OrderBy("company_name", false)), func(m *models.Manufacturer) bool {
		for _, held := range m.Certifications {
			if strings.Contains(strings.ToLower(held), needle) {
				return true
			}
		}
		return false
	}))
}

// InProduction returns manufacturers making at least one perfume that is
// currently IN_PRODUCTION.
func (s *Service) InProduction(ctx context.Context) ([]*models.Manufacturer, error) {
	perfumes, err := store.Perfumes(s.store).List(ctx, store.Where("status", "=", models.PerfumeInProduction))
	if err != nil {
		return nil, err
	}
	ids := make(map[uint]struct{}, len(perfumes))
	for _, p := range perfumes {
		ids[p.ManufacturerID] = struct{}{}
	}
	return store.Collect(store.Filter(s.repo.Query(ctx), func(m *models.Manufacturer) bool {
		_, ok := ids[m.ID]
		return ok
	}))
}

func (s *Service) TopPerforming(ctx context.Context, minQuality float64) ([]models.Manufacturer, error) {
	return s.repo.List(ctx, store.Where("quality_score", ">=", minQuality), store.OrderBy("quality_score", true))
}

func (s *Service) Reliable(ctx context.Context, minReliability float64) ([]models.Manufacturer, error) {
	return s.repo.List(ctx, store.Where("reliability_score", ">=", minReliability), store.OrderBy("reliability_score", true))
}

func (s *Service) QuickResponders(ctx context.Context, maxDays int) ([]models.Manufacturer, error) {
	return s.repo.List(ctx, store.Where("average_response_time", "<=", maxDays), store.OrderBy("average_response_time", false))
}

// AverageCompletedProjects is the mean completed project count over active
// manufacturers, 0 when there are none.
func (s *Service) AverageCompletedProjects(ctx context.Context) (float64, error) {
	rows, err := s.repo.List(ctx)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	var total float64
	for _, m := range rows {
		total += float64(m.CompletedProjects)
	}
	return total / float64(len(rows)), nil
}

func (s *Service) AverageOverallRating(ctx context.Context) (float64, error) {
	rows, err := s.repo.List(ctx)
	if err != nil || len(rows) == 0 {
		return 0, err
	}
	var total float64
	for idx := range rows {
		total += overall(&rows[idx])
	}
	return total / float64(len(rows)), nil
}
