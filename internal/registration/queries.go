package registration

import (
	"context"
	"sort"
	"strings"

	"almmr/internal/store"
	"almmr/models"
)

// List returns live perfumes, most recently registered first.
func (s *Service) List(ctx context.Context) ([]models.RegisteredPerfume, error) {
	return s.repo.List(ctx, store.OrderBy("registration_date", true), store.OrderBy("id", true))
}

func (s *Service) Search(ctx context.Context, q string) ([]models.RegisteredPerfume, error) {
	if strings.TrimSpace(q) == "" {
		return s.List(ctx)
	}
	return s.repo.List(ctx, store.Like(q, "name", "description", "scent_family"), store.OrderBy("name", false))
}

func (s *Service) ByStatus(ctx context.Context, status models.PerfumeStatus) ([]models.RegisteredPerfume, error) {
	return s.repo.List(ctx, store.Where("status", "=", status), store.OrderBy("registration_date", true))
}

func (s *Service) ByType(ctx context.Context, kind models.PerfumeType) ([]models.RegisteredPerfume, error) {
	return s.repo.List(ctx, store.Where("type", "=", kind), store.OrderBy("name", false))
}

func (s *Service) ByScentFamily(ctx context.Context, family string) ([]models.RegisteredPerfume, error) {
	return s.repo.List(ctx, store.Where("scent_family", "=", family))
}

func (s *Service) ByAlcoholRange(ctx context.Context, lo, hi float64) ([]models.RegisteredPerfume, error) {
	return s.repo.List(ctx, store.Between("alcohol_percentage", lo, hi))
}

func (s *Service) ByPriceRange(ctx context.Context, lo, hi float64) ([]models.RegisteredPerfume, error) {
	return s.repo.List(ctx, store.Between("price_point", lo, hi))
}

func (s *Service) ByTargetMarket(ctx context.Context, market string) ([]models.RegisteredPerfume, error) {
	return s.repo.List(ctx, store.Like(market, "target_market"))
}

func (s *Service) InProductionByManufacturer(ctx context.Context, manufacturerID uint) ([]models.RegisteredPerfume, error) {
	return s.repo.List(ctx,
		store.Where("manufacturer_id", "=", manufacturerID),
		store.Where("status", "=", models.PerfumeInProduction),
	)
}

// ByBatchPrefix returns live perfumes whose batch number starts with prefix.
func (s *Service) ByBatchPrefix(ctx context.Context, prefix string) ([]*models.RegisteredPerfume, error) {
	return store.Collect(store.Filter(s.repo.Query(ctx), func(p *models.RegisteredPerfume) bool {
		return strings.HasPrefix(p.BatchNumber, prefix)
	}))
}

func (s *Service) CountByStatus(ctx context.Context, status models.PerfumeStatus) (int64, error) {
	return s.repo.Count(ctx, store.Where("status", "=", status))
}

type FamilyCount struct {
	Family string `json:"family"`
	Count  int    `json:"count"`
}

type MarketAnalytics struct {
	TotalPerfumes         int                        `json:"total_perfumes"`
	TypeDistribution      map[models.PerfumeType]int `json:"type_distribution"`
	AverageAvailablePrice float64                    `json:"average_available_price"`
	PopularScentFamilies  []FamilyCount              `json:"popular_scent_families"`
	MarketSegmentation    map[string]int             `json:"market_segmentation"`
}

const popularFamilies = 5

// MarketAnalytics summarises the live catalogue. The average price only
// counts AVAILABLE perfumes.
func (s *Service) MarketAnalytics(ctx context.Context) (MarketAnalytics, error) {
	perfumes, err := s.repo.List(ctx)
	if err != nil {
		return MarketAnalytics{}, err
	}

	out := MarketAnalytics{
		TotalPerfumes:      len(perfumes),
		TypeDistribution:   make(map[models.PerfumeType]int),
		MarketSegmentation: make(map[string]int),
	}
	families := make(map[string]int)
	var priceSum float64
	var available int
	for _, p := range perfumes {
		out.TypeDistribution[p.Type]++
		out.MarketSegmentation[p.TargetMarket]++
		families[p.ScentFamily]++
		if p.Status == models.PerfumeAvailable {
			priceSum += p.PricePoint
			available++
		}
	}
	if available > 0 {
		out.AverageAvailablePrice = priceSum / float64(available)
	}

	for family, count := range families {
		out.PopularScentFamilies = append(out.PopularScentFamilies, FamilyCount{Family: family, Count: count})
	}
	sort.Slice(out.PopularScentFamilies, func(i, j int) bool {
		a, b := out.PopularScentFamilies[i], out.PopularScentFamilies[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Family < b.Family
	})
	if len(out.PopularScentFamilies) > popularFamilies {
		out.PopularScentFamilies = out.PopularScentFamilies[:popularFamilies]
	}
	return out, nil
}

type BatchReport struct {
	BatchPrefix         string                       `json:"batch_prefix"`
	TotalPerfumes       int                          `json:"total_perfumes"`
	Status              map[models.PerfumeStatus]int `json:"status"`
	AverageLongevity    float64                      `json:"average_longevity"`
	SillageDistribution map[models.SillageRating]int `json:"sillage_distribution"`
}

func (s *Service) BatchReport(ctx context.Context, prefix string) (BatchReport, error) {
	perfumes, err := s.ByBatchPrefix(ctx, prefix)
	if err != nil {
		return BatchReport{}, err
	}

	report := BatchReport{
		BatchPrefix:         prefix,
		TotalPerfumes:       len(perfumes),
		Status:              make(map[models.PerfumeStatus]int),
		SillageDistribution: make(map[models.SillageRating]int),
	}
	var longevity int
	for _, p := range perfumes {
		report.Status[p.Status]++
		report.SillageDistribution[p.Sillage]++
		longevity += p.Longevity
	}
	if len(perfumes) > 0 {
		report.AverageLongevity = float64(longevity) / float64(len(perfumes))
	}
	return report, nil
}
