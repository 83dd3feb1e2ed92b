package material

import (
	"context"
	"strings"

	"almmr/internal/store"
	"almmr/models"
)

// List returns live materials by name.
func (s *Service) List(ctx context.Context) ([]models.RawMaterial, error) {
	return s.repo.List(ctx, store.OrderBy("name", false))
}

func (s *Service) Search(ctx context.Context, q string) ([]models.RawMaterial, error) {
	if strings.TrimSpace(q) == "" {
		return s.List(ctx)
	}
	return s.repo.List(ctx, store.Like(q, "name", "olfactory_profile"), store.OrderBy("name", false))
}

func (s *Service) ByType(ctx context.Context, kind models.MaterialType) ([]models.RawMaterial, error) {
	return s.repo.List(ctx, store.Where("type", "=", kind), store.OrderBy("name", false))
}

func (s *Service) ByIFRACategory(ctx context.Context, category string) ([]models.RawMaterial, error) {
	return s.repo.List(ctx, store.Where("ifra_category", "=", category), store.OrderBy("name", false))
}

func (s *Service) ByCostRange(ctx context.Context, lo, hi float64) ([]models.RawMaterial, error) {
	return s.repo.List(ctx, store.Between("cost", lo, hi), store.OrderBy("cost", false))
}

func (s *Service) ByVolatilityRange(ctx context.Context, lo, hi float64) ([]models.RawMaterial, error) {
	return s.repo.List(ctx, store.Between("volatility", lo, hi), store.OrderBy("volatility", true))
}

// ByOlfactoryProfile matches profile as a case-insensitive substring.
func (s *Service) ByOlfactoryProfile(ctx context.Context, profile string) ([]models.RawMaterial, error) {
	return s.repo.List(ctx, store.Like(profile, "olfactory_profile"), store.OrderBy("name", false))
}

// LowStock lists materials at or below their minimum stock level.
func (s *Service) LowStock(ctx context.Context) ([]*models.RawMaterial, error) {
	return store.Collect(store.Filter(s.repo.Query(ctx, store.OrderBy("name", false)), isLow))
}

// WithRestrictions lists materials carrying an IFRA limit.
func (s *Service) WithRestrictions(ctx context.Context) ([]*models.RawMaterial, error) {
	return store.Collect(store.Filter(s.repo.Query(ctx, store.OrderBy("name", false)), func(m *models.RawMaterial) bool {
		return m.IFRALimit != nil
	}))
}

// SafetyCompliant lists materials with no IFRA limit or a limit at most
// maxLimit.
func (s *Service) SafetyCompliant(ctx context.Context, maxLimit float64) ([]*models.RawMaterial, error) {
	return store.Collect(store.Filter(s.repo.Query(ctx, store.OrderBy("name", false)), func(m *models.RawMaterial) bool {
		return m.IFRALimit == nil || *m.IFRALimit <= maxLimit
	}))
}

// StockSummary counts live materials per stock status.
func (s *Service) StockSummary(ctx context.Context) (map[StockStatus]int, error) {
	summary := make(map[StockStatus]int)
	for m, err := range s.repo.Query(ctx) {
		if err != nil {
			return nil, err
		}
		summary[StatusOf(m)]++
	}
	return summary, nil
}

type RestockNeed struct {
	Material *models.RawMaterial `json:"material"`
	Quantity float64             `json:"quantity"`
}

// RestockNeeds is, for each low material, the amount that brings it back
// to its minimum.
func (s *Service) RestockNeeds(ctx context.Context) ([]RestockNeed, error) {
	low, err := s.LowStock(ctx)
	if err != nil {
		return nil, err
	}
	needs := make([]RestockNeed, 0, len(low))
	for _, m := range low {
		needs = append(needs, RestockNeed{Material: m, Quantity: *m.MinimumStockLevel - *m.StockLevel})
	}
	return needs, nil
}
