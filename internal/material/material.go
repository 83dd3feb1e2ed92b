// Package material manages the raw material inventory: stock levels,
// restocking and IFRA restrictions.
package material

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	applog "almmr/internal/log"
	"almmr/internal/store"
	"almmr/models"
)

type StockStatus string

const (
	StockUnknown StockStatus = "UNKNOWN"
	StockOut     StockStatus = "OUT_OF_STOCK"
	StockLow     StockStatus = "LOW_STOCK"
	StockIn      StockStatus = "IN_STOCK"
)

const compatibleSpread = 0.3

type Service struct {
	store *store.Store
	repo  *store.Repository[models.RawMaterial, *models.RawMaterial]
}

func NewService(s *store.Store) *Service {
	return &Service{store: s, repo: store.Materials(s)}
}

func (s *Service) Create(ctx context.Context, m *models.RawMaterial) (uint, error) {
	return s.repo.Insert(ctx, m)
}

func (s *Service) Update(ctx context.Context, m *models.RawMaterial) error {
	return s.repo.Update(ctx, m)
}

func (s *Service) Get(ctx context.Context, id uint) (*models.RawMaterial, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Archive(ctx context.Context, id uint) error {
	return s.repo.Archive(ctx, id)
}

// FindByName returns the live material called name, ignoring case, or nil.
func (s *Service) FindByName(ctx context.Context, name string) (*models.RawMaterial, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	matches, err := store.Collect(store.Filter(s.repo.Query(ctx, store.Like(name, "name")), func(m *models.RawMaterial) bool {
		return strings.EqualFold(strings.TrimSpace(m.Name), name)
	}))
	if err != nil || len(matches) == 0 {
		return nil, err
	}
	return matches[0], nil
}

// Upsert stores m under the live material sharing its name, or as a new
// material when there is none. The existing row keeps its id, creation
// stamp and stock history.
func (s *Service) Upsert(ctx context.Context, m *models.RawMaterial) (id uint, created bool, err error) {
	err = s.store.Atomic(ctx, func(ctx context.Context) error {
		existing, err := s.FindByName(ctx, m.Name)
		if err != nil {
			return err
		}
		if existing == nil {
			m.ID = 0
			id, err = s.repo.Insert(ctx, m)
			created = true
			return err
		}

		m.ID = existing.ID
		m.CreatedAt = existing.CreatedAt
		if m.StockLevel == nil {
			m.StockLevel = existing.StockLevel
		}
		if m.MinimumStockLevel == nil {
			m.MinimumStockLevel = existing.MinimumStockLevel
		}
		m.LastRestockDate = existing.LastRestockDate
		id = existing.ID
		return s.repo.Update(ctx, m)
	})
	if err != nil {
		return 0, false, err
	}
	return id, created, nil
}

// Restock adds qty to the stock level and stamps the restock date.
func (s *Service) Restock(ctx context.Context, id uint, qty float64) error {
	return s.store.Atomic(ctx, func(ctx context.Context) error {
		return s.restock(ctx, id, qty)
	})
}

// BatchRestock applies every update in one unit: either all land or none.
func (s *Service) BatchRestock(ctx context.Context, updates map[uint]float64) error {
	ids := make([]uint, 0, len(updates))
	for id := range updates {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return s.store.Atomic(ctx, func(ctx context.Context) error {
		for _, id := range ids {
			if err := s.restock(ctx, id, updates[id]); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) restock(ctx context.Context, id uint, qty float64) error {
	if math.IsNaN(qty) || math.IsInf(qty, 0) {
		return &store.ValidationError{Field: "quantity", Reason: "must be a finite number"}
	}

	m, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	level := qty
	if m.StockLevel != nil {
		level += *m.StockLevel
	}
	if level < 0 {
		return &store.ValidationError{Field: "stock_level", Reason: fmt.Sprintf("restock of %g would leave %g in stock", qty, level)}
	}

	now := s.store.Now()
	m.StockLevel = &level
	m.LastRestockDate = &now
	if err := s.repo.Update(ctx, m); err != nil {
		return err
	}

	applog.Debug(ctx, "material restocked", "material", id, "quantity", qty, "stock", level)
	return nil
}

// StatusOf buckets a material by stock. Both levels must be known for any
// answer but UNKNOWN.
func StatusOf(m *models.RawMaterial) StockStatus {
	switch {
	case m.StockLevel == nil || m.MinimumStockLevel == nil:
		return StockUnknown
	case *m.StockLevel <= 0:
		return StockOut
	case *m.StockLevel <= *m.MinimumStockLevel:
		return StockLow
	default:
		return StockIn
	}
}

func isLow(m *models.RawMaterial) bool {
	return m.StockLevel != nil && m.MinimumStockLevel != nil && *m.StockLevel <= *m.MinimumStockLevel
}

// Compatible reports whether two materials can sit together: they differ
// in type, either volatility is unknown, or their volatilities are within
// 0.3 of each other.
func Compatible(a, b *models.RawMaterial) bool {
	if a.Type != b.Type {
		return true
	}
	if a.Volatility == nil || b.Volatility == nil {
		return true
	}
	return math.Abs(*a.Volatility-*b.Volatility) <= compatibleSpread
}

func (s *Service) Compatible(ctx context.Context, first, second uint) (bool, error) {
	a, err := s.repo.Get(ctx, first)
	if err != nil {
		return false, err
	}
	b, err := s.repo.Get(ctx, second)
	if err != nil {
		return false, err
	}
	return Compatible(a, b), nil
}
