package material

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"almmr/internal/db"
	"almmr/internal/store"
	"almmr/models"
)

func ptr[T any](v T) *T { return &v }

func newTestService(t *testing.T) *Service {
	t.Helper()
	database, err := db.OpenMemory(t.Name())
	require.NoError(t, err)
	s, err := store.New(database)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return NewService(s)
}

func mustCreate(t *testing.T, svc *Service, m models.RawMaterial) uint {
	t.Helper()
	id, err := svc.Create(context.Background(), &m)
	require.NoError(t, err)
	return id
}

func TestStatusOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    models.RawMaterial
		want StockStatus
	}{
		{"unknown stock", models.RawMaterial{MinimumStockLevel: ptr(5.0)}, StockUnknown},
		{"unknown minimum", models.RawMaterial{StockLevel: ptr(5.0)}, StockUnknown},
		{"out", models.RawMaterial{StockLevel: ptr(0.0), MinimumStockLevel: ptr(5.0)}, StockOut},
		{"low at minimum", models.RawMaterial{StockLevel: ptr(5.0), MinimumStockLevel: ptr(5.0)}, StockLow},
		{"in", models.RawMaterial{StockLevel: ptr(6.0), MinimumStockLevel: ptr(5.0)}, StockIn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, StatusOf(&tt.m))
		})
	}
}

func TestCompatible(t *testing.T) {
	t.Parallel()

	top := &models.RawMaterial{Type: models.MaterialTopNote, Volatility: ptr(0.9)}
	base := &models.RawMaterial{Type: models.MaterialBaseNote, Volatility: ptr(0.1)}
	closeTop := &models.RawMaterial{Type: models.MaterialTopNote, Volatility: ptr(0.7)}
	farTop := &models.RawMaterial{Type: models.MaterialTopNote, Volatility: ptr(0.2)}
	unknownTop := &models.RawMaterial{Type: models.MaterialTopNote}

	assert.True(t, Compatible(top, base))
	assert.True(t, Compatible(top, closeTop))
	assert.False(t, Compatible(top, farTop))
	assert.True(t, Compatible(top, unknownTop))
}

func TestRestock(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	id := mustCreate(t, svc, models.RawMaterial{Name: "Bergamot", Type: models.MaterialTopNote, StockLevel: ptr(10.0)})
	require.NoError(t, svc.Restock(ctx, id, 15))

	m, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.InDelta(t, 25, *m.StockLevel, 1e-9)
	require.NotNil(t, m.LastRestockDate)

	fresh := mustCreate(t, svc, models.RawMaterial{Name: "Iris", Type: models.MaterialMiddleNote})
	require.NoError(t, svc.Restock(ctx, fresh, 3))
	m, err = svc.Get(ctx, fresh)
	require.NoError(t, err)
	assert.InDelta(t, 3, *m.StockLevel, 1e-9)

	require.ErrorIs(t, svc.Restock(ctx, id, -100), store.ErrValidation)
	require.ErrorIs(t, svc.Restock(ctx, 999, 1), store.ErrNotFound)
}

func TestBatchRestockIsAllOrNothing(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	a := mustCreate(t, svc, models.RawMaterial{Name: "A", Type: models.MaterialSolvent, StockLevel: ptr(1.0)})
	b := mustCreate(t, svc, models.RawMaterial{Name: "B", Type: models.MaterialSolvent, StockLevel: ptr(1.0)})

	err := svc.BatchRestock(ctx, map[uint]float64{a: 5, 999: 5})
	require.ErrorIs(t, err, store.ErrNotFound)
	m, err := svc.Get(ctx, a)
	require.NoError(t, err)
	assert.InDelta(t, 1, *m.StockLevel, 1e-9)

	require.NoError(t, svc.BatchRestock(ctx, map[uint]float64{a: 5, b: 2}))
	m, err = svc.Get(ctx, b)
	require.NoError(t, err)
	assert.InDelta(t, 3, *m.StockLevel, 1e-9)
}

func TestInventoryQueries(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	bergamot := mustCreate(t, svc, models.RawMaterial{
		Name: "Bergamot", Type: models.MaterialTopNote, OlfactoryProfile: "Bright citrus",
		Cost: ptr(0.4), Volatility: ptr(0.9), IFRACategory: ptr("4"), IFRALimit: ptr(0.4),
		StockLevel: ptr(250.0), MinimumStockLevel: ptr(100.0),
	})
	iris := mustCreate(t, svc, models.RawMaterial{
		Name: "Iris Butter", Type: models.MaterialMiddleNote, OlfactoryProfile: "Powdery floral",
		Cost: ptr(18.5), Volatility: ptr(0.45), IFRALimit: ptr(2.0),
		StockLevel: ptr(12.0), MinimumStockLevel: ptr(20.0),
	})
	mustCreate(t, svc, models.RawMaterial{
		Name: "Ambroxan", Type: models.MaterialBaseNote, OlfactoryProfile: "Ambery, citrus-dry",
		Cost: ptr(1.2), Volatility: ptr(0.1), StockLevel: ptr(0.0), MinimumStockLevel: ptr(5.0),
	})

	low, err := svc.LowStock(ctx)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Ambroxan", low[0].Name)

	needs, err := svc.RestockNeeds(ctx)
	require.NoError(t, err)
	require.Len(t, needs, 2)
	assert.InDelta(t, 8, needs[1].Quantity, 1e-9)
	assert.Equal(t, iris, needs[1].Material.ID)

	summary, err := svc.StockSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[StockStatus]int{StockIn: 1, StockLow: 1, StockOut: 1}, summary)

	restricted, err := svc.WithRestrictions(ctx)
	require.NoError(t, err)
	assert.Len(t, restricted, 2)

	compliant, err := svc.SafetyCompliant(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, compliant, 2)

	category, err := svc.ByIFRACategory(ctx, "4")
	require.NoError(t, err)
	require.Len(t, category, 1)
	assert.Equal(t, bergamot, category[0].ID)

	cheap, err := svc.ByCostRange(ctx, 0, 2)
	require.NoError(t, err)
	assert.Len(t, cheap, 2)

	volatile, err := svc.ByVolatilityRange(ctx, 0.4, 1)
	require.NoError(t, err)
	require.Len(t, volatile, 2)
	assert.Equal(t, "Bergamot", volatile[0].Name)

	citrus, err := svc.ByOlfactoryProfile(ctx, "CITRUS")
	require.NoError(t, err)
	assert.Len(t, citrus, 2)

	hits, err := svc.Search(ctx, "iris")
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	top, err := svc.ByType(ctx, models.MaterialTopNote)
	require.NoError(t, err)
	assert.Len(t, top, 1)

	found, err := svc.FindByName(ctx, "iris butter")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, iris, found.ID)

	missing, err := svc.FindByName(ctx, "Iris")
	require.NoError(t, err)
	assert.Nil(t, missing)

	ok, err := svc.Compatible(ctx, bergamot, iris)
	require.NoError(t, err)
	assert.True(t, ok)
	_, err = svc.Compatible(ctx, bergamot, 999)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertMatchesByName(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := context.Background()

	id, created, err := svc.Upsert(ctx, &models.RawMaterial{Name: "Hedione", Type: models.MaterialMiddleNote, StockLevel: ptr(10.0)})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.Upsert(ctx, &models.RawMaterial{Name: " hedione ", Type: models.MaterialMiddleNote, OlfactoryProfile: "jasmine, airy"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	m, err := svc.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "jasmine, airy", m.OlfactoryProfile)
	require.NotNil(t, m.StockLevel)
	assert.InDelta(t, 10, *m.StockLevel, 1e-9)

	_, _, err = svc.Upsert(ctx, &models.RawMaterial{Name: "Broken", Type: "HEART"})
	require.ErrorIs(t, err, store.ErrValidation)
}
