package mock

import (
	"context"
	"testing"

	"almmr/models"
)

func TestNewSeedsExpectedRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db, err := New(ctx)
	if err != nil {
		t.Fatalf("mock database initialization failed: %v", err)
	}

	var materials []models.RawMaterial
	if err := db.WithContext(ctx).Find(&materials).Error; err != nil {
		t.Fatalf("query materials: %v", err)
	}
	if len(materials) != 3 {
		t.Fatalf("expected 3 seeded materials, got %d", len(materials))
	}

	var formulas []models.Formula
	if err := db.WithContext(ctx).Find(&formulas).Error; err != nil {
		t.Fatalf("query formulas: %v", err)
	}
	if len(formulas) == 0 {
		t.Fatal("expected seeded formulas")
	}
	for _, formula := range formulas {
		if len(formula.AllNotes()) == 0 {
			t.Fatalf("formula %q has no notes", formula.Name)
		}
	}

	var manufacturer models.Manufacturer
	if err := db.WithContext(ctx).First(&manufacturer).Error; err != nil {
		t.Fatalf("query manufacturer: %v", err)
	}
	if !manufacturer.IsActive || len(manufacturer.ActiveProjects) != 1 {
		t.Fatalf("unexpected manufacturer seed: %+v", manufacturer)
	}

	var perfume models.RegisteredPerfume
	if err := db.WithContext(ctx).First(&perfume).Error; err != nil {
		t.Fatalf("query perfume: %v", err)
	}
	if perfume.FormulaID == 0 || perfume.ManufacturerID != manufacturer.ID {
		t.Fatalf("perfume references not wired: %+v", perfume)
	}
}

func TestNewReturnsIndependentDatabases(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	first, err := New(ctx)
	if err != nil {
		t.Fatalf("first New: %v", err)
	}
	second, err := New(ctx)
	if err != nil {
		t.Fatalf("second New: %v", err)
	}

	if err := first.WithContext(ctx).Where("1 = 1").Delete(&models.RegisteredPerfume{}).Error; err != nil {
		t.Fatalf("delete perfumes: %v", err)
	}

	var count int64
	if err := second.WithContext(ctx).Model(&models.RegisteredPerfume{}).Count(&count).Error; err != nil {
		t.Fatalf("count perfumes: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected second database untouched, got %d perfumes", count)
	}
}
