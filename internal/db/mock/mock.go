package mock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"almmr/internal/db"
	"almmr/internal/formula"
	applog "almmr/internal/log"
	"almmr/models"
)

var instances atomic.Int64

// New returns an in-memory sqlite database seeded with representative atelier data.
func New(ctx context.Context) (*gorm.DB, error) {
	applog.Debug(ctx, "initialising mock database")

	database, err := db.OpenMemory(fmt.Sprintf("almmr-mock-%d", instances.Add(1)))
	if err != nil {
		return nil, err
	}

	if err := seed(ctx, database); err != nil {
		return nil, err
	}

	applog.Debug(ctx, "mock database ready")
	return database, nil
}

func floatPtr(v float64) *float64 { return &v }
func stringPtr(v string) *string  { return &v }

func seed(ctx context.Context, database *gorm.DB) error {
	applog.Debug(ctx, "seeding mock database")

	now := time.Now().UTC()
	restocked := now.AddDate(0, 0, -12)

	bergamot := models.RawMaterial{
		Name:              "Bergamot Essential",
		Type:              models.MaterialTopNote,
		OlfactoryProfile:  "Cold-pressed citrus brightness harvested from Calabria groves.",
		SupplierLinks:     datatypes.JSONSlice[string]{"https://suppliers.example/bergamot"},
		Cost:              floatPtr(0.42),
		Volatility:        floatPtr(0.9),
		IFRACategory:      stringPtr("4"),
		IFRALimit:         floatPtr(0.4),
		StockLevel:        floatPtr(250),
		MinimumStockLevel: floatPtr(100),
		LastRestockDate:   &restocked,
	}

	iris := models.RawMaterial{
		Name:              "Iris Pallida Butter",
		Type:              models.MaterialMiddleNote,
		OlfactoryProfile:  "Velvety floral heart with powdery texture and persistence.",
		Cost:              floatPtr(18.5),
		Volatility:        floatPtr(0.45),
		StockLevel:        floatPtr(12),
		MinimumStockLevel: floatPtr(20),
	}

	ambroxan := models.RawMaterial{
		Name:             "Ambroxan",
		Type:             models.MaterialBaseNote,
		OlfactoryProfile: "Modern ambergris profile delivering warmth and diffusion.",
		IsSynthetic:      true,
		Cost:             floatPtr(1.2),
		Volatility:       floatPtr(0.1),
		StockLevel:       floatPtr(0),
	}

	materials := []*models.RawMaterial{&bergamot, &iris, &ambroxan}
	for _, material := range materials {
		if err := database.WithContext(ctx).Create(material).Error; err != nil {
			return err
		}
	}

	aurum := models.Formula{
		Name:        "Aurum Nocturne",
		Description: "Resinous amber core balanced with luminous citrus facets.",
		Perfumer:    "Avery Studio",
		Version:     1,
		TopNotes:    datatypes.JSONSlice[models.Note]{{MaterialID: bergamot.ID, Quantity: 18, Concentration: 0.2}},
		BaseNotes:   datatypes.JSONSlice[models.Note]{{MaterialID: ambroxan.ID, Quantity: 12.5, Concentration: 0.1}},
		Status:      models.FormulaApproved,
	}
	aurum.AlcoholPercentage = formula.WeightedConcentration(aurum.AllNotes())

	lumen := models.Formula{
		Name:        "Lumen Céleste",
		Description: "Radiant iris halo with cool musk trails for longevity.",
		Perfumer:    "Avery Studio",
		Version:     1,
		MiddleNotes: datatypes.JSONSlice[models.Note]{{MaterialID: iris.ID, Quantity: 9.2, Concentration: 0.05}},
		BaseNotes:   datatypes.JSONSlice[models.Note]{{MaterialID: ambroxan.ID, Quantity: 4, Concentration: 0.1}},
		Status:      models.FormulaDraft,
	}
	lumen.AlcoholPercentage = formula.WeightedConcentration(lumen.AllNotes())

	for _, f := range []*models.Formula{&aurum, &lumen} {
		f.CreationDate = now
		f.LastModified = now
		if err := database.WithContext(ctx).Create(f).Error; err != nil {
			return err
		}
	}

	expected := now.AddDate(0, 1, 0)
	atelier := models.Manufacturer{
		CompanyName:            "Maison Grasse Liquids",
		ContactPerson:          "Camille Roux",
		Email:                  "production@grasse-liquids.example",
		Certifications:         datatypes.JSONSlice[string]{"GMP", "ISO 22716"},
		QualityScore:           4.2,
		CommunicationScore:     3.8,
		ReliabilityScore:       4.5,
		CostEffectivenessScore: 3.9,
		CompletedProjects:      6,
		AverageResponseTime:    2,
		IsActive:               true,
		ActiveProjects: datatypes.JSONSlice[models.ProjectStatus]{{
			FormulaID:              lumen.ID,
			Status:                 models.StageSampleTesting,
			StartDate:              now.AddDate(0, 0, -20),
			ExpectedCompletionDate: &expected,
			SampleReceived:         true,
		}},
	}
	if err := database.WithContext(ctx).Create(&atelier).Error; err != nil {
		return err
	}

	barcode := now.Format("060102") + "-EAU-5f2c1a"
	qr := "ALMMR-7b0c9a52-3f7e-4a41-9a8e-2e6d2d1c9f10"
	perfume := models.RegisteredPerfume{
		Name:              "Aurum Nocturne EDP",
		FormulaID:         aurum.ID,
		ManufacturerID:    atelier.ID,
		RegistrationDate:  now,
		Type:              models.PerfumeEauDeParfum,
		AlcoholPercentage: 82,
		BottleType:        "Faceted flacon",
		BottleSize:        50,
		BatchNumber:       "AN-2401",
		ScentFamily:       "Amber",
		Longevity:         9,
		Sillage:           models.SillageStrong,
		TargetMarket:      "Niche",
		PricePoint:        145,
		Barcode:           &barcode,
		QRCode:            &qr,
		Status:            models.PerfumeAvailable,
	}
	if err := database.WithContext(ctx).Create(&perfume).Error; err != nil {
		return err
	}

	return nil
}
