package handlers

import (
	"context"
	"net/http"

	applog "almmr/internal/log"
)

type route struct {
	pattern string
	handler http.HandlerFunc
}

var apiRoutes = []route{
	{"GET /api/materials", ListMaterials},
	{"POST /api/materials", CreateMaterial},
	{"GET /api/materials/low-stock", LowStockMaterials},
	{"GET /api/materials/stock", MaterialStock},
	{"GET /api/materials/{id}", GetMaterial},
	{"PUT /api/materials/{id}", UpdateMaterial},
	{"DELETE /api/materials/{id}", ArchiveMaterial},
	{"POST /api/materials/{id}/restock", RestockMaterial},

	{"GET /api/formulas", ListFormulas},
	{"POST /api/formulas", CreateFormula},
	{"GET /api/formulas/versions", FormulaVersions},
	{"GET /api/formulas/{id}", GetFormula},
	{"PUT /api/formulas/{id}", UpdateFormula},
	{"DELETE /api/formulas/{id}", ArchiveFormula},
	{"POST /api/formulas/{id}/duplicate", DuplicateFormula},
	{"POST /api/formulas/{id}/copy", CopyFormula},
	{"PUT /api/formulas/{id}/status", SetFormulaStatus},
	{"GET /api/formulas/{id}/alcohol", FormulaAlcohol},

	{"GET /api/manufacturers", ListManufacturers},
	{"POST /api/manufacturers", CreateManufacturer},
	{"GET /api/manufacturers/averages", ManufacturerAverages},
	{"GET /api/manufacturers/{id}", GetManufacturer},
	{"PUT /api/manufacturers/{id}", UpdateManufacturer},
	{"DELETE /api/manufacturers/{id}", DeactivateManufacturer},
	{"POST /api/manufacturers/{id}/projects", AssignProject},
	{"PUT /api/manufacturers/{id}/projects/{formulaID}", UpdateProjectStatus},
	{"PUT /api/manufacturers/{id}/ratings", UpdateRatings},
	{"GET /api/manufacturers/{id}/metrics", ManufacturerMetrics},

	{"GET /api/perfumes", ListPerfumes},
	{"POST /api/perfumes", RegisterPerfume},
	{"GET /api/perfumes/analytics", PerfumeAnalytics},
	{"GET /api/perfumes/batches/{prefix}", PerfumeBatchReport},
	{"GET /api/perfumes/{id}", GetPerfume},
	{"PUT /api/perfumes/{id}", UpdatePerfume},
	{"DELETE /api/perfumes/{id}", ArchivePerfume},
	{"PUT /api/perfumes/{id}/status", SetPerfumeStatus},

	{"POST /api/backup", CreateBackup},
	{"GET /api/backup", ListBackups},
	{"POST /api/restore", Restore},
	{"GET /api/integrity", Integrity},

	{"POST /api/suggestions", Suggestions},
}

// Middleware wraps the handler registered for pattern.
type Middleware func(pattern string, next http.Handler) http.Handler

// Register adds the JSON API routes to mux, applying middleware in order.
func Register(mux *http.ServeMux, middleware ...Middleware) {
	for _, rt := range apiRoutes {
		var h http.Handler = rt.handler
		for _, mw := range middleware {
			h = mw(rt.pattern, h)
		}
		mux.Handle(rt.pattern, h)
		applog.Debug(context.Background(), "route registered", "pattern", rt.pattern)
	}
}
