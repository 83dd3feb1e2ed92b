package handlers

import (
	"net/http"
	"strings"

	applog "almmr/internal/log"
	"almmr/models"
)

type restockRequest struct {
	Quantity float64 `json:"quantity"`
}

// ListMaterials serves GET /api/materials. Filters: q, type, ifra_category,
// min_cost/max_cost and min_volatility/max_volatility.
func ListMaterials(w http.ResponseWriter, r *http.Request) {
	svc := current().Materials
	if svc == nil {
		unavailable(w, r, "materials")
		return
	}

	q := r.URL.Query()
	var (
		out any
		err error
	)
	costLo, costHi, byCost, rangeErr := floatRange(r, "min_cost", "max_cost")
	if rangeErr != nil {
		writeServiceError(w, r, rangeErr)
		return
	}
	volLo, volHi, byVolatility, rangeErr := floatRange(r, "min_volatility", "max_volatility")
	if rangeErr != nil {
		writeServiceError(w, r, rangeErr)
		return
	}

	switch {
	case q.Get("type") != "":
		out, err = svc.ByType(r.Context(), models.MaterialType(strings.ToUpper(q.Get("type"))))
	case q.Get("ifra_category") != "":
		out, err = svc.ByIFRACategory(r.Context(), q.Get("ifra_category"))
	case q.Get("profile") != "":
		out, err = svc.ByOlfactoryProfile(r.Context(), q.Get("profile"))
	case byCost:
		out, err = svc.ByCostRange(r.Context(), costLo, costHi)
	case byVolatility:
		out, err = svc.ByVolatilityRange(r.Context(), volLo, volHi)
	default:
		out, err = svc.Search(r.Context(), q.Get("q"))
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func CreateMaterial(w http.ResponseWriter, r *http.Request) {
	svc := current().Materials
	if svc == nil {
		unavailable(w, r, "materials")
		return
	}

	var m models.RawMaterial
	if err := decodeJSON(w, r, &m); err != nil {
		writeServiceError(w, r, err)
		return
	}
	m.ID = 0
	id, err := svc.Create(r.Context(), &m)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	applog.Info(r.Context(), "material created", "material", id)
	writeJSON(w, http.StatusCreated, m)
}

func GetMaterial(w http.ResponseWriter, r *http.Request) {
	svc := current().Materials
	if svc == nil {
		unavailable(w, r, "materials")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	m, err := svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func UpdateMaterial(w http.ResponseWriter, r *http.Request) {
	svc := current().Materials
	if svc == nil {
		unavailable(w, r, "materials")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var m models.RawMaterial
	if err := decodeJSON(w, r, &m); err != nil {
		writeServiceError(w, r, err)
		return
	}
	m.ID = id
	if err := svc.Update(r.Context(), &m); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func ArchiveMaterial(w http.ResponseWriter, r *http.Request) {
	svc := current().Materials
	if svc == nil {
		unavailable(w, r, "materials")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := svc.Archive(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func RestockMaterial(w http.ResponseWriter, r *http.Request) {
	svc := current().Materials
	if svc == nil {
		unavailable(w, r, "materials")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req restockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := svc.Restock(r.Context(), id, req.Quantity); err != nil {
		writeServiceError(w, r, err)
		return
	}
	m, err := svc.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func LowStockMaterials(w http.ResponseWriter, r *http.Request) {
	svc := current().Materials
	if svc == nil {
		unavailable(w, r, "materials")
		return
	}
	low, err := svc.LowStock(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, low)
}

// MaterialStock serves the stock summary together with the restock list.
func MaterialStock(w http.ResponseWriter, r *http.Request) {
	svc := current().Materials
	if svc == nil {
		unavailable(w, r, "materials")
		return
	}
	summary, err := svc.StockSummary(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	needs, err := svc.RestockNeeds(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary, "restock": needs})
}
