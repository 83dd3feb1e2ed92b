package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"almmr/models"
)

// ListPerfumes serves GET /api/perfumes. Filters: q, status, type, family,
// market, manufacturer (in production there) and min_price/max_price.
func ListPerfumes(w http.ResponseWriter, r *http.Request) {
	svc := current().Perfumes
	if svc == nil {
		unavailable(w, r, "perfumes")
		return
	}

	lo, hi, byPrice, err := floatRange(r, "min_price", "max_price")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	q := r.URL.Query()
	var out []models.RegisteredPerfume
	switch {
	case q.Get("status") != "":
		out, err = svc.ByStatus(r.Context(), models.PerfumeStatus(strings.ToUpper(q.Get("status"))))
	case q.Get("type") != "":
		out, err = svc.ByType(r.Context(), models.PerfumeType(strings.ToUpper(q.Get("type"))))
	case q.Get("family") != "":
		out, err = svc.ByScentFamily(r.Context(), q.Get("family"))
	case q.Get("market") != "":
		out, err = svc.ByTargetMarket(r.Context(), q.Get("market"))
	case q.Get("manufacturer") != "":
		id, convErr := strconv.ParseUint(q.Get("manufacturer"), 10, 64)
		if convErr != nil {
			err = badRequest("invalid manufacturer %q", q.Get("manufacturer"))
			break
		}
		out, err = svc.InProductionByManufacturer(r.Context(), uint(id))
	case byPrice:
		out, err = svc.ByPriceRange(r.Context(), lo, hi)
	default:
		out, err = svc.Search(r.Context(), q.Get("q"))
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// RegisterPerfume registers the body with freshly generated barcode and QR
// identifiers.
func RegisterPerfume(w http.ResponseWriter, r *http.Request) {
	svc := current().Perfumes
	if svc == nil {
		unavailable(w, r, "perfumes")
		return
	}

	var p models.RegisteredPerfume
	if err := decodeJSON(w, r, &p); err != nil {
		writeServiceError(w, r, err)
		return
	}
	p.ID = 0
	id, err := svc.Register(r.Context(), &p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondPerfume(w, r, http.StatusCreated, id)
}

func GetPerfume(w http.ResponseWriter, r *http.Request) {
	if current().Perfumes == nil {
		unavailable(w, r, "perfumes")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondPerfume(w, r, http.StatusOK, id)
}

func UpdatePerfume(w http.ResponseWriter, r *http.Request) {
	svc := current().Perfumes
	if svc == nil {
		unavailable(w, r, "perfumes")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var p models.RegisteredPerfume
	if err := decodeJSON(w, r, &p); err != nil {
		writeServiceError(w, r, err)
		return
	}
	p.ID = id
	if err := svc.Update(r.Context(), &p); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondPerfume(w, r, http.StatusOK, id)
}

func ArchivePerfume(w http.ResponseWriter, r *http.Request) {
	svc := current().Perfumes
	if svc == nil {
		unavailable(w, r, "perfumes")
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

func SetPerfumeStatus(w http.ResponseWriter, r *http.Request) {
	svc := current().Perfumes
	if svc == nil {
		unavailable(w, r, "perfumes")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := svc.SetStatus(r.Context(), id, models.PerfumeStatus(strings.ToUpper(strings.TrimSpace(req.Status)))); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondPerfume(w, r, http.StatusOK, id)
}

func PerfumeAnalytics(w http.ResponseWriter, r *http.Request) {
	svc := current().Perfumes
	if svc == nil {
		unavailable(w, r, "perfumes")
		return
	}
	analytics, err := svc.MarketAnalytics(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

// PerfumeBatchReport serves GET /api/perfumes/batches/{prefix}.
func PerfumeBatchReport(w http.ResponseWriter, r *http.Request) {
	svc := current().Perfumes
	if svc == nil {
		unavailable(w, r, "perfumes")
		return
	}
	report, err := svc.BatchReport(r.Context(), r.PathValue("prefix"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func respondPerfume(w http.ResponseWriter, r *http.Request, status int, id uint) {
	p, err := current().Perfumes.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, p)
}
