package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"almmr/internal/manufacturer"
	"almmr/models"
)

type assignProjectRequest struct {
	FormulaID              uint       `json:"formula_id"`
	ExpectedCompletionDate *time.Time `json:"expected_completion_date,omitempty"`
}

type projectStatusRequest struct {
	Status string  `json:"status"`
	Notes  *string `json:"notes,omitempty"`
}

// ListManufacturers serves GET /api/manufacturers. Filters: q, certification,
// stage, min_quality, min_reliability, max_response_days and in_production.
func ListManufacturers(w http.ResponseWriter, r *http.Request) {
	svc := current().Manufacturers
	if svc == nil {
		unavailable(w, r, "manufacturers")
		return
	}

	q := r.URL.Query()
	var (
		out any
		err error
	)
	switch {
	case q.Get("certification") != "":
		out, err = svc.ByCertification(r.Context(), q.Get("certification"))
	case q.Get("stage") != "":
		out, err = svc.ByProjectStage(r.Context(), models.ProductionStage(strings.ToUpper(q.Get("stage"))))
	case q.Get("in_production") == "true":
		out, err = svc.InProduction(r.Context())
	case q.Get("min_quality") != "":
		var minimum float64
		if minimum, err = strconv.ParseFloat(q.Get("min_quality"), 64); err != nil {
			err = badRequest("invalid min_quality %q", q.Get("min_quality"))
			break
		}
		out, err = svc.TopPerforming(r.Context(), minimum)
	case q.Get("min_reliability") != "":
		var minimum float64
		if minimum, err = strconv.ParseFloat(q.Get("min_reliability"), 64); err != nil {
			err = badRequest("invalid min_reliability %q", q.Get("min_reliability"))
			break
		}
		out, err = svc.Reliable(r.Context(), minimum)
	case q.Get("max_response_days") != "":
		var days int
		if days, err = strconv.Atoi(q.Get("max_response_days")); err != nil {
			err = badRequest("invalid max_response_days %q", q.Get("max_response_days"))
			break
		}
		out, err = svc.QuickResponders(r.Context(), days)
	default:
		out, err = svc.Search(r.Context(), q.Get("q"))
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func CreateManufacturer(w http.ResponseWriter, r *http.Request) {
	svc := current().Manufacturers
	if svc == nil {
		unavailable(w, r, "manufacturers")
		return
	}

	var m models.Manufacturer
	if err := decodeJSON(w, r, &m); err != nil {
		writeServiceError(w, r, err)
		return
	}
	m.ID = 0
	if _, err := svc.Create(r.Context(), &m); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

func GetManufacturer(w http.ResponseWriter, r *http.Request) {
	if current().Manufacturers == nil {
		unavailable(w, r, "manufacturers")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondManufacturer(w, r, id)
}

func UpdateManufacturer(w http.ResponseWriter, r *http.Request) {
	svc := current().Manufacturers
	if svc == nil {
		unavailable(w, r, "manufacturers")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var m models.Manufacturer
	if err := decodeJSON(w, r, &m); err != nil {
		writeServiceError(w, r, err)
		return
	}
	m.ID = id
	if err := svc.Update(r.Context(), &m); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondManufacturer(w, r, id)
}

// DeactivateManufacturer answers 409 while live perfumes still name the
// manufacturer.
func DeactivateManufacturer(w http.ResponseWriter, r *http.Request) {
	svc := current().Manufacturers
	if svc == nil {
		unavailable(w, r, "manufacturers")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := svc.Deactivate(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func AssignProject(w http.ResponseWriter, r *http.Request) {
	svc := current().Manufacturers
	if svc == nil {
		unavailable(w, r, "manufacturers")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req assignProjectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.FormulaID == 0 {
		writeServiceError(w, r, badRequest("formula_id is required"))
		return
	}
	if err := svc.AssignProject(r.Context(), id, req.FormulaID, req.ExpectedCompletionDate); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondManufacturer(w, r, id)
}

func UpdateProjectStatus(w http.ResponseWriter, r *http.Request) {
	svc := current().Manufacturers
	if svc == nil {
		unavailable(w, r, "manufacturers")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	formulaID, err := pathID(r, "formulaID")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req projectStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	stage := models.ProductionStage(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err := svc.UpdateProjectStatus(r.Context(), id, formulaID, stage, req.Notes); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondManufacturer(w, r, id)
}

func UpdateRatings(w http.ResponseWriter, r *http.Request) {
	svc := current().Manufacturers
	if svc == nil {
		unavailable(w, r, "manufacturers")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var req manufacturer.Ratings
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := svc.UpdateRatings(r.Context(), id, req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondManufacturer(w, r, id)
}

// ManufacturerMetrics reports zero metrics for an unknown manufacturer.
func ManufacturerMetrics(w http.ResponseWriter, r *http.Request) {
	svc := current().Manufacturers
	if svc == nil {
		unavailable(w, r, "manufacturers")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	metrics, err := svc.PerformanceMetrics(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// ManufacturerAverages serves the fleet-wide averages.
func ManufacturerAverages(w http.ResponseWriter, r *http.Request) {
	svc := current().Manufacturers
	if svc == nil {
		unavailable(w, r, "manufacturers")
		return
	}
	completed, err := svc.AverageCompletedProjects(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rating, err := svc.AverageOverallRating(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]float64{
		"average_completed_projects": completed,
		"average_overall_rating":     rating,
	})
}

func respondManufacturer(w http.ResponseWriter, r *http.Request, id uint) {
	m, err := current().Manufacturers.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}
