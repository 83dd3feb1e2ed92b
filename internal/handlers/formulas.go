package handlers

import (
	"net/http"
	"strings"

	"almmr/models"
)

type statusRequest struct {
	Status string `json:"status"`
}

// ListFormulas serves GET /api/formulas, filtered by q, status or an
// alcohol range (min_alcohol, max_alcohol).
func ListFormulas(w http.ResponseWriter, r *http.Request) {
	svc := current().Formulas
	if svc == nil {
		unavailable(w, r, "formulas")
		return
	}

	lo, hi, byAlcohol, err := floatRange(r, "min_alcohol", "max_alcohol")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var out []models.Formula
	q := r.URL.Query()
	switch {
	case q.Get("status") != "":
		out, err = svc.ByStatus(r.Context(), models.FormulaStatus(strings.ToUpper(q.Get("status"))))
	case byAlcohol:
		out, err = svc.ByAlcoholRange(r.Context(), lo, hi)
	default:
		out, err = svc.Search(r.Context(), q.Get("q"))
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateFormula stores the body as the next version of its name.
func CreateFormula(w http.ResponseWriter, r *http.Request) {
	svc := current().Formulas
	if svc == nil {
		unavailable(w, r, "formulas")
		return
	}

	var f models.Formula
	if err := decodeJSON(w, r, &f); err != nil {
		writeServiceError(w, r, err)
		return
	}
	id, err := svc.CreateVersion(r.Context(), &f)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondFormula(w, r, http.StatusCreated, id)
}

func GetFormula(w http.ResponseWriter, r *http.Request) {
	if current().Formulas == nil {
		unavailable(w, r, "formulas")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondFormula(w, r, http.StatusOK, id)
}

func UpdateFormula(w http.ResponseWriter, r *http.Request) {
	svc := current().Formulas
	if svc == nil {
		unavailable(w, r, "formulas")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	var f models.Formula
	if err := decodeJSON(w, r, &f); err != nil {
		writeServiceError(w, r, err)
		return
	}
	f.ID = id
	if err := svc.Update(r.Context(), &f); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondFormula(w, r, http.StatusOK, id)
}

func ArchiveFormula(w http.ResponseWriter, r *http.Request) {
	svc := current().Formulas
	if svc == nil {
		unavailable(w, r, "formulas")
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

// DuplicateFormula copies a formula into the next version of its name.
func DuplicateFormula(w http.ResponseWriter, r *http.Request) {
	svc := current().Formulas
	if svc == nil {
		unavailable(w, r, "formulas")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	newID, err := svc.Duplicate(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondFormula(w, r, http.StatusCreated, newID)
}

// CopyFormula copies a formula under a fresh "(Copy N)" name.
func CopyFormula(w http.ResponseWriter, r *http.Request) {
	svc := current().Formulas
	if svc == nil {
		unavailable(w, r, "formulas")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	newID, err := svc.CopyAs(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondFormula(w, r, http.StatusCreated, newID)
}

func SetFormulaStatus(w http.ResponseWriter, r *http.Request) {
	svc := current().Formulas
	if svc == nil {
		unavailable(w, r, "formulas")
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
	if err := svc.SetStatus(r.Context(), id, models.FormulaStatus(strings.ToUpper(strings.TrimSpace(req.Status)))); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respondFormula(w, r, http.StatusOK, id)
}

// FormulaAlcohol reports the weighted concentration of a formula's notes.
func FormulaAlcohol(w http.ResponseWriter, r *http.Request) {
	svc := current().Formulas
	if svc == nil {
		unavailable(w, r, "formulas")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	pct, err := svc.ComputeAlcoholPercentage(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "alcohol_percentage": pct})
}

// FormulaVersions serves GET /api/formulas/versions?name=.
func FormulaVersions(w http.ResponseWriter, r *http.Request) {
	svc := current().Formulas
	if svc == nil {
		unavailable(w, r, "formulas")
		return
	}
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	if name == "" {
		writeServiceError(w, r, badRequest("name is required"))
		return
	}
	versions, err := svc.Versions(r.Context(), name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func respondFormula(w http.ResponseWriter, r *http.Request, status int, id uint) {
	f, err := current().Formulas.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, status, f)
}
