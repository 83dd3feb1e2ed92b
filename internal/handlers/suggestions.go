package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"almmr/internal/ai"
	"almmr/internal/formula"
	applog "almmr/internal/log"
	"almmr/models"
)

const briefKeywordLimit = 8

type suggestionRequest struct {
	Keywords  []string `json:"keywords"`
	Brief     string   `json:"brief,omitempty"`
	FormulaID uint     `json:"formula_id,omitempty"`
	Apply     bool     `json:"apply,omitempty"`
}

type suggestionResponse struct {
	models.Recommendation
	Keywords []string        `json:"keywords"`
	Applied  int             `json:"applied,omitempty"`
	Formula  *models.Formula `json:"formula,omitempty"`
}

// Suggestions proposes formula notes for mood keywords. Keywords may also be
// drawn from a brief, sent as text in JSON or as a multipart "brief" file
// (PDF or plain text). With apply and formula_id set, the proposals are
// added to that formula.
func Suggestions(w http.ResponseWriter, r *http.Request) {
	d := current()
	if d.Suggester == nil || d.Materials == nil {
		unavailable(w, r, "suggestions")
		return
	}

	req, err := readSuggestionRequest(w, r)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	keywords := req.Keywords
	if strings.TrimSpace(req.Brief) != "" {
		keywords = append(keywords, ai.KeywordsFromText(req.Brief, briefKeywordLimit)...)
	}
	if len(keywords) == 0 {
		writeServiceError(w, r, badRequest("keywords or a brief are required"))
		return
	}

	materials, err := d.Materials.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	rec, err := d.Suggester.Suggest(r.Context(), keywords, materials)
	if err != nil {
		applog.Warn(r.Context(), "suggestion failed", "error", err)
		writeJSONError(w, http.StatusBadGateway, err.Error())
		return
	}

	resp := suggestionResponse{Recommendation: rec, Keywords: keywords}
	if req.Apply && req.FormulaID != 0 {
		if d.Formulas == nil {
			unavailable(w, r, "formulas")
			return
		}
		f, err := d.Formulas.Get(r.Context(), req.FormulaID)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		resp.Applied = formula.ApplySuggestions(f, rec.SuggestedNotes)
		if resp.Applied > 0 {
			if err := d.Formulas.Update(r.Context(), f); err != nil {
				writeServiceError(w, r, err)
				return
			}
		}
		resp.Formula = f
	}
	writeJSON(w, http.StatusOK, resp)
}

func readSuggestionRequest(w http.ResponseWriter, r *http.Request) (suggestionRequest, error) {
	var req suggestionRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		err := decodeJSON(w, r, &req)
		return req, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseMultipartForm(maxBodyBytes); err != nil {
		return req, badRequest("parse form: %v", err)
	}
	for _, kw := range strings.Split(r.FormValue("keywords"), ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			req.Keywords = append(req.Keywords, kw)
		}
	}
	if raw := r.FormValue("formula_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return req, badRequest("invalid formula_id %q", raw)
		}
		req.FormulaID = uint(id)
	}
	req.Apply, _ = strconv.ParseBool(r.FormValue("apply"))
	req.Brief = r.FormValue("brief")

	file, _, err := r.FormFile("brief")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return req, badRequest("read brief: %v", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return req, badRequest("read brief: %v", err)
	}
	text, err := ai.ExtractDocumentText(data)
	if err != nil {
		return req, badRequest("brief: %v", err)
	}
	req.Brief = text
	return req, nil
}
