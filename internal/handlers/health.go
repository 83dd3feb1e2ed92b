package handlers

import (
	"net/http"
	"time"

	applog "almmr/internal/log"
)

type healthResponse struct {
	Status   string          `json:"status"`
	Time     time.Time       `json:"time"`
	Services map[string]bool `json:"services"`
}

// Health is a readiness handler for infrastructure probes. It reports which
// services are wired; the process is healthy whenever it can answer.
func Health(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "health check requested", "method", r.Method)
	d := current()
	resp := healthResponse{
		Status: "ok",
		Time:   time.Now().UTC(),
		Services: map[string]bool{
			"materials":     d.Materials != nil,
			"formulas":      d.Formulas != nil,
			"manufacturers": d.Manufacturers != nil,
			"perfumes":      d.Perfumes != nil,
			"backup":        d.Backup != nil,
			"suggestions":   d.Suggester != nil,
		},
	}
	writeJSON(w, http.StatusOK, resp)
}
