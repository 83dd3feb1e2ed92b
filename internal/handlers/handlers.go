package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"almmr/internal/ai"
	"almmr/internal/backup"
	"almmr/internal/formula"
	applog "almmr/internal/log"
	"almmr/internal/manufacturer"
	"almmr/internal/material"
	"almmr/internal/registration"
	"almmr/internal/store"
)

const maxBodyBytes = 8 << 20

// Dependencies are the services the API handlers call into.
type Dependencies struct {
	Materials     *material.Service
	Formulas      *formula.Service
	Manufacturers *manufacturer.Service
	Perfumes      *registration.Service
	Backup        *backup.Engine
	Suggester     ai.Suggester
}

var (
	depsMu sync.RWMutex
	deps   Dependencies
)

// Configure installs the shared dependencies used by the HTTP handlers.
func Configure(d Dependencies) {
	depsMu.Lock()
	defer depsMu.Unlock()
	deps = d
}

func current() Dependencies {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return deps
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		applog.Error(context.Background(), "failed to encode json response", "error", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func unavailable(w http.ResponseWriter, r *http.Request, service string) {
	applog.Debug(r.Context(), "request without configured service", "service", service, "path", r.URL.Path)
	writeJSONError(w, http.StatusServiceUnavailable, "service unavailable")
}

// writeServiceError maps store and backup errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, store.ErrValidation):
		writeJSONError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrReferenced):
		writeJSONError(w, http.StatusConflict, err.Error())
	case errors.Is(err, backup.ErrInvalidBackup), errors.Is(err, errBadRequest):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, context.Canceled):
		applog.Debug(r.Context(), "request cancelled", "path", r.URL.Path)
	default:
		applog.Error(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return badRequest("request body is empty")
		}
		return badRequest("decode body: %v", err)
	}
	return nil
}

func pathID(r *http.Request, name string) (uint, error) {
	raw := r.PathValue(name)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || value == 0 {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return uint(value), nil
}

// floatRange reads lo and hi query parameters. ok is false when neither is
// present.
func floatRange(r *http.Request, loKey, hiKey string) (lo, hi float64, ok bool, err error) {
	q := r.URL.Query()
	rawLo, rawHi := strings.TrimSpace(q.Get(loKey)), strings.TrimSpace(q.Get(hiKey))
	if rawLo == "" && rawHi == "" {
		return 0, 0, false, nil
	}
	if rawLo == "" || rawHi == "" {
		return 0, 0, false, badRequest("%s and %s must be given together", loKey, hiKey)
	}
	if lo, err = strconv.ParseFloat(rawLo, 64); err != nil {
		return 0, 0, false, badRequest("invalid %s %q", loKey, rawLo)
	}
	if hi, err = strconv.ParseFloat(rawHi, 64); err != nil {
		return 0, 0, false, badRequest("invalid %s %q", hiKey, rawHi)
	}
	return lo, hi, true, nil
}
