package handlers

import (
	"net/http"
	"strings"
	"time"

	"almmr/internal/backup"
	applog "almmr/internal/log"
)

type backupObject struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}

type backupListResponse struct {
	Backups     []backupObject `json:"backups"`
	LastBackup  *backup.Event  `json:"last_backup"`
	LastRestore *backup.Event  `json:"last_restore"`
}

type restoreResponse struct {
	backup.RestoreResult
	Error string `json:"error,omitempty"`
}

type integrityResponse struct {
	backup.IntegrityResult
	Error string `json:"error,omitempty"`
}

// CreateBackup writes a snapshot of every collection to the vault.
func CreateBackup(w http.ResponseWriter, r *http.Request) {
	engine := current().Backup
	if engine == nil {
		unavailable(w, r, "backup")
		return
	}
	info, err := engine.WriteBackup(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, info)
}

func ListBackups(w http.ResponseWriter, r *http.Request) {
	engine := current().Backup
	if engine == nil {
		unavailable(w, r, "backup")
		return
	}

	objects, err := engine.Backups(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	resp := backupListResponse{Backups: make([]backupObject, 0, len(objects))}
	for _, obj := range objects {
		resp.Backups = append(resp.Backups, backupObject{Key: obj.Key, Size: obj.Size, LastModified: obj.LastModified})
	}
	if resp.LastBackup, err = engine.LastBackup(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if resp.LastRestore, err = engine.LastRestore(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Restore replaces the store contents. With ?key= the snapshot is read from
// the vault, otherwise the request body is the snapshot document. A refused
// snapshot answers 422 and leaves the store untouched.
func Restore(w http.ResponseWriter, r *http.Request) {
	engine := current().Backup
	if engine == nil {
		unavailable(w, r, "backup")
		return
	}

	var result backup.RestoreResult
	if key := strings.TrimSpace(r.URL.Query().Get("key")); key != "" {
		result = engine.RestoreFrom(r.Context(), key)
	} else {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes*8)
		result = engine.RestoreReader(r.Context(), r.Body, "upload")
	}

	resp := restoreResponse{RestoreResult: result}
	status := http.StatusOK
	if !result.OK() {
		status = http.StatusUnprocessableEntity
		if result.Err != nil {
			resp.Error = result.Err.Error()
		}
	}
	applog.Info(r.Context(), "restore requested", "status", result.Status, "source", result.Source)
	writeJSON(w, status, resp)
}

// Integrity reports broken references between live records.
func Integrity(w http.ResponseWriter, r *http.Request) {
	engine := current().Backup
	if engine == nil {
		unavailable(w, r, "backup")
		return
	}

	result := engine.VerifyIntegrity(r.Context())
	resp := integrityResponse{IntegrityResult: result}
	status := http.StatusOK
	if result.Status == backup.IntegrityError {
		status = http.StatusInternalServerError
		if result.Err != nil {
			resp.Error = result.Err.Error()
		}
	}
	writeJSON(w, status, resp)
}
