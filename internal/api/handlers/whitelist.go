package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vigil-dlp/vigil/internal/store"
)

// WhitelistService exposes whitelist management.
type WhitelistService struct {
	Whitelist *store.Whitelist
}

func NewWhitelistService(whitelist *store.Whitelist) *WhitelistService {
	return &WhitelistService{Whitelist: whitelist}
}

// GetWhitelistHandler lists all entries.
func GetWhitelistHandler(svc *WhitelistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := svc.Whitelist.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list whitelist")
			return
		}
		if entries == nil {
			entries = []store.WhitelistEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// AddWhitelistHandler creates an entry. Kind defaults to file when omitted.
func AddWhitelistHandler(svc *WhitelistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Path string `json:"path"`
			Kind string `json:"kind"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if req.Path == "" {
			writeError(w, http.StatusBadRequest, "path is required")
			return
		}
		if req.Kind == "" {
			req.Kind = store.KindFile
		}
		entry, err := svc.Whitelist.Add(req.Path, req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, entry)
	}
}

// RemoveWhitelistHandler deletes the entry named by ?path=.
func RemoveWhitelistHandler(svc *WhitelistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Query().Get("path")
		if path == "" {
			writeError(w, http.StatusBadRequest, "path query parameter is required")
			return
		}
		if err := svc.Whitelist.Remove(path); err != nil {
			if errors.Is(err, store.ErrWhitelistNotFound) {
				writeError(w, http.StatusNotFound, "Whitelist entry not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to remove entry")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
	}
}

// ClearWhitelistHandler removes every entry.
func ClearWhitelistHandler(svc *WhitelistService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Whitelist.Clear(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to clear whitelist")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
	}
}
