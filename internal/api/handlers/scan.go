package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/vigil-dlp/vigil/internal/watch"
)

// ScanService triggers manual pipeline runs over existing files.
type ScanService struct {
	Pipeline   *watch.Pipeline
	WatchPaths []string
}

func NewScanService(pipeline *watch.Pipeline, watchPaths []string) *ScanService {
	return &ScanService{Pipeline: pipeline, WatchPaths: watchPaths}
}

// TriggerScanHandler runs the full pipeline over the requested root, or over
// every watched root when none is given. The root must fall under a watched
// path.
func TriggerScanHandler(svc *ScanService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Root string `json:"root"`
		}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, "Invalid request body")
				return
			}
		}

		roots := svc.WatchPaths
		if req.Root != "" {
			abs, err := filepath.Abs(req.Root)
			if err != nil || !svc.watched(filepath.Clean(abs)) {
				writeError(w, http.StatusBadRequest, "root must be under a watched path")
				return
			}
			roots = []string{filepath.Clean(abs)}
		}

		var total watch.ScanSummary
		for _, root := range roots {
			summary, err := svc.Pipeline.ScanTree(r.Context(), root)
			if err != nil {
				writeError(w, http.StatusInternalServerError, "Scan failed: "+err.Error())
				return
			}
			total.Scanned += summary.Scanned
			total.Matched += summary.Matched
			total.Skipped += summary.Skipped
		}
		writeJSON(w, http.StatusOK, total)
	}
}

func (s *ScanService) watched(path string) bool {
	for _, root := range s.WatchPaths {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
