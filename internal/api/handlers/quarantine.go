package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/vigil-dlp/vigil/internal/store"
)

// QuarantineService exposes the quarantine records.
type QuarantineService struct {
	Store *store.QuarantineStore
}

func NewQuarantineService(qs *store.QuarantineStore) *QuarantineService {
	return &QuarantineService{Store: qs}
}

// GetQuarantineHandler lists records, most recently moved first.
func GetQuarantineHandler(svc *QuarantineService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := svc.Store.List()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list quarantine")
			return
		}
		if recs == nil {
			recs = []store.QuarantineRecord{}
		}
		writeJSON(w, http.StatusOK, recs)
	}
}

// GetQuarantineRecordHandler returns one record by id.
func GetQuarantineRecordHandler(svc *QuarantineService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := svc.Store.Get(mux.Vars(r)["id"])
		if err != nil {
			if errors.Is(err, store.ErrQuarantineNotFound) {
				writeError(w, http.StatusNotFound, "Quarantine record not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to retrieve record")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}
