package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vigil-dlp/vigil/internal/auth"
)

// LoginHandler exchanges the admin credential for a bearer token.
func LoginHandler(authSvc *auth.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := authSvc.Authenticate(req.Username, req.Password); err != nil {
			if errors.Is(err, auth.ErrInvalidCredentials) {
				writeError(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			writeError(w, http.StatusInternalServerError, "Authentication failed")
			return
		}
		token, err := authSvc.GenerateToken()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to issue token")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}
