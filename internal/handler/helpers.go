package handler

import (
	"encoding/json"
	"net/http"

	"github.com/formflow/dms/internal/auth"
	"github.com/formflow/dms/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// actorFrom builds the acting user from the verified token claims. The
// workflow engine trusts the capability bits as presented here.
func actorFrom(r *http.Request) *models.User {
	claims := auth.GetUser(r.Context())
	if claims == nil {
		return nil
	}
	return &models.User{
		ID:                   claims.UserID,
		Email:                claims.Email,
		Role:                 claims.Role,
		HasApprovalAuthority: claims.HasApprovalAuthority,
	}
}
