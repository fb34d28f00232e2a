package api

import (
	"encoding/json"
	"net/http"

	"github.com/odvcencio/refledger/internal/models"
)

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// parseOIDField decodes a request oid field. An empty string stands for the
// zero sentinel so callers can omit "no parent" and deletion oids.
func parseOIDField(s string) (models.OID, error) {
	if s == "" {
		return models.ZeroOID, nil
	}
	return models.ParseOID(s)
}
