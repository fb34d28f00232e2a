package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/odvcencio/refledger/internal/access"
	"github.com/odvcencio/refledger/internal/auth"
	"github.com/odvcencio/refledger/internal/core"
)

// 4 MiB cap on forwarded payloads. Packfile segments above that belong on a
// direct upload path, not the control plane.
const maxForwardPayload = 4 << 20

func (s *Server) handleStorageForward(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxForwardPayload+1))
	if err != nil {
		jsonError(w, "failed to read request body", http.StatusBadRequest)
		return
	}
	if len(payload) > maxForwardPayload {
		jsonError(w, "payload too large", http.StatusRequestEntityTooLarge)
		return
	}

	op := r.PathValue("op")
	actor := auth.Actor(r.Context())

	var out []byte
	err = s.hub.With(r.PathValue("ledger"), func(l *core.Ledger) error {
		var ferr error
		out, ferr = l.Forward(r.Context(), actor, op, payload)
		return ferr
	})
	switch {
	case err == nil:
	case errors.Is(err, access.ErrPermissionDenied):
		jsonError(w, err.Error(), http.StatusForbidden)
		return
	case errors.Is(err, core.ErrLedgerNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, core.ErrReentrantCall):
		jsonError(w, err.Error(), http.StatusConflict)
		return
	default:
		// Collaborator failures pass through unaltered.
		jsonError(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	w.Write(out)
}
