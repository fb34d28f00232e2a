package api

import (
	"errors"
	"net/http"

	"github.com/odvcencio/refledger/internal/access"
	"github.com/odvcencio/refledger/internal/core"
	"github.com/odvcencio/refledger/internal/refstore"
)

// writeLedgerError maps the core error taxonomy onto HTTP statuses. The
// specific category reaches the caller; state is untouched by then.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, access.ErrPermissionDenied):
		jsonError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, core.ErrInvalidName),
		errors.Is(err, core.ErrParentIndexOutOfRange):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, core.ErrBranchNotFound),
		errors.Is(err, core.ErrLedgerNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, core.ErrNoParentAllowed),
		errors.Is(err, core.ErrNonFastForward),
		errors.Is(err, core.ErrCannotDeleteDefault),
		errors.Is(err, core.ErrParentOIDMismatch),
		errors.Is(err, core.ErrLedgerExists),
		errors.Is(err, core.ErrReentrantCall):
		jsonError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, refstore.ErrStorageCorruption):
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
