package core

import "errors"

// Every failure aborts the enclosing operation with no partial effect; the
// caller sees one of these categories and unchanged state. Nothing is
// retried internally.
var (
	ErrInvalidName           = errors.New("invalid ledger name")
	ErrNoParentAllowed       = errors.New("genesis push must carry the zero parent")
	ErrNonFastForward        = errors.New("parent does not match current head")
	ErrBranchNotFound        = errors.New("branch not found")
	ErrCannotDeleteDefault   = errors.New("default branch cannot be deleted")
	ErrParentIndexOutOfRange = errors.New("parent index beyond history")
	ErrParentOIDMismatch     = errors.New("parent oid does not match record at index")
	ErrReentrantCall         = errors.New("operation re-entered while executing")
	ErrLedgerNotFound        = errors.New("ledger not found")
	ErrLedgerExists          = errors.New("ledger already exists")
)
