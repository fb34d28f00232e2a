package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationKind identifies one entry type in the observable event log.
type NotificationKind string

const (
	NotifyRefUpdated           NotificationKind = "ref.updated"
	NotifyForceRefUpdated      NotificationKind = "ref.force_updated"
	NotifyBranchDeleted        NotificationKind = "branch.deleted"
	NotifyDefaultBranchChanged NotificationKind = "default_branch.changed"
)

// Notification is one append-only event emitted by a ledger mutation.
// Fields not meaningful for a given kind stay at their zero value.
type Notification struct {
	ID        int64            `json:"id"`
	Ledger    string           `json:"ledger"`
	Kind      NotificationKind `json:"kind"`
	BranchKey uuid.UUID        `json:"branch_key,omitempty"`
	Branch    string           `json:"branch,omitempty"`
	OldOID    OID              `json:"old_oid"`
	NewOID    OID              `json:"new_oid"`
	Size      uint64           `json:"size,omitempty"`
	OldName   string           `json:"old_name,omitempty"`
	NewName   string           `json:"new_name,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
