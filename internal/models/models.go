package models

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OID is an opaque 20-byte snapshot identifier. The zero value is the
// reserved "none" sentinel.
type OID [20]byte

// ZeroOID is the all-zero sentinel meaning "no identifier".
var ZeroOID OID

func (o OID) IsZero() bool { return o == ZeroOID }

func (o OID) String() string { return hex.EncodeToString(o[:]) }

// ParseOID decodes a 40-character hex string into an OID.
func ParseOID(s string) (OID, error) {
	var o OID
	if len(s) != hex.EncodedLen(len(o)) {
		return OID{}, fmt.Errorf("oid must be %d hex characters, got %d", hex.EncodedLen(len(o)), len(s))
	}
	if _, err := hex.Decode(o[:], []byte(s)); err != nil {
		return OID{}, fmt.Errorf("parse oid %q: %w", s, err)
	}
	return o, nil
}

func (o OID) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *OID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseOID(s)
	if err != nil {
		return err
	}
	*o = parsed
	return nil
}

// PackfileKey references a blob held by the external storage collaborator.
type PackfileKey string

// PushRecord is one entry in a branch's push history. Immutable once
// logically committed; slots are physically reused only by
// history-truncating force pushes.
type PushRecord struct {
	NewOID      OID         `json:"new_oid"`
	ParentOID   OID         `json:"parent_oid"`
	PackfileKey PackfileKey `json:"packfile_key"`
	Size        uint64      `json:"size"`
	Timestamp   time.Time   `json:"timestamp"`
	Pusher      string      `json:"pusher"`
}

// Branch tracks one ref's head and the logical length of its push history.
// ActiveLen may be less than the physical record buffer length after a
// truncating force push; it is never greater.
type Branch struct {
	Key       uuid.UUID `json:"key"`
	Head      OID       `json:"head"`
	ActiveLen int       `json:"active_len"`
	Exists    bool      `json:"exists"`
}

// BranchInfo is the read-surface projection of a branch for listings.
type BranchInfo struct {
	Name string `json:"name"`
	Head OID    `json:"head"`
}

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Ledger is the persisted metadata row for one repository ledger.
type Ledger struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Owner         string    `json:"owner"`
	DefaultBranch string    `json:"default_branch"`
	CreatedAt     time.Time `json:"created_at"`
}
