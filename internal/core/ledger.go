// Package core implements the branch/ref state machine and push-history
// ledger. One Ledger is one repository instance: branches, their heads, the
// append-style push history, the capability controller, and the bound
// storage proxy.
package core

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/odvcencio/refledger/internal/access"
	"github.com/odvcencio/refledger/internal/models"
	"github.com/odvcencio/refledger/internal/refstore"
	"github.com/odvcencio/refledger/internal/storage"
)

var validLedgerName = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,100}$`)

// Sink receives notifications in emission order. Emission happens inside the
// operation, after all state changes succeed.
type Sink interface {
	Emit(n models.Notification)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(models.Notification)

func (f SinkFunc) Emit(n models.Notification) { f(n) }

// Ledger is a single repository's branch state machine. Operations are
// strictly serialized by the caller (see Hub); the busy flag guards against
// re-entry through a forwarded storage call while an operation is still
// executing.
type Ledger struct {
	name          string
	owner         string
	defaultBranch string

	branches map[string]*models.Branch
	buffers  map[string]*refstore.Buffer
	registry *refstore.Registry
	acl      *access.Controller
	proxy    *storage.Proxy
	sink     Sink
	clock    func() time.Time
	busy     bool
}

// Initialize validates the ledger name, grants the owner all three
// capabilities, and provisions the storage handle through factory exactly
// once.
func Initialize(ctx context.Context, owner, name string, factory storage.Factory, sink Sink) (*Ledger, error) {
	if !validLedgerName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	acl := access.NewController(owner)
	blob, err := factory.Create(ctx)
	if err != nil {
		return nil, fmt.Errorf("provision storage: %w", err)
	}
	if sink == nil {
		sink = SinkFunc(func(models.Notification) {})
	}
	return &Ledger{
		name:     name,
		owner:    owner,
		branches: make(map[string]*models.Branch),
		buffers:  make(map[string]*refstore.Buffer),
		registry: refstore.NewRegistry(),
		acl:      acl,
		proxy:    storage.NewProxy(blob, acl),
		sink:     sink,
		clock:    time.Now,
	}, nil
}

func (l *Ledger) Name() string  { return l.name }
func (l *Ledger) Owner() string { return l.owner }

// Access exposes the capability controller for grant management.
func (l *Ledger) Access() *access.Controller { return l.acl }

func (l *Ledger) enter() error {
	if l.busy {
		return ErrReentrantCall
	}
	l.busy = true
	return nil
}

func (l *Ledger) exit() { l.busy = false }

// Push appends one fast-forward record to branch. A push onto an absent
// branch is a genesis push: it must carry the zero parent and creates the
// branch, which becomes the default when none is set yet.
func (l *Ledger) Push(branch string, parentOID, newOID models.OID, key models.PackfileKey, size uint64, actor string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	if err := l.acl.RequirePusher(actor); err != nil {
		return err
	}

	b, active := l.branches[branch], false
	if b != nil && b.Exists {
		active = true
	}

	var oldOID models.OID
	if active {
		if b.Head != parentOID {
			return fmt.Errorf("%w: branch %q", ErrNonFastForward, branch)
		}
		oldOID = b.Head
	} else {
		if !parentOID.IsZero() {
			return fmt.Errorf("%w: branch %q", ErrNoParentAllowed, branch)
		}
	}

	now := l.clock()
	rec := models.PushRecord{
		NewOID:      newOID,
		ParentOID:   parentOID,
		PackfileKey: key,
		Size:        size,
		Timestamp:   now,
		Pusher:      actor,
	}

	// All checks passed; mutations from here on cannot fail except for the
	// corruption invariant, which is fatal by definition.
	if !active {
		if b == nil {
			b = &models.Branch{}
			l.branches[branch] = b
			l.buffers[branch] = refstore.NewBuffer()
		}
		// A re-created branch gets a fresh key; its old physical records
		// remain as residue below the logical length.
		b.Key = uuid.New()
		b.Exists = true
		b.ActiveLen = 0
		l.registry.Register(branch)
		if l.defaultBranch == "" {
			l.defaultBranch = branch
		}
	}

	if err := l.buffers[branch].WriteAt(b.ActiveLen, rec); err != nil {
		return err
	}
	b.ActiveLen++
	b.Head = newOID

	l.sink.Emit(models.Notification{
		Ledger:    l.name,
		Kind:      models.NotifyRefUpdated,
		BranchKey: b.Key,
		Branch:    branch,
		OldOID:    oldOID,
		NewOID:    newOID,
		Size:      size,
		Timestamp: now,
	})
	return nil
}

// ForcePush bypasses fast-forward. The argument values select one of three
// scenarios: delete (newOID zero), full replace (parentOID zero), or partial
// truncate (both non-zero, anchored at parentIndex).
func (l *Ledger) ForcePush(branch string, newOID models.OID, key models.PackfileKey, size uint64, parentOID models.OID, parentIndex int, actor string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	if err := l.acl.RequireMaintainer(actor); err != nil {
		return err
	}
	b := l.branches[branch]
	if b == nil || !b.Exists {
		return fmt.Errorf("%w: %q", ErrBranchNotFound, branch)
	}

	now := l.clock()
	switch {
	case newOID.IsZero():
		return l.deleteBranch(branch, b, now)
	case parentOID.IsZero():
		return l.replaceBranch(branch, b, newOID, key, size, actor, now)
	default:
		return l.truncateBranch(branch, b, newOID, key, size, parentOID, parentIndex, actor, now)
	}
}

func (l *Ledger) deleteBranch(branch string, b *models.Branch, now time.Time) error {
	if branch == l.defaultBranch {
		return fmt.Errorf("%w: %q", ErrCannotDeleteDefault, branch)
	}
	l.registry.Deregister(branch)
	b.ActiveLen = 0
	b.Head = models.ZeroOID
	b.Exists = false

	// The physical records stay allocated; nothing reads past ActiveLen.
	l.sink.Emit(models.Notification{
		Ledger:    l.name,
		Kind:      models.NotifyBranchDeleted,
		Branch:    branch,
		Timestamp: now,
	})
	return nil
}

func (l *Ledger) replaceBranch(branch string, b *models.Branch, newOID models.OID, key models.PackfileKey, size uint64, actor string, now time.Time) error {
	oldOID := b.Head
	rec := models.PushRecord{
		NewOID:      newOID,
		ParentOID:   models.ZeroOID,
		PackfileKey: key,
		Size:        size,
		Timestamp:   now,
		Pusher:      actor,
	}
	b.ActiveLen = 0
	if err := l.buffers[branch].WriteAt(0, rec); err != nil {
		return err
	}
	b.ActiveLen = 1
	b.Head = newOID

	l.emitForceUpdate(b, branch, oldOID, newOID, now)
	return nil
}

func (l *Ledger) truncateBranch(branch string, b *models.Branch, newOID models.OID, key models.PackfileKey, size uint64, parentOID models.OID, parentIndex int, actor string, now time.Time) error {
	if parentIndex < 0 || parentIndex >= b.ActiveLen {
		return fmt.Errorf("%w: index %d, history %d", ErrParentIndexOutOfRange, parentIndex, b.ActiveLen)
	}
	buf := l.buffers[branch]
	// The anchor is matched against the ancestor record's resulting oid,
	// not its recorded parent.
	if buf.At(parentIndex).NewOID != parentOID {
		return fmt.Errorf("%w: index %d", ErrParentOIDMismatch, parentIndex)
	}

	oldOID := b.Head
	rec := models.PushRecord{
		NewOID:      newOID,
		ParentOID:   parentOID,
		PackfileKey: key,
		Size:        size,
		Timestamp:   now,
		Pusher:      actor,
	}
	b.ActiveLen = parentIndex + 1
	if err := buf.WriteAt(b.ActiveLen, rec); err != nil {
		return err
	}
	b.ActiveLen++
	b.Head = newOID

	l.emitForceUpdate(b, branch, oldOID, newOID, now)
	return nil
}

func (l *Ledger) emitForceUpdate(b *models.Branch, branch string, oldOID, newOID models.OID, now time.Time) {
	l.sink.Emit(models.Notification{
		Ledger:    l.name,
		Kind:      models.NotifyForceRefUpdated,
		BranchKey: b.Key,
		Branch:    branch,
		OldOID:    oldOID,
		NewOID:    newOID,
		Timestamp: now,
	})
}

// SetDefaultBranch reassigns the default branch. Maintainer capability;
// target must exist.
func (l *Ledger) SetDefaultBranch(branch, actor string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()

	if err := l.acl.RequireMaintainer(actor); err != nil {
		return err
	}
	b := l.branches[branch]
	if b == nil || !b.Exists {
		return fmt.Errorf("%w: %q", ErrBranchNotFound, branch)
	}
	old := l.defaultBranch
	l.defaultBranch = branch

	l.sink.Emit(models.Notification{
		Ledger:    l.name,
		Kind:      models.NotifyDefaultBranchChanged,
		OldName:   old,
		NewName:   branch,
		Timestamp: l.clock(),
	})
	return nil
}

// AddPusher grants Pusher to grantee; actor must hold Maintainer.
func (l *Ledger) AddPusher(actor, grantee string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	return l.acl.AddPusher(actor, grantee)
}

// RemovePusher revokes Pusher from grantee; actor must hold Maintainer.
func (l *Ledger) RemovePusher(actor, grantee string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	return l.acl.RemovePusher(actor, grantee)
}

// AddMaintainer grants Maintainer to grantee; actor must hold Admin.
func (l *Ledger) AddMaintainer(actor, grantee string) error {
	if err := l.enter(); err != nil {
		return err
	}
	defer l.exit()
	return l.acl.AddMaintainer(actor, grantee)
}

// BranchHead returns the branch head and whether the branch exists. Absent
// branches report the zero oid.
func (l *Ledger) BranchHead(branch string) (models.OID, bool) {
	b := l.branches[branch]
	if b == nil || !b.Exists {
		return models.ZeroOID, false
	}
	return b.Head, true
}

// DefaultBranch returns the default branch name and its head. Empty name
// when no branch has ever been pushed.
func (l *Ledger) DefaultBranch() (string, models.OID) {
	if l.defaultBranch == "" {
		return "", models.ZeroOID
	}
	head, _ := l.BranchHead(l.defaultBranch)
	return l.defaultBranch, head
}

// BranchCount returns the number of live branches.
func (l *Ledger) BranchCount() int { return l.registry.Count() }

// ListBranches returns up to limit branches starting at start, each with its
// head. Out-of-range start yields an empty listing.
func (l *Ledger) ListBranches(start, limit int) []models.BranchInfo {
	names := l.registry.List(start, limit)
	out := make([]models.BranchInfo, 0, len(names))
	for _, name := range names {
		head, _ := l.BranchHead(name)
		out = append(out, models.BranchInfo{Name: name, Head: head})
	}
	return out
}

// PushRecords returns the branch's records in [start, start+count), clipped
// to the logical length. The branch must exist.
func (l *Ledger) PushRecords(branch string, start, count int) ([]models.PushRecord, error) {
	b := l.branches[branch]
	if b == nil || !b.Exists {
		return nil, fmt.Errorf("%w: %q", ErrBranchNotFound, branch)
	}
	return l.buffers[branch].Window(b.ActiveLen, start, count), nil
}

// Forward relays op to the storage collaborator through the gated proxy.
// The busy flag stays held for the duration so a collaborator cannot call
// back into this ledger mid-operation.
func (l *Ledger) Forward(ctx context.Context, actor, op string, payload []byte) ([]byte, error) {
	if err := l.enter(); err != nil {
		return nil, err
	}
	defer l.exit()
	return l.proxy.Forward(ctx, actor, op, payload)
}
