package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/odvcencio/refledger/internal/models"
	"github.com/odvcencio/refledger/internal/storage"
)

// MetadataStore persists ledger metadata rows. Implemented by the database
// layer; nil disables persistence (tests).
type MetadataStore interface {
	CreateLedger(ctx context.Context, l *models.Ledger) error
	DeleteLedger(ctx context.Context, name string) error
	AllLedgers(ctx context.Context) ([]models.Ledger, error)
	UpdateLedgerDefaultBranch(ctx context.Context, name, branch string) error
}

// Hub owns every ledger in the process and serializes operations per
// ledger. The transactional host this system models runs one operation at a
// time per repository; the per-entry mutex preserves that here, while the
// ledger's own busy flag still catches re-entry through a forwarded call.
type Hub struct {
	factory storage.Factory
	sink    Sink
	meta    MetadataStore

	mu      sync.RWMutex
	ledgers map[string]*hubEntry
}

type hubEntry struct {
	mu     sync.Mutex
	ledger *Ledger
}

func NewHub(factory storage.Factory, sink Sink, meta MetadataStore) *Hub {
	return &Hub{
		factory: factory,
		sink:    sink,
		meta:    meta,
		ledgers: make(map[string]*hubEntry),
	}
}

// Create initializes a new ledger owned by owner and records its metadata.
// The row is persisted before storage is provisioned; a provisioning failure
// removes the row again so no orphan survives on either side.
func (h *Hub) Create(ctx context.Context, owner, name string) (*models.Ledger, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.ledgers[name]; ok {
		return nil, fmt.Errorf("%w: %q", ErrLedgerExists, name)
	}
	if !validLedgerName.MatchString(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	meta := &models.Ledger{Name: name, Owner: owner}
	if h.meta != nil {
		if err := h.meta.CreateLedger(ctx, meta); err != nil {
			return nil, fmt.Errorf("persist ledger: %w", err)
		}
	}
	ledger, err := Initialize(ctx, owner, name, h.factory, h.sink)
	if err != nil {
		if h.meta != nil {
			// Best effort; the provisioning failure is the one to report.
			_ = h.meta.DeleteLedger(ctx, name)
		}
		return nil, err
	}
	h.ledgers[name] = &hubEntry{ledger: ledger}
	return meta, nil
}

// Restore re-registers every persisted ledger so it is addressable after a
// process restart. Branch histories and capability grants are process state
// and come back empty; the owner keeps the admin capability.
func (h *Hub) Restore(ctx context.Context) error {
	if h.meta == nil {
		return nil
	}
	rows, err := h.meta.AllLedgers(ctx)
	if err != nil {
		return fmt.Errorf("load ledgers: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, row := range rows {
		if _, ok := h.ledgers[row.Name]; ok {
			continue
		}
		ledger, err := Initialize(ctx, row.Owner, row.Name, h.factory, h.sink)
		if err != nil {
			return fmt.Errorf("restore ledger %q: %w", row.Name, err)
		}
		h.ledgers[row.Name] = &hubEntry{ledger: ledger}
	}
	return nil
}

func (h *Hub) entry(name string) (*hubEntry, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	e, ok := h.ledgers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrLedgerNotFound, name)
	}
	return e, nil
}

// With runs fn against the named ledger with the per-ledger lock held, so
// the operation runs to completion before the next begins.
func (h *Hub) With(name string, fn func(*Ledger) error) error {
	e, err := h.entry(name)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.ledger)
}

// SetDefaultBranch updates the ledger and, on success, the persisted row.
func (h *Hub) SetDefaultBranch(ctx context.Context, name, branch, actor string) error {
	if err := h.With(name, func(l *Ledger) error {
		return l.SetDefaultBranch(branch, actor)
	}); err != nil {
		return err
	}
	if h.meta != nil {
		return h.meta.UpdateLedgerDefaultBranch(ctx, name, branch)
	}
	return nil
}
