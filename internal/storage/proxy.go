package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/odvcencio/refledger/internal/access"
	"github.com/odvcencio/refledger/internal/models"
)

// gatedOps are the content-mutating operation identifiers that require the
// Pusher capability before forwarding. Everything else, reads and unknown
// identifiers alike, passes through unchecked.
var gatedOps = map[string]bool{
	OpBulkWrite: true,
	OpRemove:    true,
	OpTruncate:  true,
}

// Proxy fronts one ledger's blob handle. It is bound once at ledger
// initialization and relays collaborator results and failures verbatim.
type Proxy struct {
	blob Blob
	acl  *access.Controller
}

func NewProxy(blob Blob, acl *access.Controller) *Proxy {
	return &Proxy{blob: blob, acl: acl}
}

// Blob exposes the bound handle for direct typed use.
func (p *Proxy) Blob() Blob { return p.blob }

// Gated reports whether op requires the Pusher capability.
func Gated(op string) bool { return gatedOps[op] }

type bulkWriteRequest struct {
	Key     models.PackfileKey `json:"key"`
	Data    []byte             `json:"data"`
	Offsets []uint64           `json:"offsets"`
	Lengths []uint64           `json:"lengths"`
}

type keyRequest struct {
	Key models.PackfileKey `json:"key"`
}

type truncateRequest struct {
	Key    models.PackfileKey `json:"key"`
	Length uint64             `json:"length"`
}

// Forward routes one operation to the collaborator. Known identifiers are
// dispatched on the enumerated interface; anything else goes through the
// generic escape hatch. Collaborator failures come back as-is, never
// re-wrapped.
func (p *Proxy) Forward(ctx context.Context, actor, op string, payload []byte) ([]byte, error) {
	if gatedOps[op] {
		if err := p.acl.RequirePusher(actor); err != nil {
			return nil, err
		}
	}

	switch op {
	case OpBulkWrite:
		var req bulkWriteRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", op, err)
		}
		return nil, p.blob.BulkWrite(ctx, req.Key, req.Data, req.Offsets, req.Lengths)
	case OpRemove:
		var req keyRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", op, err)
		}
		return nil, p.blob.Remove(ctx, req.Key)
	case OpTruncate:
		var req truncateRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", op, err)
		}
		return nil, p.blob.Truncate(ctx, req.Key, req.Length)
	case OpRead:
		var req keyRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", op, err)
		}
		return p.blob.Read(ctx, req.Key)
	case OpSize:
		var req keyRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", op, err)
		}
		n, err := p.blob.Size(ctx, req.Key)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]uint64{"size": n})
	case OpExists:
		var req keyRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", op, err)
		}
		ok, err := p.blob.Exists(ctx, req.Key)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]bool{"exists": ok})
	default:
		return p.blob.Call(ctx, op, payload)
	}
}
