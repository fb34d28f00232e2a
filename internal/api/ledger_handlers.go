package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/odvcencio/refledger/internal/auth"
	"github.com/odvcencio/refledger/internal/core"
	"github.com/odvcencio/refledger/internal/models"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

type createLedgerRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleCreateLedger(w http.ResponseWriter, r *http.Request) {
	var req createLedgerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ledger, err := s.hub.Create(r.Context(), auth.Actor(r.Context()), req.Name)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusCreated, ledger)
}

type ledgerResponse struct {
	*models.Ledger
	BranchCount int        `json:"branch_count"`
	DefaultHead models.OID `json:"default_head"`
}

func (s *Server) handleGetLedger(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("ledger")
	meta, err := s.db.GetLedger(r.Context(), name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			jsonError(w, "ledger not found", http.StatusNotFound)
			return
		}
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	resp := ledgerResponse{Ledger: meta}
	if err := s.hub.With(name, func(l *core.Ledger) error {
		resp.BranchCount = l.BranchCount()
		defaultName, head := l.DefaultBranch()
		resp.DefaultBranch = defaultName
		resp.DefaultHead = head
		return nil
	}); err != nil {
		writeLedgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

func (s *Server) handleListUserLedgers(w http.ResponseWriter, r *http.Request) {
	ledgers, err := s.db.ListLedgers(r.Context(), auth.Actor(r.Context()))
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if ledgers == nil {
		ledgers = []models.Ledger{}
	}
	jsonResponse(w, http.StatusOK, ledgers)
}

type pushRequest struct {
	Branch      string `json:"branch"`
	ParentOID   string `json:"parent_oid"`
	NewOID      string `json:"new_oid"`
	PackfileKey string `json:"packfile_key"`
	Size        uint64 `json:"size"`
}

func (s *Server) handlePush(w http.ResponseWriter, r *http.Request) {
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	parentOID, err := parseOIDField(req.ParentOID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	newOID, err := parseOIDField(req.NewOID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Branch == "" || newOID.IsZero() {
		jsonError(w, "branch and new_oid are required", http.StatusBadRequest)
		return
	}

	actor := auth.Actor(r.Context())
	if err := s.hub.With(r.PathValue("ledger"), func(l *core.Ledger) error {
		return l.Push(req.Branch, parentOID, newOID, models.PackfileKey(req.PackfileKey), req.Size, actor)
	}); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type forcePushRequest struct {
	Branch      string `json:"branch"`
	NewOID      string `json:"new_oid"`
	PackfileKey string `json:"packfile_key"`
	Size        uint64 `json:"size"`
	ParentOID   string `json:"parent_oid"`
	ParentIndex int    `json:"parent_index"`
}

func (s *Server) handleForcePush(w http.ResponseWriter, r *http.Request) {
	var req forcePushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	newOID, err := parseOIDField(req.NewOID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	parentOID, err := parseOIDField(req.ParentOID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Branch == "" {
		jsonError(w, "branch is required", http.StatusBadRequest)
		return
	}

	actor := auth.Actor(r.Context())
	if err := s.hub.With(r.PathValue("ledger"), func(l *core.Ledger) error {
		return l.ForcePush(req.Branch, newOID, models.PackfileKey(req.PackfileKey), req.Size, parentOID, req.ParentIndex, actor)
	}); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type defaultBranchRequest struct {
	Branch string `json:"branch"`
}

func (s *Server) handleSetDefaultBranch(w http.ResponseWriter, r *http.Request) {
	var req defaultBranchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.hub.SetDefaultBranch(r.Context(), r.PathValue("ledger"), req.Branch, auth.Actor(r.Context())); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGetDefaultBranch(w http.ResponseWriter, r *http.Request) {
	var name string
	var head models.OID
	if err := s.hub.With(r.PathValue("ledger"), func(l *core.Ledger) error {
		name, head = l.DefaultBranch()
		return nil
	}); err != nil {
		writeLedgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"branch": name, "head": head})
}

func (s *Server) handleListBranches(w http.ResponseWriter, r *http.Request) {
	start, limit := parseWindow(r, defaultPageLimit, maxPageLimit)
	var branches []models.BranchInfo
	var total int
	if err := s.hub.With(r.PathValue("ledger"), func(l *core.Ledger) error {
		branches = l.ListBranches(start, limit)
		total = l.BranchCount()
		return nil
	}); err != nil {
		writeLedgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"branches": branches, "total": total})
}

func (s *Server) handleGetBranchHead(w http.ResponseWriter, r *http.Request) {
	var head models.OID
	var exists bool
	if err := s.hub.With(r.PathValue("ledger"), func(l *core.Ledger) error {
		head, exists = l.BranchHead(r.PathValue("branch"))
		return nil
	}); err != nil {
		writeLedgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"head": head, "exists": exists})
}

func (s *Server) handleListPushRecords(w http.ResponseWriter, r *http.Request) {
	start, count := parseWindow(r, defaultPageLimit, maxPageLimit)
	var records []models.PushRecord
	if err := s.hub.With(r.PathValue("ledger"), func(l *core.Ledger) error {
		var err error
		records, err = l.PushRecords(r.PathValue("branch"), start, count)
		return err
	}); err != nil {
		writeLedgerError(w, err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]any{"records": records})
}

type grantRequest struct {
	Username string `json:"username"`
}

func (s *Server) handleAddPusher(w http.ResponseWriter, r *http.Request) {
	s.handleGrant(w, r, func(l *core.Ledger, actor, grantee string) error {
		return l.AddPusher(actor, grantee)
	})
}

func (s *Server) handleRemovePusher(w http.ResponseWriter, r *http.Request) {
	grantee := r.PathValue("username")
	if grantee == "" {
		jsonError(w, "username is required", http.StatusBadRequest)
		return
	}
	actor := auth.Actor(r.Context())
	if err := s.hub.With(r.PathValue("ledger"), func(l *core.Ledger) error {
		return l.RemovePusher(actor, grantee)
	}); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddMaintainer(w http.ResponseWriter, r *http.Request) {
	s.handleGrant(w, r, func(l *core.Ledger, actor, grantee string) error {
		return l.AddMaintainer(actor, grantee)
	})
}

func (s *Server) handleGrant(w http.ResponseWriter, r *http.Request, grant func(l *core.Ledger, actor, grantee string) error) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Username == "" {
		jsonError(w, "username is required", http.StatusBadRequest)
		return
	}
	actor := auth.Actor(r.Context())
	if err := s.hub.With(r.PathValue("ledger"), func(l *core.Ledger) error {
		return grant(l, actor, req.Username)
	}); err != nil {
		writeLedgerError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	afterID := int64(parseNonNegativeInt(r.URL.Query().Get("after"), 0))
	_, limit := parseWindow(r, defaultPageLimit, maxPageLimit)
	notes, err := s.db.ListNotifications(r.Context(), r.PathValue("ledger"), afterID, limit)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if notes == nil {
		notes = []models.Notification{}
	}
	jsonResponse(w, http.StatusOK, map[string]any{"notifications": notes})
}
