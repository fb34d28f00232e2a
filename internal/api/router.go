package api

import (
	"net/http"

	"github.com/odvcencio/refledger/internal/auth"
	"github.com/odvcencio/refledger/internal/core"
	"github.com/odvcencio/refledger/internal/database"
)

type Server struct {
	db      database.DB
	authSvc *auth.Service
	hub     *core.Hub
	mux     *http.ServeMux
	metrics *httpMetrics
}

func NewServer(db database.DB, authSvc *auth.Service, hub *core.Hub) *Server {
	s := &Server{
		db:      db,
		authSvc: authSvc,
		hub:     hub,
		mux:     http.NewServeMux(),
		metrics: getDefaultHTTPMetrics(),
	}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := auth.Middleware(s.authSvc)(s.mux)
	handler = requestTracingMiddleware(handler)
	handler = requestMetricsMiddleware(s.metrics, handler)
	handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	// Auth
	s.mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	s.mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)

	// Ledgers
	s.mux.HandleFunc("POST /api/v1/ledgers", s.requireAuth(s.handleCreateLedger))
	s.mux.HandleFunc("GET /api/v1/ledgers/{ledger}", s.handleGetLedger)
	s.mux.HandleFunc("GET /api/v1/user/ledgers", s.requireAuth(s.handleListUserLedgers))

	// Branch state machine
	s.mux.HandleFunc("POST /api/v1/ledgers/{ledger}/push", s.requireAuth(s.handlePush))
	s.mux.HandleFunc("POST /api/v1/ledgers/{ledger}/force-push", s.requireAuth(s.handleForcePush))
	s.mux.HandleFunc("PUT /api/v1/ledgers/{ledger}/default-branch", s.requireAuth(s.handleSetDefaultBranch))
	s.mux.HandleFunc("GET /api/v1/ledgers/{ledger}/default-branch", s.handleGetDefaultBranch)
	s.mux.HandleFunc("GET /api/v1/ledgers/{ledger}/branches", s.handleListBranches)
	s.mux.HandleFunc("GET /api/v1/ledgers/{ledger}/branches/{branch}", s.handleGetBranchHead)
	s.mux.HandleFunc("GET /api/v1/ledgers/{ledger}/branches/{branch}/records", s.handleListPushRecords)

	// Capability grants
	s.mux.HandleFunc("POST /api/v1/ledgers/{ledger}/pushers", s.requireAuth(s.handleAddPusher))
	s.mux.HandleFunc("DELETE /api/v1/ledgers/{ledger}/pushers/{username}", s.requireAuth(s.handleRemovePusher))
	s.mux.HandleFunc("POST /api/v1/ledgers/{ledger}/maintainers", s.requireAuth(s.handleAddMaintainer))

	// Observable event log
	s.mux.HandleFunc("GET /api/v1/ledgers/{ledger}/notifications", s.handleListNotifications)

	// Generic storage forwarding. Deliberately open to anonymous callers:
	// the proxy itself gates the mutating identifiers.
	s.mux.HandleFunc("POST /api/v1/ledgers/{ledger}/storage/{op}", s.handleStorageForward)

	// Ops
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", metricsHandler(nil))
}

func (s *Server) requireAuth(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.GetClaims(r.Context()) == nil {
			jsonError(w, "authentication required", http.StatusUnauthorized)
			return
		}
		fn(w, r)
	}
}
