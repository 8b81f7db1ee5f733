package api

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/qrmfg/portal/pkg/audit"
	"github.com/qrmfg/portal/pkg/middleware"
	"github.com/qrmfg/portal/pkg/observability"
	"github.com/qrmfg/portal/pkg/rbac"
	"github.com/qrmfg/portal/pkg/respcache"
	"github.com/qrmfg/portal/pkg/sanitize"
)

// Server is the portal's HTTP surface. It is a thin client of the RBAC
// core: every route goes through the principal middleware and the gated
// routes through the gate middleware.
type Server struct {
	router *mux.Router

	principals *rbac.PrincipalContext
	engine     *rbac.Engine
	nav        *rbac.NavigationBuilder
	gate       *rbac.AccessGate

	queries   *QueryStore
	cache     *respcache.Cache
	sanitizer sanitize.Sanitizer
	audit     *audit.Store

	metrics *observability.Metrics
	log     *observability.Logger
}

// ServerOptions wires the server's collaborators. Cache, audit and metrics
// are optional; the corresponding routes degrade gracefully without them.
type ServerOptions struct {
	Principals *rbac.PrincipalContext
	Engine     *rbac.Engine
	Nav        *rbac.NavigationBuilder
	Gate       *rbac.AccessGate
	Queries    *QueryStore
	Cache      *respcache.Cache
	Sanitizer  sanitize.Sanitizer
	Audit      *audit.Store
	Metrics    *observability.Metrics
	Logger     *observability.Logger

	PrincipalMW *middleware.PrincipalMiddleware
}

// NewServer builds the router and registers all routes.
func NewServer(opts ServerOptions) *Server {
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	if opts.Nav == nil {
		opts.Nav = rbac.NewNavigationBuilder(nil)
	}
	if opts.Gate == nil {
		opts.Gate = rbac.NewAccessGate(opts.Engine)
	}
	if opts.Queries == nil {
		opts.Queries = NewQueryStore()
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = sanitize.NewHTMLSanitizer()
	}

	s := &Server{
		router:     mux.NewRouter(),
		principals: opts.Principals,
		engine:     opts.Engine,
		nav:        opts.Nav,
		gate:       opts.Gate,
		queries:    opts.Queries,
		cache:      opts.Cache,
		sanitizer:  opts.Sanitizer,
		audit:      opts.Audit,
		metrics:    opts.Metrics,
		log:        opts.Logger.WithComponent("api"),
	}
	s.routes(opts.PrincipalMW)
	return s
}

func (s *Server) routes(principalMW *middleware.PrincipalMiddleware) {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	gates := middleware.NewGateMiddleware(s.engine)
	adminOnly := gates.RequireRoles(rbac.RoleRequirement(rbac.ModeAny, rbac.RoleAdmin))

	api := s.router.PathPrefix("/qrmfg/api").Subrouter()
	if principalMW != nil {
		api.Use(principalMW.Handler)
	}

	api.HandleFunc("/menu", s.handleMenu).Methods(http.MethodGet)
	api.HandleFunc("/access/check", s.handleAccessCheck).Methods(http.MethodPost)

	api.Handle("/queries", gates.RequireData("query")(http.HandlerFunc(s.handleListQueries))).Methods(http.MethodGet)
	api.Handle("/queries", gates.RequireData("query")(http.HandlerFunc(s.handleCreateQuery))).Methods(http.MethodPost)

	api.Handle("/cache/stats", adminOnly(http.HandlerFunc(s.handleCacheStats))).Methods(http.MethodGet)
	api.Handle("/audit", adminOnly(http.HandlerFunc(s.handleAudit))).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
