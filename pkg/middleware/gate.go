package middleware

import (
	"net/http"

	"github.com/qrmfg/portal/pkg/contextkeys"
	"github.com/qrmfg/portal/pkg/rbac"
)

// GateMiddleware enforces access requirements on routes. Denied requests
// get 404, not 403: to an unauthorized principal a screen they cannot see
// must be indistinguishable from a screen that does not exist. Only a
// missing credential gets 401, which leaks nothing structural.
type GateMiddleware struct {
	engine *rbac.Engine
}

// NewGateMiddleware builds the middleware over the decision engine.
func NewGateMiddleware(engine *rbac.Engine) *GateMiddleware {
	return &GateMiddleware{engine: engine}
}

// RequireScreen gates a route on the screen check for the request path.
func (m *GateMiddleware) RequireScreen(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		d, err := m.engine.CheckScreen(r.Context(), r.URL.Path)
		m.respond(w, r, next, d.Granted, err)
	})
}

// RequireRoles gates a route on a role requirement.
func (m *GateMiddleware) RequireRoles(req rbac.AccessRequirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !m.engine.CheckRoles(req) {
				m.deny(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireData gates a route on a data-type check.
func (m *GateMiddleware) RequireData(dataType string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d, err := m.engine.CheckData(r.Context(), dataType)
			m.respond(w, r, next, d.Granted, err)
		})
	}
}

func (m *GateMiddleware) respond(w http.ResponseWriter, r *http.Request, next http.Handler, granted bool, err error) {
	if granted {
		next.ServeHTTP(w, r)
		return
	}
	m.deny(w, r)
	_ = err // already denied and logged by the engine
}

func (m *GateMiddleware) deny(w http.ResponseWriter, r *http.Request) {
	if r.Context().Value(contextkeys.PrincipalIDKey) == nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}
	http.NotFound(w, r)
}
