package middleware

import (
	"context"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/qrmfg/portal/pkg/auth"
	"github.com/qrmfg/portal/pkg/contextkeys"
	"github.com/qrmfg/portal/pkg/observability"
	"github.com/qrmfg/portal/pkg/rbac"
)

// PrincipalMiddleware establishes the session principal from the bearer
// credential on each request. A request without a credential (or with an
// invalid one) clears the session, so downstream checks deny; it is the
// gate middleware's job to decide how that surfaces.
type PrincipalMiddleware struct {
	session    *auth.Session
	principals *rbac.PrincipalContext
	log        *observability.Logger
}

// NewPrincipalMiddleware builds the middleware over the session and
// principal context.
func NewPrincipalMiddleware(session *auth.Session, principals *rbac.PrincipalContext, log *observability.Logger) *PrincipalMiddleware {
	if log == nil {
		log = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	return &PrincipalMiddleware{
		session:    session,
		principals: principals,
		log:        log.WithComponent("principal_middleware"),
	}
}

// Handler wraps next with principal establishment and request-ID tagging.
func (m *PrincipalMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		ctx := observability.WithRequestID(r.Context(), requestID)
		ctx = context.WithValue(ctx, contextkeys.RequestIDKey, requestID)

		token := bearerToken(r)
		if token == "" {
			m.session.Logout()
			m.principals.Clear()
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		if err := m.session.Login(ctx, token); err != nil {
			m.log.WithError(err).Warn("credential rejected")
			m.session.Logout()
			m.principals.Clear()
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		principal, err := m.principals.Establish(ctx)
		if err != nil {
			next.ServeHTTP(w, r.WithContext(ctx))
			return
		}

		ctx = context.WithValue(ctx, contextkeys.PrincipalIDKey, principal.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
