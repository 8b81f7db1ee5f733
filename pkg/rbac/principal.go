package rbac

import (
	"context"
	"os"
	"sync"

	"github.com/qrmfg/portal/pkg/auth"
	"github.com/qrmfg/portal/pkg/authz"
	"github.com/qrmfg/portal/pkg/observability"
)

// PrincipalContext is the single source of truth for who is logged in and
// what they can see, role-wise. It is created once, established on login
// and cleared on logout; every dependent component reads it instead of
// re-deriving role state.
type PrincipalContext struct {
	authn  auth.Authenticator
	plants authz.PlantDirectory
	log    *observability.Logger

	mu           sync.RWMutex
	current      *Principal
	onInvalidate []func()
}

// NewPrincipalContext builds a context over the authentication
// collaborator. plants may be nil when the identity provider always embeds
// plant claims; it is consulted only as a fallback.
func NewPrincipalContext(authn auth.Authenticator, plants authz.PlantDirectory, log *observability.Logger) *PrincipalContext {
	if log == nil {
		log = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	return &PrincipalContext{
		authn:  authn,
		plants: plants,
		log:    log.WithComponent("principal_context"),
	}
}

// Establish derives the current principal from the active credential's
// claims. Roles outside the closed set are dropped (never defaulted to a
// team); a principal left with no recognizable role becomes VIEWER. Plants
// come from claims, falling back to the directory lookup when absent.
//
// Establishing a different principal than the one currently held runs the
// invalidation hooks first, so decisions cached for the old principal are
// never served to the new one.
func (pc *PrincipalContext) Establish(ctx context.Context) (*Principal, error) {
	if !pc.authn.IsAuthenticated() {
		pc.Clear()
		return nil, ErrAuthenticationAbsent
	}
	claims, ok := pc.authn.Claims()
	if !ok || claims.Subject == "" {
		pc.Clear()
		return nil, ErrAuthenticationAbsent
	}

	roles := make([]Role, 0, len(claims.Roles))
	for _, raw := range claims.Roles {
		role, err := ParseRole(raw)
		if err != nil {
			pc.log.WithField("role", raw).WithField("user", claims.Subject).
				Warn("dropping unrecognized role claim")
			continue
		}
		roles = append(roles, role)
	}

	plants := toPlantCodes(claims.Plants)
	if len(plants) == 0 && pc.plants != nil {
		looked, err := pc.plants.PlantsFor(ctx, claims.Subject)
		if err != nil {
			// Fail closed: no plants means no plant-scoped visibility.
			pc.log.WithError(err).WithField("user", claims.Subject).
				Warn("plant directory lookup failed; principal has no plant scope")
		} else {
			plants = toPlantCodes(looked)
		}
	}

	primary := PlantCode(claims.PrimaryPlant)
	principal := NewPrincipal(claims.Subject, roles, plants, primary)
	if primary != "" && !principal.HasPlant(primary) {
		principal.PrimaryPlant = ""
	}

	pc.mu.Lock()
	changed := pc.current != nil && pc.current.ID != principal.ID
	hooks := pc.hooksLocked(changed)
	pc.current = principal
	pc.mu.Unlock()

	runHooks(hooks)
	return principal, nil
}

// Current returns the established principal, or ok=false when no session
// is active. Callers must treat ok=false as fully denied.
func (pc *PrincipalContext) Current() (*Principal, bool) {
	pc.mu.RLock()
	defer pc.mu.RUnlock()
	if pc.current == nil {
		return nil, false
	}
	return pc.current, true
}

// PrimaryRole returns the principal's primary role, VIEWER when the
// credential names no recognizable primary role, and "" when no session
// is active.
func (pc *PrincipalContext) PrimaryRole() Role {
	if _, ok := pc.Current(); !ok {
		return ""
	}
	raw, err := pc.authn.PrimaryRoleType()
	if err == nil {
		if role, perr := ParseRole(raw); perr == nil {
			return role
		}
	}
	return RoleViewer
}

// Clear destroys the session state and runs the invalidation hooks. Called
// on logout and credential expiry.
func (pc *PrincipalContext) Clear() {
	pc.mu.Lock()
	hooks := pc.hooksLocked(pc.current != nil)
	pc.current = nil
	pc.mu.Unlock()

	runHooks(hooks)
}

// OnInvalidate registers a hook to run whenever the principal is cleared
// or replaced by a different one. The decision engine registers its cache
// purge here.
func (pc *PrincipalContext) OnInvalidate(fn func()) {
	pc.mu.Lock()
	pc.onInvalidate = append(pc.onInvalidate, fn)
	pc.mu.Unlock()
}

func (pc *PrincipalContext) hooksLocked(fire bool) []func() {
	if !fire {
		return nil
	}
	hooks := make([]func(), len(pc.onInvalidate))
	copy(hooks, pc.onInvalidate)
	return hooks
}

func runHooks(hooks []func()) {
	for _, fn := range hooks {
		fn()
	}
}

func toPlantCodes(raw []string) []PlantCode {
	if len(raw) == 0 {
		return nil
	}
	out := make([]PlantCode, 0, len(raw))
	for _, s := range raw {
		if s == "" {
			continue
		}
		out = append(out, PlantCode(s))
	}
	return out
}
