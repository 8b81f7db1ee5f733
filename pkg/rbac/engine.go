package rbac

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/qrmfg/portal/pkg/authz"
	"github.com/qrmfg/portal/pkg/observability"
)

const (
	// DefaultDecisionTTL bounds how long a cached decision is served
	// before the engine re-resolves it.
	DefaultDecisionTTL = 5 * time.Minute

	// DefaultRemoteTimeout bounds a remote authorization round trip. A
	// check that has not resolved by then denies instead of hanging the
	// gate.
	DefaultRemoteTimeout = 10 * time.Second
)

// Recorder receives decision audit events. The engine calls it inline, so
// implementations must be cheap and must never fail the decision path.
type Recorder interface {
	RecordDecision(ctx context.Context, principalID, resource string, granted bool, source, reason string)
}

// EngineConfig tunes the decision engine.
type EngineConfig struct {
	DecisionTTL   time.Duration
	CacheSize     int
	RemoteTimeout time.Duration
}

// EngineOptions wires the engine's collaborators. Principals is required;
// everything else has a sensible zero value.
type EngineOptions struct {
	Principals *PrincipalContext
	Screens    *ScreenPolicy
	Data       DataPolicy
	Remote     authz.Authorizer
	Recorder   Recorder
	Logger     *observability.Logger
	Metrics    *observability.Metrics
	Config     EngineConfig
}

// Engine is the access-decision engine every screen, navigation entry and
// data view consults before rendering. Screen and data checks resolve
// against static local tables first and fall back to the remote
// authorization endpoint; role checks are pure and local. All failure
// modes deny.
type Engine struct {
	principals *PrincipalContext
	screens    *ScreenPolicy
	data       DataPolicy
	remote     authz.Authorizer
	recorder   Recorder
	cache      *decisionCache
	flight     singleflight.Group
	timeout    time.Duration
	log        *observability.Logger
	metrics    *observability.Metrics
}

// NewEngine builds the engine and registers its cache purge on principal
// invalidation, so logout drops every cached decision.
func NewEngine(opts EngineOptions) *Engine {
	if opts.Principals == nil {
		panic("rbac: EngineOptions.Principals is required")
	}
	if opts.Screens == nil {
		opts.Screens = DefaultScreenPolicy()
	}
	if opts.Data == nil {
		opts.Data = DefaultDataPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}

	ttl := opts.Config.DecisionTTL
	if ttl <= 0 {
		ttl = DefaultDecisionTTL
	}
	timeout := opts.Config.RemoteTimeout
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}

	e := &Engine{
		principals: opts.Principals,
		screens:    opts.Screens,
		data:       opts.Data,
		remote:     opts.Remote,
		recorder:   opts.Recorder,
		cache:      newDecisionCache(opts.Config.CacheSize, ttl),
		timeout:    timeout,
		log:        opts.Logger.WithComponent("decision_engine"),
		metrics:    opts.Metrics,
	}
	opts.Principals.OnInvalidate(e.cache.purge)
	return e
}

// CheckScreen resolves access to the screen at path. The local screen
// table is authoritative; only unmapped paths reach the remote endpoint.
func (e *Engine) CheckScreen(ctx context.Context, path string) (AccessDecision, error) {
	return e.check(ctx, ScreenRequirement(path))
}

// CheckData resolves access to records tagged with the data-type tag,
// using the same local-table-first strategy as CheckScreen.
func (e *Engine) CheckData(ctx context.Context, dataType string) (AccessDecision, error) {
	return e.check(ctx, DataRequirement(dataType))
}

// CheckRoles evaluates a role requirement against the current principal.
// Pure and synchronous: no cache, no remote call. ADMIN always passes; an
// empty role list admits every authenticated principal.
func (e *Engine) CheckRoles(req AccessRequirement) bool {
	p, ok := e.principals.Current()
	if !ok {
		return false
	}
	return e.CheckRolesFor(p, req)
}

// CheckRolesFor evaluates a role requirement against an explicit
// principal. The navigation builder uses this to stay a pure function of
// (principal, table).
func (e *Engine) CheckRolesFor(p *Principal, req AccessRequirement) bool {
	return rolesSatisfied(p, req.Roles, req.Mode)
}

// CacheStats exposes decision cache counters for the cache monitor.
func (e *Engine) CacheStats() DecisionCacheStats {
	return e.cache.stats()
}

// InvalidateCache drops every cached decision. Wired to principal
// invalidation at construction; exposed for administrative use.
func (e *Engine) InvalidateCache() {
	e.cache.purge()
}

func (e *Engine) check(ctx context.Context, req AccessRequirement) (AccessDecision, error) {
	p, ok := e.principals.Current()
	if !ok {
		return e.deny(SourceLocal), ErrAuthenticationAbsent
	}

	if d, ok := e.cache.get(p.ID, req); ok {
		if e.metrics != nil {
			e.metrics.DecisionCacheHitsTotal.Inc()
		}
		return d, nil
	}
	if e.metrics != nil {
		e.metrics.DecisionCacheMissesTotal.Inc()
	}

	var roles []Role
	var mapped bool
	switch req.Kind {
	case KindScreen:
		roles, mapped = e.screens.Match(req.Path)
	case KindData:
		roles, mapped = e.data.Match(req.DataType)
	}

	if mapped {
		d := AccessDecision{
			Granted:    rolesSatisfied(p, roles, ModeAny),
			ResolvedAt: time.Now().UTC(),
			Source:     SourceLocal,
		}
		e.cache.put(p.ID, req, d)
		e.observe(req, d)
		if !d.Granted {
			e.record(ctx, p.ID, req, d, "denied by local table")
		}
		return d, nil
	}

	return e.checkRemote(ctx, p, req)
}

func (e *Engine) checkRemote(ctx context.Context, p *Principal, req AccessRequirement) (AccessDecision, error) {
	resource := req.CacheKey()

	if e.remote == nil {
		d := e.deny(SourceLocal)
		e.observe(req, d)
		e.record(ctx, p.ID, req, d, "unmapped resource")
		e.log.WithField("resource", resource).Warn("no rule and no remote authorizer; denying")
		return d, fmt.Errorf("%w: %s", ErrUnmappedResource, resource)
	}

	// The principal active when the check was issued. Compared again
	// before commit so an in-flight result for a stale principal is
	// discarded rather than written into the new principal's cache.
	issuedFor := p.ID

	start := time.Now()
	v, err, _ := e.flight.Do(issuedFor+"|"+resource, func() (interface{}, error) {
		cctx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()
		return e.remote.Authorize(cctx, issuedFor, resource)
	})
	if e.metrics != nil {
		e.metrics.RemoteAuthorizeDuration.Observe(time.Since(start).Seconds())
	}

	if err != nil {
		d := e.deny(SourceRemote)
		class, mapped := classifyRemoteError(err)
		e.log.WithError(err).
			WithField("resource", resource).
			WithField("principal", issuedFor).
			WithField("class", class).
			Error("remote authorization failed; denying")
		if e.metrics != nil {
			e.metrics.RemoteAuthorizeErrorsTotal.WithLabelValues(class).Inc()
		}
		e.observe(req, d)
		e.record(ctx, issuedFor, req, d, err.Error())
		return d, fmt.Errorf("%w: %v", mapped, err)
	}

	decision := v.(authz.Decision)
	d := AccessDecision{
		Granted:    decision.Granted,
		ResolvedAt: time.Now().UTC(),
		Source:     SourceRemote,
	}

	if cur, ok := e.principals.Current(); ok && cur.ID == issuedFor {
		e.cache.put(issuedFor, req, d)
	}

	e.observe(req, d)
	e.record(ctx, issuedFor, req, d, decision.Reason)
	return d, nil
}

func (e *Engine) deny(source DecisionSource) AccessDecision {
	return AccessDecision{Granted: false, ResolvedAt: time.Now().UTC(), Source: source}
}

func (e *Engine) observe(req AccessRequirement, d AccessDecision) {
	if e.metrics != nil {
		e.metrics.ObserveDecision(string(req.Kind), d.Granted, string(d.Source))
	}
}

func (e *Engine) record(ctx context.Context, principalID string, req AccessRequirement, d AccessDecision, reason string) {
	if e.recorder != nil {
		e.recorder.RecordDecision(ctx, principalID, req.CacheKey(), d.Granted, string(d.Source), reason)
	}
}

// rolesSatisfied is the one place role-set semantics live. ADMIN
// short-circuits every requirement; an empty requirement admits any
// authenticated principal regardless of mode.
func rolesSatisfied(p *Principal, roles []Role, mode RequireMode) bool {
	if p == nil {
		return false
	}
	if p.IsAdmin() {
		return true
	}
	if len(roles) == 0 {
		return true
	}
	if mode == ModeAll {
		for _, r := range roles {
			if !p.HasRole(r) {
				return false
			}
		}
		return true
	}
	for _, r := range roles {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

func classifyRemoteError(err error) (string, error) {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return "timeout", ErrAuthorizationTimeout
	}
	return "transport", ErrAuthorizationTransport
}
