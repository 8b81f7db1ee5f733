package rbac

import (
	"context"
	"sync/atomic"
)

// GateState is the tri-state result of a gate evaluation. While a remote
// check is in flight the state is GatePending and the caller must render a
// neutral placeholder; a gate never defaults to visible.
type GateState int32

const (
	GateDenied GateState = iota
	GateGranted
	GatePending
)

func (s GateState) String() string {
	switch s {
	case GateGranted:
		return "granted"
	case GatePending:
		return "pending"
	default:
		return "denied"
	}
}

// AccessGate wraps content behind a declared AccessRequirement. Every
// conditional render in the portal goes through this one abstraction, so
// access decisions are auditable from a single call-site shape.
type AccessGate struct {
	engine *Engine
}

// NewAccessGate builds a gate over the decision engine.
func NewAccessGate(engine *Engine) *AccessGate {
	return &AccessGate{engine: engine}
}

// Allowed resolves a requirement to allow or deny. Role requirements are
// synchronous and side-effect-free; screen and data requirements may block
// on a remote round trip and resolve to deny on any error or timeout.
func (g *AccessGate) Allowed(ctx context.Context, req AccessRequirement) bool {
	switch req.Kind {
	case KindRoles:
		return g.engine.CheckRoles(req)
	case KindScreen:
		d, _ := g.engine.CheckScreen(ctx, req.Path)
		return d.Granted
	case KindData:
		d, _ := g.engine.CheckData(ctx, req.DataType)
		return d.Granted
	default:
		return false
	}
}

// Render invokes content only when the requirement is granted. Gates nest
// naturally: a denied outer gate never runs the closure, so inner gates
// are not evaluated and no unnecessary remote calls are made. An inner
// gate evaluated inside a granted outer gate still re-checks its own
// requirement.
func Render[T any](ctx context.Context, g *AccessGate, req AccessRequirement, content func() T) (T, bool) {
	var zero T
	if !g.Allowed(ctx, req) {
		return zero, false
	}
	return content(), true
}

// PendingDecision is an asynchronously resolving gate evaluation.
type PendingDecision struct {
	state atomic.Int32
	done  chan struct{}
}

// Start begins resolving a requirement without blocking the caller. The
// returned decision reads GatePending until the check completes.
func (g *AccessGate) Start(ctx context.Context, req AccessRequirement) *PendingDecision {
	pd := &PendingDecision{done: make(chan struct{})}
	pd.state.Store(int32(GatePending))

	go func() {
		defer close(pd.done)
		if g.Allowed(ctx, req) {
			pd.state.Store(int32(GateGranted))
		} else {
			pd.state.Store(int32(GateDenied))
		}
	}()
	return pd
}

// State returns the current gate state without blocking.
func (pd *PendingDecision) State() GateState {
	return GateState(pd.state.Load())
}

// Wait blocks until the decision resolves or ctx is done. Cancellation
// resolves to denied, never to visible.
func (pd *PendingDecision) Wait(ctx context.Context) GateState {
	select {
	case <-pd.done:
		return pd.State()
	case <-ctx.Done():
		return GateDenied
	}
}
