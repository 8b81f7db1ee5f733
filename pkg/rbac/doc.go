// Package rbac is the role-based access-control decision core of the QRMFG
// quality-review portal. Every screen, navigation entry and data view
// consults it before rendering.
//
// The package is organized around five components:
//
//   - PrincipalContext: session-scoped source of truth for the
//     authenticated principal, derived from credential claims.
//   - Engine: resolves screen, data and role requirements against static
//     local tables with a remote fallback, caching non-pure decisions.
//   - NavigationBuilder: filters the static menu table per principal.
//   - AccessGate: the single conditional-rendering abstraction.
//   - FilterByPlant: plant-dimension data scoping orthogonal to roles.
//
// The security posture throughout is fail closed: missing principals,
// unrecognized roles, unmapped resources, transport errors and timeouts
// all resolve to deny. A denied gate renders nothing rather than an error,
// so denial is indistinguishable from absence.
package rbac
