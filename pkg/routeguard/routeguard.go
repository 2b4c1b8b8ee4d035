// Package routeguard maps a session snapshot and a requested path to a
// render or redirect decision. It holds no state and performs no I/O.
package routeguard

import (
	"strings"

	"github.com/buchungsbutler/voiceagent/pkg/session"
)

type Route string

const (
	RouteLanding   Route = "/"
	RouteLogin     Route = "/login"
	RouteRegister  Route = "/register"
	RouteDashboard Route = "/dashboard"
	RouteAdmin     Route = "/admin"
	RoutePending   Route = "/pending"
	RouteRejected  Route = "/rejected"
	RouteSuspended Route = "/suspended"
)

type State string

const (
	StateLoading         State = "loading"
	StateUnauthenticated State = "unauthenticated"
	StateSuperAdmin      State = "superadmin"
	StatePending         State = "pending"
	StateRejected        State = "rejected"
	StateSuspended       State = "suspended"
	StateApproved        State = "approved"
)

type Area int

const (
	AreaUnknown Area = iota
	AreaLanding
	AreaPublicOnly // login and register
	AreaTenant
	AreaAdmin
	AreaPendingNotice
	AreaRejectedNotice
	AreaSuspendedNotice
)

func (a Area) String() string {
	switch a {
	case AreaLanding:
		return "landing"
	case AreaPublicOnly:
		return "public-only"
	case AreaTenant:
		return "tenant"
	case AreaAdmin:
		return "admin"
	case AreaPendingNotice:
		return "pending-notice"
	case AreaRejectedNotice:
		return "rejected-notice"
	case AreaSuspendedNotice:
		return "suspended-notice"
	}
	return "unknown"
}

type Action int

const (
	Render Action = iota
	Redirect
	ShowLoading
)

type Decision struct {
	Action Action
	To     Route // set when Action is Redirect
}

func (d Decision) String() string {
	switch d.Action {
	case Redirect:
		return "redirect " + string(d.To)
	case ShowLoading:
		return "loading"
	}
	return "render"
}

func render() Decision { return Decision{Action: Render} }
func redirect(to Route) Decision { return Decision{Action: Redirect, To: to} }

// StateOf classifies a session. The first matching rule wins: loading, then
// missing credentials, then the super-admin role, then the tenant status.
// An authenticated session with an unrecognised status is treated as
// unauthenticated.
func StateOf(v session.View) State {
	switch {
	case v.Loading:
		return StateLoading
	case !v.IsAuthenticated:
		return StateUnauthenticated
	case v.IsSuperAdmin:
		return StateSuperAdmin
	}
	switch v.TenantStatus {
	case session.StatusPending:
		return StatePending
	case session.StatusRejected:
		return StateRejected
	case session.StatusSuspended:
		return StateSuspended
	case session.StatusApproved:
		return StateApproved
	}
	return StateUnauthenticated
}

// ResolveDestination returns the home route of a session. A loading session
// has no destination and yields the empty route.
func ResolveDestination(v session.View) Route {
	switch StateOf(v) {
	case StateLoading:
		return ""
	case StateSuperAdmin:
		return RouteAdmin
	case StatePending:
		return RoutePending
	case StateRejected:
		return RouteRejected
	case StateSuspended:
		return RouteSuspended
	case StateApproved:
		return RouteDashboard
	}
	return RouteLogin
}

// AreaFor classifies a path. Sub-paths of the dashboard and admin console
// belong to their area; anything unmatched is AreaUnknown.
func AreaFor(path string) Area {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path != "/" {
		path = strings.TrimRight(path, "/")
	}

	switch path {
	case "/", "":
		return AreaLanding
	case string(RouteLogin), string(RouteRegister):
		return AreaPublicOnly
	case string(RoutePending):
		return AreaPendingNotice
	case string(RouteRejected):
		return AreaRejectedNotice
	case string(RouteSuspended):
		return AreaSuspendedNotice
	}
	if under(path, RouteDashboard) {
		return AreaTenant
	}
	if under(path, RouteAdmin) {
		return AreaAdmin
	}
	return AreaUnknown
}

func under(path string, root Route) bool {
	return path == string(root) || strings.HasPrefix(path, string(root)+"/")
}

// Guard decides whether a session may render an area.
func Guard(area Area, v session.View) Decision {
	state := StateOf(v)
	if state == StateLoading {
		return Decision{Action: ShowLoading}
	}

	switch area {
	case AreaLanding:
		return render()
	case AreaUnknown:
		return redirect(RouteLanding)
	case AreaPublicOnly:
		if state == StateUnauthenticated {
			return render()
		}
		return redirect(ResolveDestination(v))
	}

	if state == StateUnauthenticated {
		return redirect(RouteLogin)
	}

	var allowed State
	switch area {
	case AreaTenant:
		allowed = StateApproved
	case AreaAdmin:
		allowed = StateSuperAdmin
	case AreaPendingNotice:
		allowed = StatePending
	case AreaRejectedNotice:
		allowed = StateRejected
	case AreaSuspendedNotice:
		allowed = StateSuspended
	}
	if state == allowed {
		return render()
	}
	return redirect(ResolveDestination(v))
}

// Resolve is Guard applied to the area of path.
func Resolve(path string, v session.View) Decision {
	return Guard(AreaFor(path), v)
}
