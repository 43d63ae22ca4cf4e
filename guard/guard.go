// Package guard provides the route-activation predicates. A guard resolves
// exactly once per navigation attempt and never returns an error: the
// outcome is always allow, or deny with a redirect target.
package guard

import "context"

// SessionState is the read-only slice of the session manager guards consult.
type SessionState interface {
	HasStoredCredential() bool
	Initialized() <-chan struct{}
	IsBuyer() bool
	IsSeller() bool
	IsAdmin() bool
}

// Decision is a guard outcome. RedirectTo is set only when Allow is false.
type Decision struct {
	Allow      bool
	RedirectTo string
}

// Guard gates a route. Route tables bind one per protected entry.
type Guard func(ctx context.Context, s SessionState) Decision

func allow() Decision {
	return Decision{Allow: true}
}

func redirect(to string) Decision {
	return Decision{RedirectTo: to}
}

// Guest keeps authenticated users off the login and register routes. Without
// a stored credential it allows immediately; otherwise it waits for the
// identity to settle and redirects to the user's home.
func Guest(ctx context.Context, s SessionState) Decision {
	if !s.HasStoredCredential() {
		return allow()
	}
	if !waitInitialized(ctx, s) {
		// Identity never settled within the navigation's bound; treat the
		// visitor as unauthenticated.
		return allow()
	}
	switch {
	case s.IsAdmin():
		return redirect("/admin")
	case s.IsSeller():
		return redirect("/seller")
	default:
		return redirect("/")
	}
}

// Buyer restricts a route to buyers.
func Buyer(ctx context.Context, s SessionState) Decision {
	return roleGuard(ctx, s, SessionState.IsBuyer)
}

// Seller restricts a route to sellers.
func Seller(ctx context.Context, s SessionState) Decision {
	return roleGuard(ctx, s, SessionState.IsSeller)
}

// Admin restricts a route to staff users.
func Admin(ctx context.Context, s SessionState) Decision {
	return roleGuard(ctx, s, SessionState.IsAdmin)
}

// roleGuard is the shared wait-for-readiness pattern: no credential is
// conclusive on its own, a present credential means the resolved role
// decides.
func roleGuard(ctx context.Context, s SessionState, hasRole func(SessionState) bool) Decision {
	if !s.HasStoredCredential() {
		return redirect("/login")
	}
	if !waitInitialized(ctx, s) {
		return redirect("/login")
	}
	if hasRole(s) {
		return allow()
	}
	return redirect("/")
}

// waitInitialized blocks until the startup identity load settles or ctx
// expires. The ctx bound is what keeps guards from deadlocking if the load
// never resolves.
func waitInitialized(ctx context.Context, s SessionState) bool {
	select {
	case <-s.Initialized():
		return true
	case <-ctx.Done():
		return false
	}
}
