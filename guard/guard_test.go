package guard_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/AYShukla05/smartkart-client/guard"
)

// fakeSession implements guard.SessionState with direct control over the
// initialization channel.
type fakeSession struct {
	hasCred     bool
	initialized chan struct{}
	buyer       bool
	seller      bool
	admin       bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{initialized: make(chan struct{})}
}

func (f *fakeSession) settle() {
	close(f.initialized)
}

func (f *fakeSession) HasStoredCredential() bool    { return f.hasCred }
func (f *fakeSession) Initialized() <-chan struct{} { return f.initialized }
func (f *fakeSession) IsBuyer() bool                { return f.buyer }
func (f *fakeSession) IsSeller() bool               { return f.seller }
func (f *fakeSession) IsAdmin() bool                { return f.admin }

func TestBuyerDeniesImmediatelyWithoutCredential(t *testing.T) {
	s := newFakeSession() // initialized never settles

	decision := guard.Buyer(context.Background(), s)
	require.False(t, decision.Allow)
	require.Equal(t, "/login", decision.RedirectTo)
}

func TestGuestAllowsImmediatelyWithoutCredential(t *testing.T) {
	s := newFakeSession()

	decision := guard.Guest(context.Background(), s)
	require.True(t, decision.Allow)
}

func TestBuyerWaitsForInitialization(t *testing.T) {
	s := newFakeSession()
	s.hasCred = true

	results := make(chan guard.Decision, 1)
	go func() {
		results <- guard.Buyer(context.Background(), s)
	}()

	// The guard must not resolve while the identity load is still pending.
	select {
	case <-results:
		t.Fatal("guard resolved before initialization settled")
	case <-time.After(50 * time.Millisecond):
	}

	s.buyer = true
	s.settle()

	select {
	case decision := <-results:
		require.True(t, decision.Allow)
	case <-time.After(time.Second):
		t.Fatal("guard did not resolve after initialization")
	}
}

func TestRoleMismatchRedirectsHome(t *testing.T) {
	s := newFakeSession()
	s.hasCred = true
	s.seller = true
	s.settle()

	decision := guard.Buyer(context.Background(), s)
	require.False(t, decision.Allow)
	require.Equal(t, "/", decision.RedirectTo)

	decision = guard.Seller(context.Background(), s)
	require.True(t, decision.Allow)
}

func TestAdminChecksStaffFlag(t *testing.T) {
	s := newFakeSession()
	s.hasCred = true
	s.admin = true
	s.settle()

	require.True(t, guard.Admin(context.Background(), s).Allow)

	s2 := newFakeSession()
	s2.hasCred = true
	s2.buyer = true
	s2.settle()

	decision := guard.Admin(context.Background(), s2)
	require.False(t, decision.Allow)
	require.Equal(t, "/", decision.RedirectTo)
}

func TestGuestRedirectsByRole(t *testing.T) {
	cases := []struct {
		name     string
		mutate   func(*fakeSession)
		redirect string
	}{
		{"admin", func(s *fakeSession) { s.admin = true }, "/admin"},
		{"seller", func(s *fakeSession) { s.seller = true }, "/seller"},
		{"buyer", func(s *fakeSession) { s.buyer = true }, "/"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newFakeSession()
			s.hasCred = true
			tc.mutate(s)
			s.settle()

			decision := guard.Guest(context.Background(), s)
			require.False(t, decision.Allow)
			require.Equal(t, tc.redirect, decision.RedirectTo)
		})
	}
}

func TestGuardsResolveWhenInitializationNeverSettles(t *testing.T) {
	s := newFakeSession()
	s.hasCred = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	decision := guard.Buyer(ctx, s)
	require.False(t, decision.Allow)
	require.Equal(t, "/login", decision.RedirectTo)

	ctx2, cancel2 := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel2()
	require.True(t, guard.Guest(ctx2, s).Allow)
}
