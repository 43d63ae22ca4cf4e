package session_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/AYShukla05/smartkart-client/api"
	"github.com/AYShukla05/smartkart-client/credentials/storefake"
	"github.com/AYShukla05/smartkart-client/internal/backendtest"
	"github.com/AYShukla05/smartkart-client/session"
	"github.com/AYShukla05/smartkart-client/transport"
)

const (
	testEmail    = "buyer@example.com"
	testPassword = "password123"
)

type testFixture struct {
	backend   *backendtest.Backend
	store     *storefake.FakeStore
	manager   *session.Manager
	loggedOut *bool
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	backend := backendtest.New(t)
	backend.AddAccount(testEmail, testPassword, backendtest.Profile{
		ID:       1,
		Role:     "BUYER",
		IsActive: true,
	})

	store := storefake.NewFakeStore()
	authorizer := transport.NewAuthorizer(store, backend.URL())
	client := api.NewClient(backend.URL(), &http.Client{Transport: authorizer})

	loggedOut := false
	manager := session.NewManager(client, store,
		session.WithLogoutHook(func() { loggedOut = true }),
	)
	authorizer.SetRefresher(manager)

	return &testFixture{
		backend:   backend,
		store:     store,
		manager:   manager,
		loggedOut: &loggedOut,
	}
}

func TestLoginPublishesUser(t *testing.T) {
	f := setupTestFixture(t)

	user, err := f.manager.Login(context.Background(), session.Credentials{
		Email:    testEmail,
		Password: testPassword,
	})
	require.NoError(t, err)
	require.Equal(t, testEmail, user.Email)

	require.True(t, f.manager.IsAuthenticated())
	require.True(t, f.manager.IsBuyer())
	require.False(t, f.manager.IsSeller())
	require.False(t, f.manager.IsAdmin())
	require.Equal(t, session.RoleBuyer, f.manager.UserRole())
	require.True(t, f.manager.IsInitialized())
	require.False(t, f.manager.IsLoading())

	_, hasAccess := f.store.Access()
	_, hasRefresh := f.store.Refresh()
	require.True(t, hasAccess)
	require.True(t, hasRefresh)
}

func TestLoginInvalidCredentials(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.Login(context.Background(), session.Credentials{
		Email:    testEmail,
		Password: "wrong",
	})
	require.ErrorIs(t, err, session.ErrInvalidCredentials)
	require.Nil(t, f.manager.CurrentUser())
	require.False(t, f.manager.IsLoading())

	_, hasAccess := f.store.Access()
	require.False(t, hasAccess)
}

func TestRegisterEstablishesSession(t *testing.T) {
	f := setupTestFixture(t)

	user, err := f.manager.Register(context.Background(), session.Registration{
		Email:    "seller@example.com",
		Password: "password123",
		Role:     session.RoleSeller,
	})
	require.NoError(t, err)
	require.Equal(t, "seller@example.com", user.Email)
	require.True(t, f.manager.IsSeller())
	require.True(t, f.manager.IsInitialized())
}

func TestRegisterValidationErrorPassesThrough(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.Register(context.Background(), session.Registration{
		Email:    "new@example.com",
		Password: "short",
		Role:     session.RoleBuyer,
	})
	require.True(t, api.IsValidation(err))
	require.Nil(t, f.manager.CurrentUser())
	require.False(t, f.manager.IsLoading())

	_, hasAccess := f.store.Access()
	require.False(t, hasAccess)
}

func TestStartWithoutCredentialInitializesImmediately(t *testing.T) {
	f := setupTestFixture(t)

	f.manager.Start(context.Background())

	require.True(t, f.manager.IsInitialized())
	require.Nil(t, f.manager.CurrentUser())
	require.False(t, f.manager.HasStoredCredential())
}

func TestStartWithExpiredCredentialsClearsSession(t *testing.T) {
	f := setupTestFixture(t)
	access, refresh := f.backend.IssuePair(testEmail)
	f.store.Seed(access, refresh)
	f.backend.ExpireAccess()
	f.backend.FailRefresh()

	f.manager.Start(context.Background())

	require.True(t, f.manager.IsInitialized())
	require.Nil(t, f.manager.CurrentUser())
	_, hasAccess := f.store.Access()
	_, hasRefresh := f.store.Refresh()
	require.False(t, hasAccess)
	require.False(t, hasRefresh)
}

func TestStartRestoresSessionThroughRefresh(t *testing.T) {
	f := setupTestFixture(t)
	access, refresh := f.backend.IssuePair(testEmail)
	f.store.Seed(access, refresh)
	f.backend.ExpireAccess()

	f.manager.Start(context.Background())

	require.True(t, f.manager.IsInitialized())
	require.True(t, f.manager.IsAuthenticated())
	require.Equal(t, 1, f.backend.RefreshCalls())
}

func TestLogoutClearsCredentialsAndUser(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.manager.Login(context.Background(), session.Credentials{
		Email:    testEmail,
		Password: testPassword,
	})
	require.NoError(t, err)

	f.manager.Logout()

	require.Nil(t, f.manager.CurrentUser())
	require.False(t, f.manager.IsAuthenticated())
	_, hasAccess := f.store.Access()
	_, hasRefresh := f.store.Refresh()
	require.False(t, hasAccess)
	require.False(t, hasRefresh)
	require.True(t, *f.loggedOut)
}

func TestLogoutDuringLoginKeepsCredentialsAbsent(t *testing.T) {
	f := setupTestFixture(t)
	release := f.backend.GateLogin()
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := f.manager.Login(context.Background(), session.Credentials{
			Email:    testEmail,
			Password: testPassword,
		})
		done <- err
	}()

	// Log out while the login response is held in flight, then let the
	// exchange settle. The stale pair must never survive in the store.
	require.Eventually(t, func() bool {
		return f.backend.LoginAttempts() == 1
	}, 5*time.Second, 10*time.Millisecond)
	f.manager.Logout()
	release()

	require.Error(t, <-done)
	require.Nil(t, f.manager.CurrentUser())
	_, hasAccess := f.store.Access()
	_, hasRefresh := f.store.Refresh()
	require.False(t, hasAccess)
	require.False(t, hasRefresh)
}

func TestLogoutDuringRefreshDiscardsCredential(t *testing.T) {
	f := setupTestFixture(t)
	access, refresh := f.backend.IssuePair(testEmail)
	f.store.Seed(access, refresh)
	release := f.backend.GateRefresh()
	defer release()

	done := make(chan error, 1)
	go func() {
		_, err := f.manager.Refresh(context.Background())
		done <- err
	}()

	require.Eventually(t, func() bool {
		return f.backend.RefreshAttempts() == 1
	}, 5*time.Second, 10*time.Millisecond)
	f.manager.Logout()
	release()

	require.ErrorIs(t, <-done, session.ErrRefreshFailed)
	_, hasAccess := f.store.Access()
	_, hasRefresh := f.store.Refresh()
	require.False(t, hasAccess)
	require.False(t, hasRefresh)
}

func TestRefreshWithoutStoredCredential(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.manager.Refresh(context.Background())
	require.ErrorIs(t, err, session.ErrRefreshFailed)
}

func TestRefreshStoresNewAccessCredential(t *testing.T) {
	f := setupTestFixture(t)
	access, refresh := f.backend.IssuePair(testEmail)
	f.store.Seed(access, refresh)

	newAccess, err := f.manager.Refresh(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, access, newAccess)

	stored, ok := f.store.Access()
	require.True(t, ok)
	require.Equal(t, newAccess, stored)

	// The refresh credential is untouched.
	storedRefresh, ok := f.store.Refresh()
	require.True(t, ok)
	require.Equal(t, refresh, storedRefresh)
}

func TestTokenExpiry(t *testing.T) {
	f := setupTestFixture(t)

	expires := time.Now().Add(30 * time.Minute).Truncate(time.Second)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expires),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	f.store.Seed(token, "refresh-token")

	exp, ok := f.manager.TokenExpiry()
	require.True(t, ok)
	require.Equal(t, expires.Unix(), exp.Unix())
	require.False(t, f.manager.TokenIsStale())
}

func TestTokenIsStale(t *testing.T) {
	f := setupTestFixture(t)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	f.store.Seed(token, "refresh-token")

	require.True(t, f.manager.TokenIsStale())
}

func TestTokenExpiryWithOpaqueToken(t *testing.T) {
	f := setupTestFixture(t)
	f.store.Seed("not-a-jwt", "refresh-token")

	_, ok := f.manager.TokenExpiry()
	require.False(t, ok)
	require.False(t, f.manager.TokenIsStale())
}
