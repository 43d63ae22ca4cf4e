package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/AYShukla05/smartkart-client/api"
	"github.com/AYShukla05/smartkart-client/credentials"
)

// Manager tracks the active user and orchestrates every credential mutation.
// It is the only writer of the credential store.
type Manager struct {
	api      *api.Client
	store    credentials.Store
	log      zerolog.Logger
	onLogout func()
	nowTime  func() time.Time

	lock       sync.Mutex
	user       *User
	loading    bool
	generation uint64

	initOnce    sync.Once
	initialized chan struct{}
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithLogger sets the session logger.
func WithLogger(log zerolog.Logger) ManagerOption {
	return func(m *Manager) {
		m.log = log
	}
}

// WithLogoutHook registers a callback run synchronously at the end of every
// logout, forced or explicit. Applications use it to navigate to /login.
func WithLogoutHook(hook func()) ManagerOption {
	return func(m *Manager) {
		m.onLogout = hook
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates a Manager over the given API client and credential
// store. Call Start to run the startup identity load; until Start settles,
// Initialized() blocks and role state must not be treated as final.
func NewManager(apiClient *api.Client, store credentials.Store, options ...ManagerOption) *Manager {
	m := &Manager{
		api:         apiClient,
		store:       store,
		log:         zerolog.Nop(),
		nowTime:     time.Now,
		initialized: make(chan struct{}),
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Start performs the startup identity load: with a stored access credential
// it fetches the current profile; on failure it clears both credentials and
// leaves no user. Either way the manager ends up initialized. Safe to run in
// a goroutine; guards wait on Initialized().
func (m *Manager) Start(ctx context.Context) {
	if _, ok := m.store.Access(); !ok {
		m.markInitialized()
		return
	}

	m.setLoading(true)
	gen := m.currentGeneration()

	var user User
	err := m.api.Get(ctx, "/users/me/", &user)

	m.lock.Lock()
	if gen != m.generation {
		// Logged out while the load was in flight; the result is stale.
		m.lock.Unlock()
		m.markInitialized()
		return
	}
	if err != nil {
		m.user = nil
		m.loading = false
		m.lock.Unlock()
		if clearErr := m.store.Clear(); clearErr != nil {
			m.log.Warn().Err(clearErr).Msg("clearing credentials after failed startup load")
		}
		m.log.Debug().Err(err).Msg("startup identity load failed")
		m.markInitialized()
		return
	}
	m.user = &user
	m.loading = false
	m.lock.Unlock()
	m.log.Debug().Str("email", user.Email).Str("role", string(user.Role)).Msg("session restored")
	m.markInitialized()
}

// Login authenticates against the backend, persists the returned credential
// pair and publishes the fetched profile as the active user.
func (m *Manager) Login(ctx context.Context, creds Credentials) (*User, error) {
	m.setLoading(true)
	gen := m.currentGeneration()

	var tokens loginResponse
	if err := m.api.Post(ctx, "/auth/login/", creds, &tokens); err != nil {
		m.setLoading(false)
		if api.IsUnauthorized(err) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return nil, err
	}
	return m.completeAuthentication(ctx, gen, tokens.Access, tokens.Refresh)
}

// Register creates an account and establishes a session from the credential
// pair nested in the response. Field-keyed validation errors pass through
// unchanged as an *api.Error.
func (m *Manager) Register(ctx context.Context, data Registration) (*User, error) {
	m.setLoading(true)
	gen := m.currentGeneration()

	var resp registerResponse
	if err := m.api.Post(ctx, "/auth/register/", data, &resp); err != nil {
		m.setLoading(false)
		return nil, err
	}
	return m.completeAuthentication(ctx, gen, resp.Tokens.Access, resp.Tokens.Refresh)
}

// completeAuthentication stores the credential pair, loads the profile and
// publishes it. On any failure no user is published and the loading flag is
// cleared; session state is otherwise unchanged. A logout that lands while
// the exchange is in flight wins: the pair is never persisted, or is cleared
// again if it was written before the logout was observed.
func (m *Manager) completeAuthentication(ctx context.Context, gen uint64, access, refresh string) (*User, error) {
	if gen != m.currentGeneration() {
		m.setLoading(false)
		return nil, fmt.Errorf("[Manager.completeAuthentication] session ended during login")
	}
	if err := m.store.SetPair(access, refresh); err != nil {
		m.setLoading(false)
		return nil, fmt.Errorf("[Manager.completeAuthentication] store credentials: %w", err)
	}

	var user User
	if err := m.api.Get(ctx, "/users/me/", &user); err != nil {
		m.setLoading(false)
		if gen != m.currentGeneration() {
			m.discardStaleCredentials()
		}
		return nil, err
	}

	m.lock.Lock()
	if gen != m.generation {
		m.lock.Unlock()
		m.discardStaleCredentials()
		return nil, fmt.Errorf("[Manager.completeAuthentication] session ended during login")
	}
	m.user = &user
	m.loading = false
	m.lock.Unlock()

	m.log.Info().Str("email", user.Email).Str("role", string(user.Role)).Msg("logged in")
	m.markInitialized()
	return &user, nil
}

// Logout clears both stored credentials and the active user synchronously.
// It never fails and makes no network call; results of requests still in
// flight are discarded when they settle.
func (m *Manager) Logout() {
	m.lock.Lock()
	m.user = nil
	m.loading = false
	m.generation++
	m.lock.Unlock()

	if err := m.store.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("clearing credentials on logout")
	}
	m.log.Info().Msg("logged out")
	m.markInitialized()
	if m.onLogout != nil {
		m.onLogout()
	}
}

// Refresh exchanges the stored refresh credential for a new access
// credential, persists and returns it. A logout while the exchange is in
// flight fails the refresh and leaves the store clear; the access credential
// must never be re-armed without its refresh half.
func (m *Manager) Refresh(ctx context.Context) (string, error) {
	gen := m.currentGeneration()
	refresh, ok := m.store.Refresh()
	if !ok {
		return "", fmt.Errorf("%w: no refresh credential stored", ErrRefreshFailed)
	}

	var resp refreshResponse
	if err := m.api.Post(ctx, "/auth/refresh/", map[string]string{"refresh": refresh}, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if err := m.store.SetAccess(resp.Access); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	if gen != m.currentGeneration() {
		m.discardStaleCredentials()
		return "", fmt.Errorf("%w: session ended during refresh", ErrRefreshFailed)
	}
	if exp, ok := m.accessTokenExpiry(resp.Access); ok {
		m.log.Debug().Time("expires", exp).Msg("access credential refreshed")
	}
	return resp.Access, nil
}

// CurrentUser returns the active user, or nil when unauthenticated.
func (m *Manager) CurrentUser() *User {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

func (m *Manager) IsAuthenticated() bool {
	return m.CurrentUser() != nil
}

func (m *Manager) IsBuyer() bool {
	u := m.CurrentUser()
	return u != nil && u.Role == RoleBuyer
}

func (m *Manager) IsSeller() bool {
	u := m.CurrentUser()
	return u != nil && u.Role == RoleSeller
}

func (m *Manager) IsAdmin() bool {
	u := m.CurrentUser()
	return u != nil && u.IsStaff
}

// UserRole returns the active user's role, or "" when unauthenticated.
func (m *Manager) UserRole() Role {
	u := m.CurrentUser()
	if u == nil {
		return ""
	}
	return u.Role
}

func (m *Manager) IsLoading() bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.loading
}

// HasStoredCredential reports whether an access credential is persisted,
// regardless of whether the identity behind it has loaded yet.
func (m *Manager) HasStoredCredential() bool {
	_, ok := m.store.Access()
	return ok
}

// Initialized returns a channel closed exactly once, when the startup
// identity load has settled (or immediately when no credential was stored).
// Readers must treat an open channel as "identity unknown, wait".
func (m *Manager) Initialized() <-chan struct{} {
	return m.initialized
}

// IsInitialized reports whether the startup load has settled, without blocking.
func (m *Manager) IsInitialized() bool {
	select {
	case <-m.initialized:
		return true
	default:
		return false
	}
}

func (m *Manager) markInitialized() {
	m.initOnce.Do(func() {
		close(m.initialized)
	})
}

func (m *Manager) setLoading(v bool) {
	m.lock.Lock()
	m.loading = v
	m.lock.Unlock()
}

// discardStaleCredentials removes a pair written by an exchange that settled
// after logout.
func (m *Manager) discardStaleCredentials() {
	if err := m.store.Clear(); err != nil {
		m.log.Warn().Err(err).Msg("clearing credentials written after logout")
	}
}

func (m *Manager) currentGeneration() uint64 {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.generation
}
