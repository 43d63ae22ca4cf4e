// Package backendtest runs an in-process SmartKart backend for package
// tests: the four auth operations, the current-user profile, and the cart
// endpoints, with knobs for forcing 401 windows, delaying or failing the
// refresh, and failing cart mutations.
package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
)

// Profile mirrors the backend user shape.
type Profile struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
	IsStaff  bool   `json:"is_staff"`
}

// CartItem mirrors one cart line.
type CartItem struct {
	ID          int64   `json:"id"`
	ProductID   int64   `json:"product_id"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
	Thumbnail   string  `json:"thumbnail"`
}

type account struct {
	password string
	profile  Profile
}

// Backend is the fake server plus its mutable state.
type Backend struct {
	Server *httptest.Server

	lock            sync.Mutex
	accounts        map[string]*account
	validAccess     map[string]string // access token -> email
	validRefresh    map[string]string // refresh token -> email
	tokenSeq        int
	loginAttempts   int
	refreshCalls    int
	refreshAttempts int
	served401       int
	failRefresh     bool
	loginGate       chan struct{}
	refreshGate     chan struct{}
	cartItems       []CartItem
	failCartCall    bool
	cartAlways401   bool
	authorizedLog   []string
}

// New starts the fake backend and registers cleanup with t.
func New(t *testing.T) *Backend {
	t.Helper()
	b := &Backend{
		accounts:     map[string]*account{},
		validAccess:  map[string]string{},
		validRefresh: map[string]string{},
	}
	b.Server = httptest.NewServer(b.router())
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the API base URL of the fake backend.
func (b *Backend) URL() string {
	return b.Server.URL
}

// AddAccount registers a login-able account.
func (b *Backend) AddAccount(email, password string, profile Profile) {
	b.lock.Lock()
	defer b.lock.Unlock()
	profile.Email = email
	b.accounts[email] = &account{password: password, profile: profile}
}

// IssuePair mints a valid credential pair for email, for seeding stores.
func (b *Backend) IssuePair(email string) (access, refresh string) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.issuePair(email)
}

// ExpireAccess invalidates every outstanding access credential. Refresh
// credentials stay valid, so the next refresh succeeds.
func (b *Backend) ExpireAccess() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.validAccess = map[string]string{}
}

// FailRefresh makes the refresh endpoint reject from now on.
func (b *Backend) FailRefresh() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.failRefresh = true
}

// GateRefresh blocks the refresh endpoint until the returned function is
// called, letting tests hold a refresh in flight while more 401s pile up.
func (b *Backend) GateRefresh() (release func()) {
	b.lock.Lock()
	defer b.lock.Unlock()
	gate := make(chan struct{})
	b.refreshGate = gate
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// GateLogin blocks the login endpoint until the returned function is called,
// letting tests act while a login response is held in flight.
func (b *Backend) GateLogin() (release func()) {
	b.lock.Lock()
	defer b.lock.Unlock()
	gate := make(chan struct{})
	b.loginGate = gate
	var once sync.Once
	return func() {
		once.Do(func() { close(gate) })
	}
}

// LoginAttempts reports how many login requests reached the backend,
// including ones still held at the gate.
func (b *Backend) LoginAttempts() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.loginAttempts
}

// RefreshAttempts reports how many refresh requests reached the backend,
// including ones still held at the gate.
func (b *Backend) RefreshAttempts() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.refreshAttempts
}

// RefreshCalls reports how many refresh requests reached the backend.
func (b *Backend) RefreshCalls() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.refreshCalls
}

// Unauthorized401s reports how many 401 responses were served.
func (b *Backend) Unauthorized401s() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.served401
}

// SetCart replaces the server-side cart.
func (b *Backend) SetCart(items []CartItem) {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.cartItems = append([]CartItem(nil), items...)
}

// FailNextCartCall makes the next cart mutation respond 500.
func (b *Backend) FailNextCartCall() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.failCartCall = true
}

// AuthorizedLog lists successfully authorized requests in arrival order,
// as "METHOD path?query".
func (b *Backend) AuthorizedLog() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]string(nil), b.authorizedLog...)
}

func (b *Backend) issuePair(email string) (string, string) {
	b.tokenSeq++
	access := fmt.Sprintf("access-%d", b.tokenSeq)
	refresh := fmt.Sprintf("refresh-%d", b.tokenSeq)
	b.validAccess[access] = email
	b.validRefresh[refresh] = email
	return access, refresh
}

func (b *Backend) router() http.Handler {
	r := chi.NewRouter()
	r.Post("/auth/login/", b.handleLogin)
	r.Post("/auth/register/", b.handleRegister)
	r.Post("/auth/refresh/", b.handleRefresh)
	r.Get("/users/me/", b.handleMe)
	r.Get("/cart/", b.handleCartGet)
	r.Post("/cart/items/", b.handleCartAdd)
	r.Patch("/cart/items/{id}/", b.handleCartMutation)
	r.Delete("/cart/items/{id}/", b.handleCartMutation)
	return r
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	b.lock.Lock()
	b.loginAttempts++
	gate := b.loginGate
	b.lock.Unlock()
	if gate != nil {
		<-gate
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	acct, ok := b.accounts[req.Email]
	if !ok || acct.password != req.Password {
		b.served401++
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid credentials"})
		return
	}
	access, refresh := b.issuePair(req.Email)
	writeJSON(w, http.StatusOK, map[string]string{"access": access, "refresh": refresh})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	b.lock.Lock()
	defer b.lock.Unlock()
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"password": {"This password is too short."},
		})
		return
	}
	if _, exists := b.accounts[req.Email]; exists {
		writeJSON(w, http.StatusBadRequest, map[string][]string{
			"email": {"A user with this email already exists."},
		})
		return
	}
	profile := Profile{
		ID:       int64(len(b.accounts) + 1),
		Email:    req.Email,
		Role:     req.Role,
		IsActive: true,
	}
	b.accounts[req.Email] = &account{password: req.Password, profile: profile}
	access, refresh := b.issuePair(req.Email)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":   map[string]string{"email": req.Email, "role": req.Role},
		"tokens": map[string]string{"access": access, "refresh": refresh},
	})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	b.lock.Lock()
	b.refreshAttempts++
	gate := b.refreshGate
	b.lock.Unlock()
	if gate != nil {
		<-gate
	}

	b.lock.Lock()
	defer b.lock.Unlock()
	b.refreshCalls++
	email, ok := b.validRefresh[req.Refresh]
	if b.failRefresh || !ok {
		b.served401++
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}
	b.tokenSeq++
	access := fmt.Sprintf("access-%d", b.tokenSeq)
	b.validAccess[access] = email
	writeJSON(w, http.StatusOK, map[string]string{"access": access})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	email, ok := b.authorize(w, r)
	if !ok {
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	writeJSON(w, http.StatusOK, b.accounts[email].profile)
}

// ForceCartUnauthorized makes the cart endpoints 401 even with a valid
// credential, to exercise the retried-once-then-surface path.
func (b *Backend) ForceCartUnauthorized() {
	b.lock.Lock()
	defer b.lock.Unlock()
	b.cartAlways401 = true
}

func (b *Backend) handleCartGet(w http.ResponseWriter, r *http.Request) {
	b.lock.Lock()
	always401 := b.cartAlways401
	b.lock.Unlock()
	if always401 {
		b.lock.Lock()
		b.served401++
		b.lock.Unlock()
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
		return
	}
	if _, ok := b.authorize(w, r); !ok {
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"items": b.cartItems})
}

func (b *Backend) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorize(w, r); !ok {
		return
	}
	var req struct {
		ProductID int64 `json:"product_id"`
		Quantity  int   `json:"quantity"`
	}
	json.NewDecoder(r.Body).Decode(&req)

	b.lock.Lock()
	defer b.lock.Unlock()
	item := CartItem{
		ID:          int64(len(b.cartItems) + 1),
		ProductID:   req.ProductID,
		ProductName: fmt.Sprintf("product-%d", req.ProductID),
		Price:       10,
		Quantity:    req.Quantity,
	}
	b.cartItems = append(b.cartItems, item)
	writeJSON(w, http.StatusCreated, item)
}

func (b *Backend) handleCartMutation(w http.ResponseWriter, r *http.Request) {
	if _, ok := b.authorize(w, r); !ok {
		return
	}
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.failCartCall {
		b.failCartCall = false
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
		return
	}
	// State stays as seeded; mutation tests assert against the client copy.
	if r.Method == http.MethodDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{})
}

// authorize validates the bearer credential, serving a 401 when it is
// missing or expired.
func (b *Backend) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	b.lock.Lock()
	defer b.lock.Unlock()
	email, ok := b.validAccess[token]
	if !ok {
		b.served401++
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Given token not valid for any token type"})
		return "", false
	}
	b.authorizedLog = append(b.authorizedLog, r.Method+" "+r.URL.RequestURI())
	return email, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
