// Package session owns the authenticated user state: login, registration,
// logout, token refresh, and the startup identity load. Everything else in
// the client reads session state through it.
package session

// Role is the account role assigned by the backend at registration.
type Role string

const (
	RoleBuyer  Role = "BUYER"
	RoleSeller Role = "SELLER"
)

// User is the profile returned by GET /users/me/. Role and staff flag are
// fixed for the lifetime of the session; a server-side change requires a
// fresh login to become visible.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	IsActive bool   `json:"is_active"`
	IsStaff  bool   `json:"is_staff"`
}

// Credentials is the login request payload.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Registration is the account creation payload.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

type loginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type registerResponse struct {
	User struct {
		Email string `json:"email"`
		Role  Role   `json:"role"`
	} `json:"user"`
	Tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
}

type refreshResponse struct {
	Access string `json:"access"`
}
