package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The backend issues JWT access credentials. The client never verifies them
// (it holds no key and the server is authoritative); it only decodes the
// registered claims to report expiry.

// TokenExpiry returns the expiry of the stored access credential, when one
// is stored and carries an exp claim.
func (m *Manager) TokenExpiry() (time.Time, bool) {
	access, ok := m.store.Access()
	if !ok {
		return time.Time{}, false
	}
	return m.accessTokenExpiry(access)
}

// TokenIsStale reports whether the stored access credential has expired. A
// stale credential is not an error; the transport refreshes it on the first
// 401 it causes.
func (m *Manager) TokenIsStale() bool {
	exp, ok := m.TokenExpiry()
	return ok && exp.Before(m.nowTime())
}

func (m *Manager) accessTokenExpiry(access string) (time.Time, bool) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
