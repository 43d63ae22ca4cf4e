package session

import (
	"errors"

	"github.com/AYShukla05/smartkart-client/api"
)

var (
	// ErrInvalidCredentials is returned when login is rejected by the backend.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrRefreshFailed is returned when no refresh credential is stored or the
	// refresh endpoint rejects it. The transport reacts by forcing a logout.
	// Declared in api so the transport and client share one sentinel.
	ErrRefreshFailed = api.ErrRefreshFailed
)
