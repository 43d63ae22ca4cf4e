// Package transport implements the authorization pipeline: an
// http.RoundTripper that attaches the stored access credential to protected
// API requests and, on an expired-credential 401, coordinates a single
// in-flight refresh shared by every request that failed concurrently.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/AYShukla05/smartkart-client/api"
	"github.com/AYShukla05/smartkart-client/credentials"
)

// Refresher is the slice of the session manager the pipeline needs: obtain a
// new access credential, or tear the session down when that fails.
type Refresher interface {
	Refresh(ctx context.Context) (string, error)
	Logout()
}

const defaultRefreshTimeout = 15 * time.Second

// Authorizer is the http.RoundTripper in front of every backend call.
type Authorizer struct {
	base           http.RoundTripper
	store          credentials.Store
	apiBase        string
	refreshTimeout time.Duration
	limiter        *rate.Limiter
	log            zerolog.Logger
	coord          *refreshCoordinator

	refresherLock sync.RWMutex
	refresher     Refresher
}

// AuthorizerOption defines a function type to modify the Authorizer instance.
type AuthorizerOption func(*Authorizer)

// WithBase sets the underlying RoundTripper (default http.DefaultTransport).
func WithBase(rt http.RoundTripper) AuthorizerOption {
	return func(a *Authorizer) {
		a.base = rt
	}
}

// WithLogger sets the pipeline logger.
func WithLogger(log zerolog.Logger) AuthorizerOption {
	return func(a *Authorizer) {
		a.log = log
	}
}

// WithRefreshTimeout bounds the single-flight refresh call. Without a bound a
// hung refresh would stall every queued request.
func WithRefreshTimeout(d time.Duration) AuthorizerOption {
	return func(a *Authorizer) {
		if d > 0 {
			a.refreshTimeout = d
		}
	}
}

// WithRateLimit applies a client-side request rate limit. rps <= 0 disables it.
func WithRateLimit(rps float64, burst int) AuthorizerOption {
	return func(a *Authorizer) {
		if rps > 0 {
			if burst < 1 {
				burst = 1
			}
			a.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewAuthorizer creates the pipeline. apiBase is the protected API root;
// requests to any other origin are dispatched untouched. The Refresher is
// registered separately (SetRefresher) because the session manager is built
// on top of a client that already uses this transport.
func NewAuthorizer(store credentials.Store, apiBase string, options ...AuthorizerOption) *Authorizer {
	a := &Authorizer{
		base:           http.DefaultTransport,
		store:          store,
		apiBase:        strings.TrimRight(apiBase, "/"),
		refreshTimeout: defaultRefreshTimeout,
		log:            zerolog.Nop(),
		coord:          newRefreshCoordinator(),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// SetRefresher wires the session manager in. Until one is set, a 401 simply
// surfaces to the caller.
func (a *Authorizer) SetRefresher(r Refresher) {
	a.refresherLock.Lock()
	a.refresher = r
	a.refresherLock.Unlock()
}

func (a *Authorizer) getRefresher() Refresher {
	a.refresherLock.RLock()
	defer a.refresherLock.RUnlock()
	return a.refresher
}

// RoundTrip implements http.RoundTripper.
func (a *Authorizer) RoundTrip(req *http.Request) (*http.Response, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	requestID := uuid.NewString()
	attempt := req.Clone(req.Context())
	attempt.Header.Set("X-Request-ID", requestID)

	protected := a.isProtected(req)
	if protected {
		if access, ok := a.store.Access(); ok {
			attempt.Header.Set("Authorization", "Bearer "+access)
		}
	}

	a.log.Debug().
		Str("request_id", requestID).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Msg("dispatch")

	resp, err := a.base.RoundTrip(attempt)
	if err != nil {
		return nil, err
	}

	refresher := a.getRefresher()
	if resp.StatusCode != http.StatusUnauthorized || !protected || isAuthEndpoint(req) || refresher == nil {
		return resp, nil
	}

	// Expired access credential. Recover through the single-flight refresh
	// and replay the request once with the resolved credential.
	access, refreshErr := a.resolveRefresh(req.Context(), refresher)
	if refreshErr != nil {
		drain(resp)
		a.log.Debug().Str("request_id", requestID).Err(refreshErr).Msg("refresh failed")
		return nil, refreshErr
	}

	retry, retryErr := cloneForRetry(req)
	if retryErr != nil {
		// A streaming body cannot be replayed; surface the original 401.
		a.log.Warn().Str("request_id", requestID).Err(retryErr).Msg("cannot replay request")
		return resp, nil
	}
	drain(resp)

	retry.Header.Set("X-Request-ID", requestID)
	retry.Header.Set("Authorization", "Bearer "+access)
	a.log.Debug().Str("request_id", requestID).Msg("replaying with refreshed credential")

	// A second 401 here surfaces as-is; requests are never retried twice.
	return a.base.RoundTrip(retry)
}

// resolveRefresh either performs the refresh (first caller) or waits for the
// in-flight one. All waiters receive the same outcome, in the order their
// wait was registered.
func (a *Authorizer) resolveRefresh(ctx context.Context, refresher Refresher) (string, error) {
	leader, wait := a.coord.join()
	if !leader {
		select {
		case res := <-wait:
			return res.token, res.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	// The leader refreshes on behalf of every queued request, so the call is
	// detached from the leader's own request context and bounded instead by
	// the configured timeout.
	refreshCtx, cancel := context.WithTimeout(context.Background(), a.refreshTimeout)
	access, err := refresher.Refresh(refreshCtx)
	cancel()
	if err != nil {
		if !errors.Is(err, api.ErrRefreshFailed) {
			err = fmt.Errorf("%w: %w", api.ErrRefreshFailed, err)
		}
		refresher.Logout()
	}
	a.coord.finish(access, err)
	return access, err
}

// isProtected reports whether the request targets the API base. Requests to
// other origins (object storage uploads and the like) never carry the bearer
// credential. The match is anchored at a path boundary so a sibling path
// sharing the base as a string prefix does not receive it.
func (a *Authorizer) isProtected(req *http.Request) bool {
	target := req.URL.String()
	return target == a.apiBase || strings.HasPrefix(target, a.apiBase+"/")
}

// isAuthEndpoint matches the endpoints that must never trigger a refresh,
// or a rejected login would try to refresh itself forever.
func isAuthEndpoint(req *http.Request) bool {
	path := req.URL.Path
	return strings.Contains(path, "/auth/login") ||
		strings.Contains(path, "/auth/register") ||
		strings.Contains(path, "/auth/refresh")
}

func cloneForRetry(req *http.Request) (*http.Request, error) {
	retry := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return retry, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body is not replayable")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("reopen request body: %w", err)
	}
	retry.Body = body
	return retry, nil
}

func drain(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}
