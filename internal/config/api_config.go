package config

import "time"

type APIConfig interface {
	GetAPIBaseURL() string
	GetHTTPTimeout() time.Duration
	GetRefreshTimeout() time.Duration
	GetRequestsPerSecond() float64
}

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the protected API base. Bearer credentials are only
// ever attached to requests under this URL.
func (API) GetAPIBaseURL() string {
	return GetEnv("API_BASE_URL", "http://localhost:8000/api")
}

func (API) GetHTTPTimeout() time.Duration {
	return durationEnv("HTTP_TIMEOUT", 30*time.Second)
}

// GetRefreshTimeout bounds the single-flight token refresh so a hung refresh
// cannot stall queued requests indefinitely.
func (API) GetRefreshTimeout() time.Duration {
	return durationEnv("REFRESH_TIMEOUT", 15*time.Second)
}

// GetRequestsPerSecond returns the client-side rate limit. Zero disables it.
func (API) GetRequestsPerSecond() float64 {
	return floatEnv("REQUESTS_PER_SECOND", 0)
}
