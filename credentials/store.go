// Package credentials is the durable persistence boundary for the bearer
// credential pair. Only the session manager writes it; the transport and the
// guards read it.
package credentials

// Storage keys are namespaced so the store stays distinguishable from any
// unrelated data sharing the same file or backend.
const (
	AccessKey  = "smartkart_access_token"
	RefreshKey = "smartkart_refresh_token"
)

// Store holds the access/refresh credential pair. Presence of an access
// credential implies a (possibly stale) refresh credential is present too;
// Clear removes both together.
type Store interface {
	Access() (string, bool)
	Refresh() (string, bool)
	SetPair(access, refresh string) error
	SetAccess(access string) error
	Clear() error
}
