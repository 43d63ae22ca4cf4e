package transport

import "sync"

// refreshCoordinator is the refresh coordination state: whether a refresh is
// in flight and who is queued behind it. It is owned by the Authorizer, not
// package-global, so two pipelines never share a flight.
type refreshCoordinator struct {
	lock     sync.Mutex
	inFlight bool
	waiters  []chan refreshResult
}

type refreshResult struct {
	token string
	err   error
}

func newRefreshCoordinator() *refreshCoordinator {
	return &refreshCoordinator{}
}

// join registers the caller in the current refresh cycle. The first caller
// becomes the leader and must perform the refresh and call finish; every
// other caller receives a channel that delivers the shared outcome. A caller
// arriving after finish starts a fresh cycle.
func (c *refreshCoordinator) join() (leader bool, wait <-chan refreshResult) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if !c.inFlight {
		c.inFlight = true
		return true, nil
	}
	ch := make(chan refreshResult, 1)
	c.waiters = append(c.waiters, ch)
	return false, ch
}

// finish broadcasts the outcome to the queued waiters in the order their
// wait was registered, then closes the cycle.
func (c *refreshCoordinator) finish(token string, err error) {
	c.lock.Lock()
	waiters := c.waiters
	c.waiters = nil
	c.inFlight = false
	c.lock.Unlock()

	for _, ch := range waiters {
		ch <- refreshResult{token: token, err: err}
	}
}
