package storefake

import (
	"errors"
	"sync"

	"github.com/AYShukla05/smartkart-client/credentials"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credential store for tests.
type FakeStore struct {
	lock    sync.Mutex
	access  string
	refresh string

	// FailWrites makes every mutating call return an error.
	FailWrites bool
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// Seed installs a credential pair directly, bypassing write failure.
func (f *FakeStore) Seed(access, refresh string) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.access = access
	f.refresh = refresh
}

func (f *FakeStore) Access() (string, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.access, f.access != ""
}

func (f *FakeStore) Refresh() (string, bool) {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.refresh, f.refresh != ""
}

func (f *FakeStore) SetPair(access, refresh string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.FailWrites {
		return errors.New("write failed")
	}
	f.access = access
	f.refresh = refresh
	return nil
}

func (f *FakeStore) SetAccess(access string) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.FailWrites {
		return errors.New("write failed")
	}
	f.access = access
	return nil
}

func (f *FakeStore) Clear() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.access = ""
	f.refresh = ""
	return nil
}
