package storefake

import (
	"sync"

	"github.com/clubsync/go-club-client/credentials"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore is an in-memory credential store for tests.
type FakeStore struct {
	pair *credentials.TokenPair
	lock sync.RWMutex

	SaveErr  error // returned from Save when set
	LoadErr  error // returned from Load when set
	ClearErr error // returned from Clear when set
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

func (s *FakeStore) Save(pair credentials.TokenPair) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	p := pair
	s.pair = &p
	return nil
}

func (s *FakeStore) Load() (*credentials.TokenPair, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	if s.pair == nil || !s.pair.Complete() {
		return nil, nil
	}
	p := *s.pair
	return &p, nil
}

func (s *FakeStore) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.ClearErr != nil {
		return s.ClearErr
	}
	s.pair = nil
	return nil
}
