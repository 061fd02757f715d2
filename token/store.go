package token

import (
	"sync"

	"golang.org/x/oauth2"
)

// Listener is notified after every change of the stored token. A nil token
// means the store was cleared.
type Listener func(tok *oauth2.Token)

// Store is the in-memory holder of the current access token. It is created once
// per process (or per test) and passed by reference to whoever needs it.
// It never writes the token to durable storage.
type Store struct {
	lock      sync.RWMutex
	current   *oauth2.Token
	listeners map[int]Listener
	nextID    int
	// generation moves on every Set and Clear
	generation uint64
}

var _ oauth2.TokenSource = (*Store)(nil)

func NewStore() *Store {
	return &Store{listeners: make(map[int]Listener)}
}

// Get returns a copy of the current token, or nil when no token is set.
func (s *Store) Get() *oauth2.Token {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// AccessToken returns the raw bearer string, or "" when no token is set.
func (s *Store) AccessToken() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.current == nil {
		return ""
	}
	return s.current.AccessToken
}

// Current returns a copy of the current token together with the store generation.
func (s *Store) Current() (*oauth2.Token, uint64) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.current == nil {
		return nil, s.generation
	}
	cp := *s.current
	return &cp, s.generation
}

// Set replaces the current token. An empty raw value behaves like Clear.
func (s *Store) Set(raw string) *oauth2.Token {
	if raw == "" {
		s.Clear()
		return nil
	}
	tok, _ := s.set(raw, nil)
	return tok
}

// SetIf stores raw only if nothing has been set or cleared since generation
// was read with Current. It reports whether the token was stored.
func (s *Store) SetIf(raw string, generation uint64) (*oauth2.Token, bool) {
	if raw == "" {
		return nil, false
	}
	return s.set(raw, &generation)
}

func (s *Store) set(raw string, expected *uint64) (*oauth2.Token, bool) {
	tok := New(raw)
	s.lock.Lock()
	if expected != nil && *expected != s.generation {
		s.lock.Unlock()
		return nil, false
	}
	s.current = tok
	s.generation++
	listeners := s.snapshotListeners()
	s.lock.Unlock()

	cp := *tok
	notify(listeners, &cp)
	return &cp, true
}

// Clear drops the current token. The generation moves even when the store is
// already empty, so a pending SetIf from before the clear is refused.
func (s *Store) Clear() {
	s.clear(nil)
}

// ClearIf clears the store only if generation is still current.
func (s *Store) ClearIf(generation uint64) bool {
	return s.clear(&generation)
}

func (s *Store) clear(expected *uint64) bool {
	s.lock.Lock()
	if expected != nil && *expected != s.generation {
		s.lock.Unlock()
		return false
	}
	s.generation++
	if s.current == nil {
		s.lock.Unlock()
		return true
	}
	s.current = nil
	listeners := s.snapshotListeners()
	s.lock.Unlock()

	notify(listeners, nil)
	return true
}

// Subscribe registers fn for token changes and returns a function that removes it.
func (s *Store) Subscribe(fn Listener) (unsubscribe func()) {
	s.lock.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lock.Lock()
			delete(s.listeners, id)
			s.lock.Unlock()
		})
	}
}

// Token implements oauth2.TokenSource.
func (s *Store) Token() (*oauth2.Token, error) {
	tok := s.Get()
	if tok == nil {
		return nil, ErrNoToken
	}
	return tok, nil
}

// must be called with the lock held
func (s *Store) snapshotListeners() []Listener {
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

func notify(listeners []Listener, tok *oauth2.Token) {
	for _, l := range listeners {
		l(tok)
	}
}
