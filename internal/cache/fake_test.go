package cache

import (
	"context"
	"slices"
	"sync"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// fakeStore is an in-memory cookies.Store that delivers notifications
// synchronously on the caller's goroutine.
type fakeStore struct {
	mu        sync.Mutex
	cookies   []*cookies.Cookie
	listeners []cookies.ChangeListener
	removals  []string
	failFor   map[string]error // keyed by cookie name
	getAllErr error
	echo      bool // emit removal notifications from Remove

	// afterSnapshot runs once GetAll has copied its result, before it returns.
	afterSnapshot func()
}

func newFakeStore(initial ...*cookies.Cookie) *fakeStore {
	return &fakeStore{
		cookies: initial,
		failFor: make(map[string]error),
		echo:    true,
	}
}

func (s *fakeStore) GetAll(ctx context.Context) ([]*cookies.Cookie, error) {
	s.mu.Lock()
	if s.getAllErr != nil {
		s.mu.Unlock()
		return nil, s.getAllErr
	}
	out := make([]*cookies.Cookie, len(s.cookies))
	copy(out, s.cookies)
	hook := s.afterSnapshot
	s.afterSnapshot = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (s *fakeStore) Remove(ctx context.Context, rawURL, name string) error {
	s.mu.Lock()
	s.removals = append(s.removals, rawURL+"#"+name)
	if err := s.failFor[name]; err != nil {
		s.mu.Unlock()
		return err
	}

	var gone []*cookies.Cookie
	kept := s.cookies[:0]
	for _, c := range s.cookies {
		if c.RemovalURL() == rawURL && c.Name == name {
			gone = append(gone, c)
			continue
		}
		kept = append(kept, c)
	}
	s.cookies = kept
	echo := s.echo
	s.mu.Unlock()

	if echo {
		for _, c := range gone {
			s.emit(cookies.ChangeEvent{Cookie: clone(c), Removed: true, Cause: cookies.CauseExplicit})
		}
	}
	return nil
}

func (s *fakeStore) Subscribe(l cookies.ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, l)
}

func (s *fakeStore) Unsubscribe(l cookies.ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.listeners {
		if existing == l {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// set adds or replaces a cookie and emits browser-style notifications.
func (s *fakeStore) set(c *cookies.Cookie) {
	s.mu.Lock()
	var previous *cookies.Cookie
	for i, existing := range s.cookies {
		if existing.SameIdentity(c) {
			previous = existing
			s.cookies = append(s.cookies[:i], s.cookies[i+1:]...)
			break
		}
	}
	s.cookies = append(s.cookies, c)
	s.mu.Unlock()

	if previous != nil {
		s.emit(cookies.ChangeEvent{Cookie: clone(previous), Removed: true, Cause: cookies.CauseOverwrite})
	}
	s.emit(cookies.ChangeEvent{Cookie: clone(c), Cause: cookies.CauseExplicit})
}

func (s *fakeStore) emit(ev cookies.ChangeEvent) {
	s.mu.Lock()
	listeners := make([]cookies.ChangeListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, l := range listeners {
		l.OnChange(ev)
	}
}

// remove deletes a cookie by identity and emits a removal notification.
func (s *fakeStore) remove(c *cookies.Cookie) {
	s.mu.Lock()
	var gone *cookies.Cookie
	for i, existing := range s.cookies {
		if existing.SameIdentity(c) {
			gone = existing
			s.cookies = append(s.cookies[:i], s.cookies[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	if gone != nil {
		s.emit(cookies.ChangeEvent{Cookie: clone(gone), Removed: true, Cause: cookies.CauseExplicit})
	}
}

// domains returns the sorted distinct domains currently in the store.
func (s *fakeStore) domains() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, c := range s.cookies {
		if !slices.Contains(out, c.Domain) {
			out = append(out, c.Domain)
		}
	}
	slices.Sort(out)
	return out
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cookies)
}

func (s *fakeStore) listenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

func (s *fakeStore) removalRequests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.removals))
	copy(out, s.removals)
	return out
}

// clone returns a fresh copy, as a store delivering deserialized records would.
func clone(c *cookies.Cookie) *cookies.Cookie {
	cp := *c
	return &cp
}

func cookie(domain, name string) *cookies.Cookie {
	return &cookies.Cookie{
		Name:     name,
		Value:    "v",
		Domain:   domain,
		Path:     "/",
		Session:  true,
		StoreID:  cookies.DefaultStoreID,
		HostOnly: domain != "" && domain[0] != '.',
	}
}
