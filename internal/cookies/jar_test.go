package cookies

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"testing"
	"time"
)

// mockStore implements WritableStore for testing
type mockStore struct {
	mu        sync.Mutex
	cookies   map[Identity]*Cookie
	setErr    error
	listErr   error
	removed   []string
	listeners []ChangeListener
}

func newMockStore() *mockStore {
	return &mockStore{
		cookies: make(map[Identity]*Cookie),
	}
}

func (m *mockStore) GetAll(ctx context.Context) ([]*Cookie, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []*Cookie
	for _, c := range m.cookies {
		result = append(result, c)
	}
	return result, nil
}

func (m *mockStore) Set(ctx context.Context, cookie *Cookie) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.cookies[cookie.Identity()] = cookie
	return nil
}

func (m *mockStore) Remove(ctx context.Context, rawURL, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := url.Parse(rawURL)
	if err != nil {
		return err
	}
	m.removed = append(m.removed, rawURL+"#"+name)
	for id, c := range m.cookies {
		if c.Host() == u.Hostname() && c.Name == name {
			delete(m.cookies, id)
		}
	}
	return nil
}

func (m *mockStore) Subscribe(l ChangeListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *mockStore) Unsubscribe(l ChangeListener) {}

func (m *mockStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cookies)
}

func TestNewJar(t *testing.T) {
	t.Run("loads existing cookies from store", func(t *testing.T) {
		store := newMockStore()
		store.Set(context.Background(), &Cookie{
			Domain:   "example.com",
			HostOnly: true,
			Path:     "/",
			Name:     "session",
			Value:    "abc123",
			Expires:  time.Now().Add(time.Hour),
		})

		jar, err := NewJar(context.Background(), store, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		u, _ := url.Parse("https://example.com/")
		got := jar.Cookies(u)
		if len(got) != 1 || got[0].Name != "session" {
			t.Fatalf("expected session cookie, got %v", got)
		}
	})

	t.Run("skips expired cookies", func(t *testing.T) {
		store := newMockStore()
		store.Set(context.Background(), &Cookie{
			Domain:  "example.com",
			Path:    "/",
			Name:    "old",
			Expires: time.Now().Add(-time.Hour),
		})

		jar, err := NewJar(context.Background(), store, nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		u, _ := url.Parse("https://example.com/")
		if got := jar.Cookies(u); len(got) != 0 {
			t.Errorf("expected no cookies, got %v", got)
		}
	})

	t.Run("returns store errors", func(t *testing.T) {
		store := newMockStore()
		store.listErr = errors.New("boom")

		if _, err := NewJar(context.Background(), store, nil); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestJar_SetCookies(t *testing.T) {
	t.Run("sets cookies in memory and store", func(t *testing.T) {
		store := newMockStore()
		jar, _ := NewJar(context.Background(), store, nil)

		u, _ := url.Parse("https://example.com/api")
		jar.SetCookies(u, []*http.Cookie{
			{Name: "token", Value: "xyz123", Path: "/api"},
		})

		if got := jar.Cookies(u); len(got) != 1 {
			t.Errorf("expected 1 cookie in memory, got %d", len(got))
		}
		if store.count() != 1 {
			t.Errorf("expected 1 cookie in store, got %d", store.count())
		}
	})

	t.Run("removes cookies deleted via MaxAge", func(t *testing.T) {
		store := newMockStore()
		jar, _ := NewJar(context.Background(), store, nil)

		u, _ := url.Parse("https://example.com/")
		jar.SetCookies(u, []*http.Cookie{
			{Name: "session", Value: "abc", Path: "/"},
		})
		jar.SetCookies(u, []*http.Cookie{
			{Name: "session", Value: "", Path: "/", MaxAge: -1},
		})

		if store.count() != 0 {
			t.Errorf("expected 0 cookies after delete, got %d", store.count())
		}
		if len(store.removed) != 1 || store.removed[0] != "http://example.com/#session" {
			t.Errorf("unexpected removals %v", store.removed)
		}
	})

	t.Run("keeps going when the store rejects a cookie", func(t *testing.T) {
		store := newMockStore()
		store.setErr = errors.New("disk full")
		jar, _ := NewJar(context.Background(), store, nil)

		u, _ := url.Parse("https://example.com/")
		jar.SetCookies(u, []*http.Cookie{{Name: "a", Value: "1"}, {Name: "b", Value: "2"}})

		if got := jar.Cookies(u); len(got) != 2 {
			t.Errorf("expected in-memory cookies despite store failure, got %d", len(got))
		}
	})
}
