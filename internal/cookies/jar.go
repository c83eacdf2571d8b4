package cookies

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	"golang.org/x/net/publicsuffix"
)

// Jar implements http.CookieJar on top of a WritableStore, so cookies
// collected by an HTTP client land in the store and show up in its change feed.
type Jar struct {
	mu     sync.RWMutex
	jar    *cookiejar.Jar // In-memory jar for standard matching behavior
	store  WritableStore
	logger *slog.Logger
}

// NewJar creates a jar seeded with the store's current cookies.
func NewJar(ctx context.Context, store WritableStore, logger *slog.Logger) (*Jar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{
		PublicSuffixList: publicsuffix.List,
	})
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	j := &Jar{
		jar:    jar,
		store:  store,
		logger: logger,
	}

	if err := j.load(ctx); err != nil {
		return nil, err
	}

	return j, nil
}

// load copies all non-expired cookies from the store into memory.
func (j *Jar) load(ctx context.Context) error {
	all, err := j.store.GetAll(ctx)
	if err != nil {
		return err
	}

	byHost := make(map[string][]*http.Cookie)
	for _, c := range all {
		if c.IsExpired() {
			continue
		}
		byHost[c.Host()] = append(byHost[c.Host()], c.ToHTTPCookie())
	}

	for host, hostCookies := range byHost {
		u := &url.URL{
			Scheme: "https",
			Host:   host,
			Path:   "/",
		}
		j.jar.SetCookies(u, hostCookies)
	}

	return nil
}

// SetCookies implements http.CookieJar.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.jar.SetCookies(u, cookies)

	ctx := context.Background()
	for _, hc := range cookies {
		c := FromHTTPCookie(u, hc)

		if hc.MaxAge < 0 {
			if err := j.store.Remove(ctx, c.RemovalURL(), c.Name); err != nil {
				j.logger.Warn("failed to remove cookie", "domain", c.Domain, "name", c.Name, "error", err)
			}
			continue
		}

		if err := j.store.Set(ctx, c); err != nil {
			j.logger.Warn("failed to store cookie", "domain", c.Domain, "name", c.Name, "error", err)
		}
	}
}

// Cookies implements http.CookieJar.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return j.jar.Cookies(u)
}
