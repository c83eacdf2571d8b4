package nativehost

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/artpar/cookiesweep/internal/cache"
)

// startHost wires a browser store, cache manager and host to a fake browser.
func startHost(t *testing.T, opts []cache.Option, initial ...wireCookie) (*cache.Manager, *fakeBrowser) {
	t.Helper()

	conn, browser := newPipe(t, initial...)
	store := NewBrowserStore(conn)
	t.Cleanup(store.Close)

	opts = append(opts, cache.WithRefreshDelay(10*time.Millisecond))
	mgr := cache.New(store, opts...)
	host := NewHost(conn, store, mgr, nil)
	mgr.OnRefresh(host.Refresh)

	serve(t, conn, host)
	require.NoError(t, mgr.Start(context.Background()))
	t.Cleanup(mgr.Stop)

	return mgr, browser
}

func decode[T any](t *testing.T, msg *Message) T {
	t.Helper()
	require.True(t, msg.Ok, "response error: %s", msg.Error)
	var v T
	require.NoError(t, json.Unmarshal(msg.Result, &v))
	return v
}

func TestHost_Domains(t *testing.T) {
	_, browser := startHost(t,
		[]cache.Option{cache.WithProtected("bank")},
		wire("www.example.com", "a"),
		wire("www.example.com", "b"),
		wire(".mybank.com", "s"),
	)

	// Initial refresh after the bulk load.
	ev := browser.waitEvent()
	assert.Equal(t, EventRefresh, ev.Method)

	result := decode[DomainsResult](t, browser.request(MethodDomains, DomainsParams{}))
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Domains, 2)
	assert.Equal(t, DomainEntry{Domain: ".mybank.com", Site: "mybank.com", Count: 1, Protected: true}, result.Domains[0])
	assert.Equal(t, DomainEntry{Domain: "www.example.com", Site: "example.com", Count: 2}, result.Domains[1])

	filtered := decode[DomainsResult](t, browser.request(MethodDomains, DomainsParams{Filter: "example"}))
	require.Len(t, filtered.Domains, 1)
	assert.Equal(t, "www.example.com", filtered.Domains[0].Domain)

	count := decode[map[string]int](t, browser.request(MethodCount, DomainParams{Domain: "www.example.com"}))
	assert.Equal(t, 2, count["count"])
}

func TestHost_ChangeEvents(t *testing.T) {
	mgr, browser := startHost(t, nil)
	browser.waitEvent()

	browser.change(wire("tracker.net", "id"), false)
	require.Eventually(t, func() bool {
		return mgr.CookieCount("tracker.net") == 1
	}, 2*time.Second, 5*time.Millisecond)

	ev := browser.waitEvent()
	assert.Equal(t, EventRefresh, ev.Method)
	stats := decode[cache.Stats](t, &Message{Ok: true, Result: ev.Params})
	assert.Equal(t, 1, stats.Cookies)

	browser.change(wire("tracker.net", "id"), true)
	require.Eventually(t, func() bool {
		return mgr.TotalDomains() == 0
	}, 2*time.Second, 5*time.Millisecond)
}

func TestHost_DeleteDomainRoundTrip(t *testing.T) {
	secure := wire(".example.com", "sid")
	secure.Secure = true
	mgr, browser := startHost(t, nil, secure, wire("example.com", "pref"), wire("news.org", "n"))
	browser.waitEvent()

	result := decode[DeleteResult](t, browser.request(MethodDeleteDomain, DomainParams{Domain: ".example.com"}))
	assert.Equal(t, DeleteResult{Requested: 1}, result)
	assert.Equal(t, []RemoveParams{{URL: "https://.example.com/", Name: "sid"}}, browser.removals())

	require.Eventually(t, func() bool {
		return mgr.CookieCount(".example.com") == 0
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"example.com", "news.org"}, mgr.Domains(""))
}

func TestHost_DeleteAllExceptProtected(t *testing.T) {
	mgr, browser := startHost(t,
		[]cache.Option{cache.WithProtected("ads")},
		wire("example.com", "c1"),
		wire("ads.example.com", "c2"),
	)
	browser.waitEvent()

	result := decode[DeleteResult](t, browser.request(MethodDeleteAll, nil))
	assert.Equal(t, DeleteResult{Requested: 1}, result)
	assert.Equal(t, []RemoveParams{{URL: "http://example.com/", Name: "c1"}}, browser.removals())

	require.Eventually(t, func() bool {
		return mgr.TotalCookies() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"ads.example.com"}, mgr.Domains(""))
}

func TestHost_DeleteFilteredWithFailure(t *testing.T) {
	mgr, browser := startHost(t, nil, wire("a.example.com", "keep"), wire("b.example.com", "go"))
	browser.waitEvent()

	browser.mu.Lock()
	browser.failRm = "keep"
	browser.mu.Unlock()

	result := decode[DeleteResult](t, browser.request(MethodDeleteFiltered, DomainsParams{Filter: "example"}))
	assert.Equal(t, DeleteResult{Requested: 2, Failed: 1}, result)

	require.Eventually(t, func() bool {
		return mgr.TotalCookies() == 1
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"a.example.com"}, mgr.Domains(""))
}

func TestHost_BadRequests(t *testing.T) {
	_, browser := startHost(t, nil)
	browser.waitEvent()

	resp := browser.request(MethodDeleteDomain, DomainParams{})
	assert.False(t, resp.Ok)
	assert.Equal(t, "domain is required", resp.Error)

	resp = browser.request("unknown", nil)
	assert.False(t, resp.Ok)
	assert.Contains(t, resp.Error, "unknown method")
}
