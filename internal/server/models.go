package server

import (
	"time"

	"github.com/artpar/cookiesweep/internal/cache"
	"github.com/artpar/cookiesweep/internal/cookies"
)

// DomainEntry is one row of the domain listing.
type DomainEntry struct {
	Domain    string `json:"domain"`
	Site      string `json:"site"`
	Count     int    `json:"count"`
	Protected bool   `json:"protected,omitempty"`
}

// DomainsResponse answers GET /api/domains.
type DomainsResponse struct {
	Filter  string        `json:"filter,omitempty"`
	Domains []DomainEntry `json:"domains"`
	Total   int           `json:"total"`
}

// CookieView describes a cached cookie without its value.
type CookieView struct {
	Name     string    `json:"name"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	HostOnly bool      `json:"host_only"`
	Secure   bool      `json:"secure"`
	HttpOnly bool      `json:"http_only"`
	Session  bool      `json:"session"`
	SameSite string    `json:"same_site,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
}

func newCookieView(c *cookies.Cookie) CookieView {
	return CookieView{
		Name:     c.Name,
		Domain:   c.Domain,
		Path:     c.Path,
		HostOnly: c.HostOnly,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		Session:  c.Session,
		SameSite: c.SameSite,
		Expires:  c.Expires,
	}
}

// Delete scopes accepted by POST /api/delete.
const (
	ScopeDomain   = "domain"
	ScopeFiltered = "filtered"
	ScopeAll      = "all"
)

// DeleteRequest is the body of POST /api/delete.
type DeleteRequest struct {
	Scope  string `json:"scope"`
	Domain string `json:"domain,omitempty"`
	Filter string `json:"filter,omitempty"`
}

// DeleteResponse reports how many removals were requested. The cache
// reflects them once the store confirms each removal.
type DeleteResponse struct {
	Requested int `json:"requested"`
	Failed    int `json:"failed"`
}

// Event is pushed to /api/events subscribers after each refresh.
type Event struct {
	Type  string      `json:"type"`
	Stats cache.Stats `json:"stats"`
}

type errorResponse struct {
	Error string `json:"error"`
}
