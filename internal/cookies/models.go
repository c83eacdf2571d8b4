package cookies

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
)

// DefaultStoreID is the identifier browsers give the regular (non-incognito) cookie store.
const DefaultStoreID = "0"

// Cookie represents a browser cookie with all attributes.
// The Value is carried for the store adapters only; it takes no part in identity.
type Cookie struct {
	ID       string    `json:"id,omitempty"`
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	HostOnly bool      `json:"host_only"`
	Path     string    `json:"path"`
	Secure   bool      `json:"secure"`
	HttpOnly bool      `json:"http_only"`
	Session  bool      `json:"session"`
	StoreID  string    `json:"store_id"`
	SameSite string    `json:"same_site,omitempty"`
	Expires  time.Time `json:"expires,omitzero"`
}

// Identity is the key two cookies are compared by. Two cookies with equal
// identities are the same cookie regardless of their values.
type Identity struct {
	Name     string
	Domain   string
	HostOnly bool
	Path     string
	Secure   bool
	HttpOnly bool
	Session  bool
	StoreID  string
}

// Identity returns the cookie's identity tuple.
func (c *Cookie) Identity() Identity {
	return Identity{
		Name:     c.Name,
		Domain:   c.Domain,
		HostOnly: c.HostOnly,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		Session:  c.Session,
		StoreID:  c.StoreID,
	}
}

// SameIdentity reports whether c and other identify the same cookie.
func (c *Cookie) SameIdentity(other *Cookie) bool {
	return c.Identity() == other.Identity()
}

// RemovalURL builds the URL a browser expects when asked to remove this cookie.
// The scheme is https for secure cookies and http otherwise.
func (c *Cookie) RemovalURL() string {
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	return scheme + "://" + c.Domain + c.Path
}

// IsExpired returns true if the cookie has expired.
func (c *Cookie) IsExpired() bool {
	if c.Session || c.Expires.IsZero() {
		return false
	}
	return time.Now().After(c.Expires)
}

// Host returns the domain without the leading dot used for domain cookies.
func (c *Cookie) Host() string {
	return strings.TrimPrefix(c.Domain, ".")
}

// Site returns the registrable domain (eTLD+1) a cookie domain belongs to.
// Domains the public suffix list cannot classify are returned unchanged.
func Site(domain string) string {
	host := strings.TrimPrefix(domain, ".")
	site, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return site
}

// ToHTTPCookie converts to standard http.Cookie.
func (c *Cookie) ToHTTPCookie() *http.Cookie {
	sameSite := http.SameSiteDefaultMode
	switch strings.ToLower(c.SameSite) {
	case "lax":
		sameSite = http.SameSiteLaxMode
	case "strict":
		sameSite = http.SameSiteStrictMode
	case "none", "no_restriction":
		sameSite = http.SameSiteNoneMode
	}

	hc := &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: sameSite,
	}
	if !c.HostOnly {
		hc.Domain = c.Host()
	}
	if !c.Session {
		hc.Expires = c.Expires
	}
	return hc
}

// FromHTTPCookie creates a Cookie from an http.Cookie received from u.
// Cookies without a Domain attribute are host-only and keyed by the request host;
// the others get the leading dot browsers use for domain cookies.
func FromHTTPCookie(u *url.URL, hc *http.Cookie) *Cookie {
	domain := strings.TrimPrefix(hc.Domain, ".")
	hostOnly := domain == ""
	if hostOnly {
		domain = u.Hostname()
	} else {
		domain = "." + domain
	}

	path := hc.Path
	if path == "" {
		path = "/"
	}

	sameSite := ""
	switch hc.SameSite {
	case http.SameSiteLaxMode:
		sameSite = "lax"
	case http.SameSiteStrictMode:
		sameSite = "strict"
	case http.SameSiteNoneMode:
		sameSite = "no_restriction"
	}

	expires := hc.Expires
	if hc.MaxAge > 0 {
		expires = time.Now().Add(time.Duration(hc.MaxAge) * time.Second)
	} else if hc.MaxAge < 0 {
		expires = time.Unix(0, 0)
	}

	return &Cookie{
		Domain:   domain,
		HostOnly: hostOnly,
		Path:     path,
		Name:     hc.Name,
		Value:    hc.Value,
		Secure:   hc.Secure,
		HttpOnly: hc.HttpOnly,
		Session:  expires.IsZero(),
		StoreID:  DefaultStoreID,
		SameSite: sameSite,
		Expires:  expires,
	}
}

// QueryOptions for filtering cookies in stores that support listing.
type QueryOptions struct {
	Domain         string // Filter by exact domain
	Name           string // Filter by cookie name
	IncludeExpired bool   // Include expired cookies
	Limit          int    // Max results (0 = no limit)
}
