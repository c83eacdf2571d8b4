package nativehost

import (
	"math"
	"time"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// wireCookie is a cookie as the browser's cookies API describes it.
type wireCookie struct {
	Name           string  `json:"name"`
	Value          string  `json:"value"`
	Domain         string  `json:"domain"`
	HostOnly       bool    `json:"hostOnly"`
	Path           string  `json:"path"`
	Secure         bool    `json:"secure"`
	HttpOnly       bool    `json:"httpOnly"`
	SameSite       string  `json:"sameSite,omitempty"`
	Session        bool    `json:"session"`
	ExpirationDate float64 `json:"expirationDate,omitempty"`
	StoreID        string  `json:"storeId"`
}

func (w *wireCookie) toCookie() *cookies.Cookie {
	c := &cookies.Cookie{
		Name:     w.Name,
		Value:    w.Value,
		Domain:   w.Domain,
		HostOnly: w.HostOnly,
		Path:     w.Path,
		Secure:   w.Secure,
		HttpOnly: w.HttpOnly,
		SameSite: w.SameSite,
		Session:  w.Session,
		StoreID:  w.StoreID,
	}
	if !w.Session && w.ExpirationDate > 0 {
		sec, frac := math.Modf(w.ExpirationDate)
		c.Expires = time.Unix(int64(sec), int64(frac*1e9))
	}
	return c
}

func fromCookie(c *cookies.Cookie) wireCookie {
	w := wireCookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		HostOnly: c.HostOnly,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HttpOnly,
		SameSite: c.SameSite,
		Session:  c.Session,
		StoreID:  c.StoreID,
	}
	if !c.Session && !c.Expires.IsZero() {
		w.ExpirationDate = float64(c.Expires.UnixNano()) / 1e9
	}
	return w
}
