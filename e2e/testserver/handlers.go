package testserver

import (
	"net/http"
)

// Handlers provides reusable cookie-setting handlers.
type Handlers struct{}

// SetCookies returns a handler that sets every given cookie.
func (Handlers) SetCookies(cookies ...*http.Cookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, c := range cookies {
			http.SetCookie(w, c)
		}
		w.WriteHeader(http.StatusOK)
	}
}

// Expire returns a handler that tells the client to drop the named cookies.
func (Handlers) Expire(names ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, name := range names {
			http.SetCookie(w, &http.Cookie{Name: name, Path: "/", MaxAge: -1})
		}
		w.WriteHeader(http.StatusOK)
	}
}

// Redirect returns a handler that sets a cookie and redirects to target.
func (Handlers) Redirect(target string, c *http.Cookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, c)
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// Status returns a handler that responds with just a status code.
func (Handlers) Status(code int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(code)
	}
}
