package cookies

import (
	"context"
	"errors"
)

// Common errors.
var (
	ErrNotFound    = errors.New("cookie not found")
	ErrStoreClosed = errors.New("cookie store is closed")
	ErrInvalidURL  = errors.New("invalid cookie url")
)

// ChangeCause describes why a cookie changed, using the browser's vocabulary.
type ChangeCause string

const (
	CauseExplicit         ChangeCause = "explicit"
	CauseOverwrite        ChangeCause = "overwrite"
	CauseExpired          ChangeCause = "expired"
	CauseExpiredOverwrite ChangeCause = "expired_overwrite"
	CauseEvicted          ChangeCause = "evicted"
)

// ChangeEvent is one change notification from a cookie store.
// An update is delivered as a removal of the old cookie followed by an
// addition of the new one.
type ChangeEvent struct {
	Cookie  *Cookie
	Removed bool
	Cause   ChangeCause
}

// ChangeListener receives change notifications. Implementations must be
// comparable (pointer types) so they can be unsubscribed.
type ChangeListener interface {
	OnChange(ev ChangeEvent)
}

// Store is the external cookie store the cache mirrors.
type Store interface {
	// GetAll returns every cookie currently in the store.
	GetAll(ctx context.Context) ([]*Cookie, error)

	// Remove deletes the cookie named name that would be sent to rawURL.
	// The store reports the deletion through its change notifications.
	Remove(ctx context.Context, rawURL, name string) error

	// Subscribe registers a listener for change notifications. Notifications
	// are delivered one at a time, in the order the store emits them.
	Subscribe(l ChangeListener)

	// Unsubscribe removes a previously registered listener.
	Unsubscribe(l ChangeListener)
}

// WritableStore is a Store that also accepts cookies, such as the sqlite store.
type WritableStore interface {
	Store

	// Set stores or updates a cookie.
	Set(ctx context.Context, cookie *Cookie) error
}
