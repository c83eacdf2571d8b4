package nativehost

import (
	"context"
	"encoding/json"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// RemoveParams are the parameters of a cookies.remove request.
type RemoveParams struct {
	URL  string `json:"url"`
	Name string `json:"name"`
}

// ChangedParams are the parameters of a cookies.changed event.
type ChangedParams struct {
	Cookie  wireCookie          `json:"cookie"`
	Removed bool                `json:"removed"`
	Cause   cookies.ChangeCause `json:"cause"`
}

// BrowserStore is the browser's cookie store seen through a native
// messaging connection.
type BrowserStore struct {
	conn     *Conn
	notifier *cookies.Notifier
}

// NewBrowserStore creates a store that queries the browser over conn.
// Change events reach it through HandleChanged.
func NewBrowserStore(conn *Conn) *BrowserStore {
	return &BrowserStore{
		conn:     conn,
		notifier: cookies.NewNotifier(0),
	}
}

// GetAll asks the browser for every cookie.
func (s *BrowserStore) GetAll(ctx context.Context) ([]*cookies.Cookie, error) {
	var wire []wireCookie
	if err := s.conn.Call(ctx, MethodGetAll, nil, &wire); err != nil {
		return nil, err
	}

	all := make([]*cookies.Cookie, 0, len(wire))
	for i := range wire {
		all = append(all, wire[i].toCookie())
	}
	return all, nil
}

// Remove asks the browser to delete one cookie.
func (s *BrowserStore) Remove(ctx context.Context, rawURL, name string) error {
	return s.conn.Call(ctx, MethodRemove, RemoveParams{URL: rawURL, Name: name}, nil)
}

// Subscribe implements cookies.Store.
func (s *BrowserStore) Subscribe(l cookies.ChangeListener) {
	s.notifier.Subscribe(l)
}

// Unsubscribe implements cookies.Store.
func (s *BrowserStore) Unsubscribe(l cookies.ChangeListener) {
	s.notifier.Unsubscribe(l)
}

// HandleChanged decodes a cookies.changed event and forwards it to listeners.
func (s *BrowserStore) HandleChanged(params json.RawMessage) error {
	var p ChangedParams
	if err := json.Unmarshal(params, &p); err != nil {
		return err
	}
	s.notifier.Emit(cookies.ChangeEvent{
		Cookie:  p.Cookie.toCookie(),
		Removed: p.Removed,
		Cause:   p.Cause,
	})
	return nil
}

// Close stops delivering change events.
func (s *BrowserStore) Close() {
	s.notifier.Close()
}

var _ cookies.Store = (*BrowserStore)(nil)
