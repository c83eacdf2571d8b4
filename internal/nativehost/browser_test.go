package nativehost

import (
	"encoding/json"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeBrowser plays the extension side of a native messaging pipe.
type fakeBrowser struct {
	t   *testing.T
	in  *io.PipeReader // frames from the host
	out *io.PipeWriter // frames to the host

	wmu sync.Mutex

	mu      sync.Mutex
	cookies []wireCookie
	removes []RemoveParams
	failRm  string // cookie name whose removal fails
	nextID  int64

	responses chan *Message
	events    chan *Message
}

// newPipe returns a host connection wired to a fake browser.
func newPipe(t *testing.T, initial ...wireCookie) (*Conn, *fakeBrowser) {
	t.Helper()

	hostIn, browserOut := io.Pipe()
	browserIn, hostOut := io.Pipe()

	b := &fakeBrowser{
		t:         t,
		in:        browserIn,
		out:       browserOut,
		cookies:   initial,
		responses: make(chan *Message, 16),
		events:    make(chan *Message, 64),
	}
	go b.run()

	t.Cleanup(func() {
		browserOut.Close()
		browserIn.Close()
	})

	return NewConn(hostIn, hostOut, nil), b
}

func (b *fakeBrowser) run() {
	for {
		data, err := ReadMessage(b.in)
		if err != nil {
			return
		}
		msg, err := ParseMessage(data)
		if err != nil {
			return
		}

		switch msg.Kind {
		case KindRequest:
			b.serve(msg)
		case KindResponse:
			b.responses <- msg
		case KindEvent:
			b.events <- msg
		}
	}
}

func (b *fakeBrowser) serve(msg *Message) {
	switch msg.Method {
	case MethodGetAll:
		b.mu.Lock()
		all := append([]wireCookie(nil), b.cookies...)
		b.mu.Unlock()
		b.send(successResponse(msg.ID, all))

	case MethodRemove:
		var p RemoveParams
		_ = json.Unmarshal(msg.Params, &p)

		b.mu.Lock()
		b.removes = append(b.removes, p)
		if p.Name == b.failRm {
			b.mu.Unlock()
			b.send(errorResponse(msg.ID, errRemoveDenied))
			return
		}
		var gone []wireCookie
		kept := b.cookies[:0]
		for _, c := range b.cookies {
			if c.toCookie().RemovalURL() == p.URL && c.Name == p.Name {
				gone = append(gone, c)
				continue
			}
			kept = append(kept, c)
		}
		b.cookies = kept
		b.mu.Unlock()

		b.send(successResponse(msg.ID, nil))
		for _, c := range gone {
			b.change(c, true)
		}

	default:
		b.send(errorResponse(msg.ID, errUnknownMethod))
	}
}

// change sends a cookies.changed event.
func (b *fakeBrowser) change(c wireCookie, removed bool) {
	ev, err := newEvent(EventChanged, ChangedParams{Cookie: c, Removed: removed, Cause: "explicit"})
	if err != nil {
		return
	}
	b.send(ev)
}

// request sends a popup request and waits for the host's response.
func (b *fakeBrowser) request(method string, params any) *Message {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.mu.Unlock()

	req, err := newRequest(id, method, params)
	require.NoError(b.t, err)
	b.send(req)

	select {
	case resp := <-b.responses:
		require.Equal(b.t, id, resp.ID)
		return resp
	case <-time.After(2 * time.Second):
		b.t.Fatalf("no response to %s", method)
		return nil
	}
}

func (b *fakeBrowser) send(msg *Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	b.wmu.Lock()
	defer b.wmu.Unlock()
	_ = WriteMessage(b.out, data)
}

func (b *fakeBrowser) removals() []RemoveParams {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]RemoveParams(nil), b.removes...)
}

// waitEvent returns the next event the host sent.
func (b *fakeBrowser) waitEvent() *Message {
	select {
	case ev := <-b.events:
		return ev
	case <-time.After(2 * time.Second):
		b.t.Fatal("no event from host")
		return nil
	}
}

type stringError string

func (e stringError) Error() string { return string(e) }

const (
	errRemoveDenied  = stringError("removal denied")
	errUnknownMethod = stringError("unknown method")
)

func wire(domain, name string) wireCookie {
	return wireCookie{
		Name:     name,
		Value:    "v",
		Domain:   domain,
		HostOnly: domain[0] != '.',
		Path:     "/",
		Session:  true,
		StoreID:  "0",
	}
}
