package nativehost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// ErrClosed is returned by calls made on, or pending on, a closed connection.
var ErrClosed = errors.New("native messaging connection closed")

// ErrRemote wraps an error reported by the other side.
var ErrRemote = zerr.New("browser returned an error")

// Handler serves messages initiated by the browser.
type Handler interface {
	// HandleRequest answers a request. It runs on its own goroutine and may
	// call back into the connection.
	HandleRequest(ctx context.Context, method string, params json.RawMessage) (any, error)

	// HandleEvent consumes an event. Events are handled one at a time on the
	// read loop, in arrival order, and must not wait on the connection.
	HandleEvent(method string, params json.RawMessage)
}

// Conn is a bidirectional native messaging connection.
type Conn struct {
	r io.Reader

	wmu sync.Mutex
	w   io.Writer

	mu      sync.Mutex
	nextID  int64
	pending map[int64]chan *Message
	closed  bool

	logger *slog.Logger
}

// NewConn creates a connection reading frames from r and writing them to w.
func NewConn(r io.Reader, w io.Writer, logger *slog.Logger) *Conn {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Conn{
		r:       r,
		w:       w,
		pending: make(map[int64]chan *Message),
		logger:  logger,
	}
}

// Serve reads frames until the browser closes the pipe or ctx is done,
// dispatching them to h. It waits for in-flight request handlers before
// returning. EOF is a clean shutdown and returns nil.
func (c *Conn) Serve(ctx context.Context, h Handler) error {
	g, gctx := errgroup.WithContext(ctx)

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go func() {
		for {
			data, err := ReadMessage(c.r)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- data:
			case <-gctx.Done():
				readErr <- gctx.Err()
				return
			}
		}
	}()

	var err error
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case err = <-readErr:
			break loop
		case data := <-frames:
			c.dispatch(gctx, g, h, data)
		}
	}

	c.shutdown()
	waitErr := g.Wait()

	if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
		err = nil
	}
	return errors.Join(err, waitErr)
}

func (c *Conn) dispatch(ctx context.Context, g *errgroup.Group, h Handler, data []byte) {
	msg, err := ParseMessage(data)
	if err != nil {
		c.logger.Warn("invalid native message", "error", err)
		if err := c.send(errorResponse(0, fmt.Errorf("invalid message: %w", err))); err != nil {
			c.logger.Warn("failed to send error response", "error", err)
		}
		return
	}

	switch msg.Kind {
	case KindResponse:
		c.resolve(msg)

	case KindEvent:
		h.HandleEvent(msg.Method, msg.Params)

	case KindRequest:
		g.Go(func() error {
			result, err := h.HandleRequest(ctx, msg.Method, msg.Params)
			resp := successResponse(msg.ID, result)
			if err != nil {
				resp = errorResponse(msg.ID, err)
			}
			if err := c.send(resp); err != nil {
				c.logger.Warn("failed to send response", "method", msg.Method, "error", err)
			}
			return nil
		})

	default:
		c.logger.Warn("unknown message kind", "kind", msg.Kind, "method", msg.Method)
	}
}

func (c *Conn) resolve(msg *Message) {
	c.mu.Lock()
	ch, ok := c.pending[msg.ID]
	delete(c.pending, msg.ID)
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("response for unknown request", "id", msg.ID)
		return
	}
	ch <- msg
}

// shutdown fails every pending call and rejects new ones.
func (c *Conn) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Call sends a request to the browser and decodes its result into result,
// which may be nil.
func (c *Conn) Call(ctx context.Context, method string, params, result any) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.nextID++
	id := c.nextID
	ch := make(chan *Message, 1)
	c.pending[id] = ch
	c.mu.Unlock()

	req, err := newRequest(id, method, params)
	if err != nil {
		c.forget(id)
		return err
	}
	if err := c.send(req); err != nil {
		c.forget(id)
		return err
	}

	select {
	case <-ctx.Done():
		c.forget(id)
		return ctx.Err()
	case resp, ok := <-ch:
		if !ok {
			return ErrClosed
		}
		if !resp.Ok {
			return zerr.With(zerr.With(ErrRemote, "method", method), "message", resp.Error)
		}
		if result == nil || len(resp.Result) == 0 {
			return nil
		}
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to decode result"), "method", method)
		}
		return nil
	}
}

func (c *Conn) forget(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// Notify sends an event to the browser.
func (c *Conn) Notify(method string, params any) error {
	msg, err := newEvent(method, params)
	if err != nil {
		return err
	}
	return c.send(msg)
}

func (c *Conn) send(msg *Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()
	return WriteMessage(c.w, data)
}
