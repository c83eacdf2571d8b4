// Package nativehost connects cookiesweep to a browser extension over the
// native messaging protocol: a 4-byte little-endian length prefix followed by
// a JSON payload, on stdin and stdout.
//
// Both sides send requests, responses and events over the same pipe. The
// browser answers cookie queries and forwards cookie change notifications;
// the extension popup asks the host for domain lists and deletions.
package nativehost

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
)

// MaxMessageSize is the browser's native messaging limit for host messages.
const MaxMessageSize = 1 << 20

// Kind tells requests, responses and events apart.
type Kind string

const (
	KindRequest  Kind = "request"
	KindResponse Kind = "response"
	KindEvent    Kind = "event"
)

// Sent by the host.
const (
	MethodGetAll = "cookies.getAll"
	MethodRemove = "cookies.remove"
	EventRefresh = "refresh"
)

// Sent by the browser.
const (
	EventChanged         = "cookies.changed"
	MethodDomains        = "domains"
	MethodCount          = "count"
	MethodStats          = "stats"
	MethodDeleteDomain   = "delete.domain"
	MethodDeleteFiltered = "delete.filtered"
	MethodDeleteAll      = "delete.all"
)

// Message is the envelope for every frame in either direction.
type Message struct {
	ID     int64           `json:"id,omitempty"`
	Kind   Kind            `json:"kind"`
	Method string          `json:"method,omitempty"`
	Params json.RawMessage `json:"params,omitempty"`
	Ok     bool            `json:"ok,omitempty"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// ReadMessage reads one length-prefixed frame.
func ReadMessage(r io.Reader) ([]byte, error) {
	var length uint32
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return nil, err
	}
	if length > MaxMessageSize {
		return nil, fmt.Errorf("message too large: %d bytes (max %d)", length, MaxMessageSize)
	}
	buf := make([]byte, length)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteMessage writes one length-prefixed frame.
func WriteMessage(w io.Writer, msg []byte) error {
	if len(msg) > MaxMessageSize {
		return fmt.Errorf("message too large: %d bytes (max %d)", len(msg), MaxMessageSize)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(msg))); err != nil {
		return err
	}
	_, err := w.Write(msg)
	return err
}

// ParseMessage decodes a frame payload.
func ParseMessage(b []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func newRequest(id int64, method string, params any) (*Message, error) {
	raw, err := marshalRaw(params)
	if err != nil {
		return nil, err
	}
	return &Message{ID: id, Kind: KindRequest, Method: method, Params: raw}, nil
}

func newEvent(method string, params any) (*Message, error) {
	raw, err := marshalRaw(params)
	if err != nil {
		return nil, err
	}
	return &Message{Kind: KindEvent, Method: method, Params: raw}, nil
}

func successResponse(id int64, result any) *Message {
	raw, err := marshalRaw(result)
	if err != nil {
		return errorResponse(id, err)
	}
	return &Message{ID: id, Kind: KindResponse, Ok: true, Result: raw}
}

func errorResponse(id int64, err error) *Message {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return &Message{ID: id, Kind: KindResponse, Error: msg}
}

func marshalRaw(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
