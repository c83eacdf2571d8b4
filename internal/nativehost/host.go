package nativehost

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/artpar/cookiesweep/internal/cache"
	"github.com/artpar/cookiesweep/internal/cookies"
)

// Cache is the part of cache.Manager the popup needs.
type Cache interface {
	Domains(filter string) []string
	CookieCount(domain string) int
	IsProtected(domain string) bool
	Stats() cache.Stats
	DeleteDomain(ctx context.Context, domain string) (cache.Result, error)
	DeleteFiltered(ctx context.Context, filter string) (cache.Result, error)
	DeleteAllExceptProtected(ctx context.Context) (cache.Result, error)
}

// DomainsParams are the parameters of a domains request.
type DomainsParams struct {
	Filter string `json:"filter,omitempty"`
}

// DomainParams name a single domain.
type DomainParams struct {
	Domain string `json:"domain"`
}

// DomainEntry is one row of the popup's domain table.
type DomainEntry struct {
	Domain    string `json:"domain"`
	Site      string `json:"site"`
	Count     int    `json:"count"`
	Protected bool   `json:"protected,omitempty"`
}

// DomainsResult answers a domains request.
type DomainsResult struct {
	Domains []DomainEntry `json:"domains"`
	Total   int           `json:"total"`
}

// DeleteResult answers the delete requests. Failures are counted, not listed;
// a cookie that could not be removed stays in the next refresh.
type DeleteResult struct {
	Requested int `json:"requested"`
	Failed    int `json:"failed"`
}

// Host serves the extension: cookie change events feed the store, popup
// requests are answered from the cache.
type Host struct {
	conn   *Conn
	store  *BrowserStore
	cache  Cache
	logger *slog.Logger
}

// NewHost creates a host.
func NewHost(conn *Conn, store *BrowserStore, c Cache, logger *slog.Logger) *Host {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Host{
		conn:   conn,
		store:  store,
		cache:  c,
		logger: logger,
	}
}

// Refresh tells the popup to re-query. Register it as the cache's refresh callback.
func (h *Host) Refresh() {
	if err := h.conn.Notify(EventRefresh, h.cache.Stats()); err != nil {
		h.logger.Warn("failed to send refresh", "error", err)
	}
}

// HandleEvent implements Handler.
func (h *Host) HandleEvent(method string, params json.RawMessage) {
	switch method {
	case EventChanged:
		if err := h.store.HandleChanged(params); err != nil {
			h.logger.Warn("invalid cookie change event", "error", err)
		}
	default:
		h.logger.Debug("ignoring event", "method", method)
	}
}

// HandleRequest implements Handler.
func (h *Host) HandleRequest(ctx context.Context, method string, params json.RawMessage) (any, error) {
	switch method {
	case MethodDomains:
		var p DomainsParams
		if len(params) > 0 {
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("invalid domains params: %w", err)
			}
		}
		return h.domains(p.Filter), nil

	case MethodCount:
		var p DomainParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid count params: %w", err)
		}
		return map[string]int{"count": h.cache.CookieCount(p.Domain)}, nil

	case MethodStats:
		return h.cache.Stats(), nil

	case MethodDeleteDomain:
		var p DomainParams
		if err := json.Unmarshal(params, &p); err != nil {
			return nil, fmt.Errorf("invalid delete params: %w", err)
		}
		if p.Domain == "" {
			return nil, errors.New("domain is required")
		}
		return h.deleted(h.cache.DeleteDomain(ctx, p.Domain))

	case MethodDeleteFiltered:
		var p DomainsParams
		if len(params) > 0 {
			if err := json.Unmarshal(params, &p); err != nil {
				return nil, fmt.Errorf("invalid delete params: %w", err)
			}
		}
		return h.deleted(h.cache.DeleteFiltered(ctx, p.Filter))

	case MethodDeleteAll:
		return h.deleted(h.cache.DeleteAllExceptProtected(ctx))

	default:
		return nil, fmt.Errorf("unknown method: %s", method)
	}
}

func (h *Host) domains(filter string) DomainsResult {
	names := h.cache.Domains(filter)
	result := DomainsResult{
		Domains: make([]DomainEntry, 0, len(names)),
		Total:   h.cache.Stats().Domains,
	}
	for _, d := range names {
		result.Domains = append(result.Domains, DomainEntry{
			Domain:    d,
			Site:      cookies.Site(d),
			Count:     h.cache.CookieCount(d),
			Protected: h.cache.IsProtected(d),
		})
	}
	return result
}

func (h *Host) deleted(r cache.Result, err error) (any, error) {
	if err != nil {
		h.logger.Warn("some cookies could not be removed", "failed", r.Failed, "error", err)
	}
	return DeleteResult{Requested: r.Requested, Failed: r.Failed}, nil
}
