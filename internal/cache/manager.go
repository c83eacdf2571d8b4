package cache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// Stats is a point-in-time summary of the cache.
type Stats struct {
	Domains   int    `json:"domains"`
	Cookies   int    `json:"cookies"`
	Refreshes uint64 `json:"refreshes"`
}

// Manager owns the domain index and wires it to a cookie store.
type Manager struct {
	mu    sync.RWMutex
	index *DomainIndex

	store      cookies.Store
	reconciler *Reconciler
	scheduler  *Scheduler
	sweeper    *Sweeper
	logger     *slog.Logger

	protected      []string
	refreshDelay   time.Duration
	resyncInterval time.Duration

	refreshMu sync.RWMutex
	refresh   []func()
	refreshes atomic.Uint64

	loadMu  sync.Mutex // serializes Start and Resync
	started atomic.Bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithProtected sets the domain substrings exempt from DeleteAllExceptProtected.
func WithProtected(keywords ...string) Option {
	return func(m *Manager) {
		m.protected = slices.Clone(keywords)
	}
}

// WithRefreshFunc registers a callback run after each coalesced burst of changes.
// The callback carries no payload; it should re-query the manager.
func WithRefreshFunc(fn func()) Option {
	return func(m *Manager) {
		m.refresh = append(m.refresh, fn)
	}
}

// WithRefreshDelay overrides DefaultRefreshDelay.
func WithRefreshDelay(d time.Duration) Option {
	return func(m *Manager) {
		m.refreshDelay = d
	}
}

// WithResyncInterval makes Run reload the whole store every d. Zero disables it.
func WithResyncInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.resyncInterval = d
	}
}

// New creates a manager for store. Call Start to load and begin listening.
func New(store cookies.Store, opts ...Option) *Manager {
	m := &Manager{
		index:        NewDomainIndex(),
		store:        store,
		refreshDelay: DefaultRefreshDelay,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}

	m.scheduler = NewScheduler(m.refreshDelay, m.fireRefresh)
	m.reconciler = NewReconciler(&m.mu, m.index, m.scheduler, m.logger)
	m.sweeper = NewSweeper(m, store, m.protected, m.logger)

	return m
}

// OnRefresh registers another refresh callback after construction.
func (m *Manager) OnRefresh(fn func()) {
	m.refreshMu.Lock()
	defer m.refreshMu.Unlock()
	m.refresh = append(m.refresh, fn)
}

// Start subscribes to the store, loads its current contents and runs the
// first refresh. Notifications that arrive while the snapshot is fetched are
// queued and replayed on top of it, so a change racing the load is never lost
// or undone. A stopped manager can be started again.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return nil
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.scheduler.Start()
	m.reconciler.Hold()
	m.store.Subscribe(m.reconciler)

	all, err := m.store.GetAll(ctx)
	if err != nil {
		m.store.Unsubscribe(m.reconciler)
		m.reconciler.Discard()
		m.scheduler.Stop()
		m.started.Store(false)
		return fmt.Errorf("load cookies: %w", err)
	}

	replayed := m.reconciler.Release(func(index *DomainIndex) {
		index.Clear()
		for _, c := range all {
			index.Remove(c)
			index.Add(c)
		}
	})

	m.logger.Info("cookie cache loaded",
		"domains", m.TotalDomains(),
		"cookies", m.TotalCookies(),
		"replayed", replayed,
	)

	m.fireRefresh()
	return nil
}

// Stop unsubscribes from the store. A refresh that is already pending still fires.
func (m *Manager) Stop() {
	if !m.started.CompareAndSwap(true, false) {
		return
	}
	m.store.Unsubscribe(m.reconciler)
	m.scheduler.Stop()
}

// Run blocks until ctx is done, resyncing periodically when a resync
// interval is configured.
func (m *Manager) Run(ctx context.Context) error {
	if m.resyncInterval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(m.resyncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := m.Resync(ctx); err != nil {
				m.logger.Warn("resync failed", "error", err)
			}
		}
	}
}

// Resync replaces the index with a fresh bulk load of the store. It heals
// the cache from missed or duplicated notifications. Changes delivered while
// the snapshot is fetched are replayed after it.
func (m *Manager) Resync(ctx context.Context) error {
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.reconciler.Hold()
	all, err := m.store.GetAll(ctx)
	if err != nil {
		m.reconciler.Release(nil)
		return fmt.Errorf("resync cookies: %w", err)
	}

	var before, after int
	replayed := m.reconciler.Release(func(index *DomainIndex) {
		before = index.Total()
		index.Clear()
		for _, c := range all {
			index.Remove(c)
			index.Add(c)
		}
		after = index.Total()
	})

	m.logger.Debug("cookie cache resynced", "before", before, "after", after, "replayed", replayed)
	m.scheduler.Notify()
	return nil
}

func (m *Manager) fireRefresh() {
	m.refreshes.Add(1)

	m.refreshMu.RLock()
	callbacks := slices.Clone(m.refresh)
	m.refreshMu.RUnlock()

	for _, fn := range callbacks {
		fn()
	}
}

// Select implements Selector over a snapshot taken under the read lock.
func (m *Manager) Select(match func(domain string) bool) []*cookies.Cookie {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Select(match)
}

// Domains returns the sorted domains containing filter, or all domains when
// filter is empty.
func (m *Manager) Domains(filter string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Domains(filter)
}

// Cookies returns a copy of the cookies cached under domain.
func (m *Manager) Cookies(domain string) []*cookies.Cookie {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.index.Cookies(domain))
}

// CookieCount returns the number of cookies cached under domain.
func (m *Manager) CookieCount(domain string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Count(domain)
}

// TotalDomains returns the number of cached domains.
func (m *Manager) TotalDomains() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Len()
}

// TotalCookies returns the number of cached cookies.
func (m *Manager) TotalCookies() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.index.Total()
}

// Stats returns a summary of the cache.
func (m *Manager) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Domains:   m.index.Len(),
		Cookies:   m.index.Total(),
		Refreshes: m.refreshes.Load(),
	}
}

// IsProtected reports whether domain is exempt from DeleteAllExceptProtected.
func (m *Manager) IsProtected(domain string) bool {
	return m.sweeper.IsProtected(domain)
}

// Protected returns the protection keywords.
func (m *Manager) Protected() []string {
	return m.sweeper.Protected()
}

// DeleteDomain asks the store to remove every cookie under domain.
func (m *Manager) DeleteDomain(ctx context.Context, domain string) (Result, error) {
	return m.sweeper.DeleteDomain(ctx, domain)
}

// DeleteFiltered asks the store to remove every cookie under the domains matching filter.
func (m *Manager) DeleteFiltered(ctx context.Context, filter string) (Result, error) {
	return m.sweeper.DeleteFiltered(ctx, filter)
}

// DeleteAllExceptProtected asks the store to remove every unprotected cookie.
func (m *Manager) DeleteAllExceptProtected(ctx context.Context) (Result, error) {
	return m.sweeper.DeleteAllExceptProtected(ctx)
}
