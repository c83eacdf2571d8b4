package cache

import (
	"log/slog"
	"sync"

	"github.com/artpar/cookiesweep/internal/cookies"
)

// Reconciler applies store change notifications to a DomainIndex.
//
// Every event first removes the cookie's identity and, unless the event is a
// removal, adds it back. Updates therefore never leave two copies of one
// identity, and replaying an event is harmless.
//
// While a bulk load is in flight (between Hold and Release) events are queued
// rather than applied, and Release replays them on top of the loaded snapshot.
type Reconciler struct {
	mu        *sync.RWMutex
	index     *DomainIndex
	scheduler *Scheduler
	logger    *slog.Logger

	qmu     sync.Mutex // held while an event is applied or queued
	holding bool
	queue   []cookies.ChangeEvent
}

// NewReconciler creates a reconciler that mutates index under mu and
// notifies scheduler after every applied event. scheduler may be nil.
func NewReconciler(mu *sync.RWMutex, index *DomainIndex, scheduler *Scheduler, logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{
		mu:        mu,
		index:     index,
		scheduler: scheduler,
		logger:    logger,
	}
}

// OnChange implements cookies.ChangeListener. It never blocks on a bulk load.
func (r *Reconciler) OnChange(ev cookies.ChangeEvent) {
	if ev.Cookie == nil {
		r.logger.Debug("ignoring change event without cookie", "cause", ev.Cause)
		return
	}

	r.qmu.Lock()
	defer r.qmu.Unlock()

	if r.holding {
		r.queue = append(r.queue, ev)
		return
	}

	r.mu.Lock()
	r.apply(ev)
	r.mu.Unlock()

	if r.scheduler != nil {
		r.scheduler.Notify()
	}
}

// Hold starts queueing events. Call it before fetching a snapshot from the store.
func (r *Reconciler) Hold() {
	r.qmu.Lock()
	defer r.qmu.Unlock()
	r.holding = true
	r.queue = nil
}

// Release runs load under the index lock, replays the queued events in order
// and goes back to applying events directly. A nil load only replays.
// It returns the number of replayed events.
func (r *Reconciler) Release(load func(index *DomainIndex)) int {
	r.qmu.Lock()
	defer r.qmu.Unlock()

	queued := r.queue
	r.queue = nil
	r.holding = false

	r.mu.Lock()
	if load != nil {
		load(r.index)
	}
	for _, ev := range queued {
		r.apply(ev)
	}
	r.mu.Unlock()

	if len(queued) > 0 && r.scheduler != nil {
		r.scheduler.Notify()
	}
	return len(queued)
}

// Discard drops the queued events and stops holding.
func (r *Reconciler) Discard() {
	r.qmu.Lock()
	defer r.qmu.Unlock()
	r.holding = false
	r.queue = nil
}

// apply must be called with r.mu held.
func (r *Reconciler) apply(ev cookies.ChangeEvent) {
	dropped := r.index.Remove(ev.Cookie)
	if !ev.Removed {
		r.index.Add(ev.Cookie)
	}

	r.logger.Debug("cookie changed",
		"domain", ev.Cookie.Domain,
		"name", ev.Cookie.Name,
		"removed", ev.Removed,
		"cause", ev.Cause,
		"replaced", dropped,
	)
}
