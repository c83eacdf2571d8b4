// Package cache mirrors an external cookie store in memory, grouped by domain.
//
// The Manager loads the store once, then keeps its DomainIndex live by applying
// the store's change notifications through a Reconciler. Every mutation is
// reported to a Scheduler, which coalesces bursts into one refresh callback per
// fixed window. Deletions go through a Sweeper, which only asks the store to
// remove cookies; the index changes when the store's notification comes back.
package cache
