// Package signerpool serialises access to a fixed set of funding identities so
// concurrent fills never collide on the same signer. Two in-flight settlements
// sharing a signer would race over the same spendable resources and produce
// conflicting transactions.
package signerpool

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bajpai244/fuel-predicate-orderbook/internal/domain/entity"
)

// DefaultLeaseDuration is how long an unreleased lease is honoured before the
// identity is reclaimed.
const DefaultLeaseDuration = 10 * time.Second

// Lease binds one identity to one in-flight operation. It is valid from
// AcquiredAt until AcquiredAt+duration unless released earlier. Expiry is a
// safety net against leaked leases, not the primary release path: every
// operation must release explicitly on completion.
//
// Known race, kept deliberately: a lease can expire while its operation is
// still mid-flight, letting a second operation acquire the same identity. The
// original deployment accepts this for low concurrency; callers should size
// the lease duration above their worst-case fill latency.
type Lease struct {
	Identity   entity.Identity
	AcquiredAt time.Time

	slot int
}

// PoolConfig holds configuration for the pool.
type PoolConfig struct {
	// LeaseDuration is how long a lease lives without explicit release.
	// Defaults to DefaultLeaseDuration.
	LeaseDuration time.Duration

	// Logger is the structured logger for the pool.
	Logger *slog.Logger

	// now is overridable for tests.
	now func() time.Time
}

// Pool owns a fixed, finite set of identities and hands out exclusive,
// time-bounded leases on them. Round-robin with lazy expiry checking: no
// background sweeper, staleness bounded to one lease duration.
type Pool struct {
	mu       sync.Mutex
	slots    []slot
	cursor   int
	duration time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

type slot struct {
	identity entity.Identity
	leased   bool
	expires  time.Time
}

// NewPool creates a pool over the given identities.
func NewPool(identities []entity.Identity, config PoolConfig) (*Pool, error) {
	if len(identities) == 0 {
		return nil, fmt.Errorf("pool requires at least one identity")
	}

	duration := config.LeaseDuration
	if duration <= 0 {
		duration = DefaultLeaseDuration
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := config.now
	if now == nil {
		now = time.Now
	}

	slots := make([]slot, len(identities))
	for i, id := range identities {
		slots[i] = slot{identity: id}
	}

	return &Pool{
		slots:    slots,
		duration: duration,
		now:      now,
		logger:   logger.With("component", "signer-pool"),
	}, nil
}

// Acquire returns an exclusive lease on the first available identity, scanning
// from a rotating cursor. The scan, expiry check and lease stamp happen inside
// one critical section, so no two callers can be granted the same identity.
// Returns false when every identity is leased; that is backpressure, not an
// error, and the caller may retry later.
func (p *Pool) Acquire() (*Lease, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	n := len(p.slots)

	// The cursor advances on every call so repeated failed scans do not keep
	// re-checking the same identity first. One full rotation, then give up.
	for i := 0; i < n; i++ {
		idx := (p.cursor + i) % n
		s := &p.slots[idx]

		if s.leased && now.Before(s.expires) {
			continue
		}
		if s.leased {
			p.logger.Warn("reclaiming expired lease",
				"address", s.identity.Address,
				"expiredAt", s.expires,
			)
		}

		s.leased = true
		s.expires = now.Add(p.duration)
		p.cursor = (idx + 1) % n

		return &Lease{
			Identity:   s.identity,
			AcquiredAt: now,
			slot:       idx,
		}, true
	}

	p.cursor = (p.cursor + 1) % n
	return nil, false
}

// Release clears the lease unconditionally, regardless of elapsed time.
// Idempotent: releasing an already released or expired lease is a no-op.
func (p *Pool) Release(lease *Lease) {
	if lease == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	s := &p.slots[lease.slot]
	if s.identity.Address == lease.Identity.Address {
		s.leased = false
		s.expires = time.Time{}
	}
}

// Count reports the pool size.
func (p *Pool) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.slots)
}

// Available reports how many identities are currently acquirable, counting
// expired leases as available.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	available := 0
	for _, s := range p.slots {
		if !s.leased || !now.Before(s.expires) {
			available++
		}
	}
	return available
}
