// Package gatekeeper filters inbound chat messages before they reach the
// conversation flow: duplicate delivery, per-user pacing and the periodic
// expiry sweep.
package gatekeeper

import (
	"sync"
	"time"
)

const (
	DefaultCapacity    = 1000
	DefaultMinInterval = 2 * time.Second
	DefaultSweepEvery  = 100
)

// Decision is the outcome of Admit.
type Decision string

const (
	Admitted    Decision = "ADMITTED"
	Duplicate   Decision = "DUPLICATE"
	RateLimited Decision = "RATE_LIMITED"
)

// Options configures a Gatekeeper. Zero values take the defaults.
type Options struct {
	Capacity    int
	MinInterval time.Duration
	SweepEvery  int
	Now         func() time.Time
}

// Gatekeeper is safe for concurrent use.
type Gatekeeper struct {
	mu    sync.Mutex
	seen  *seenSet
	last  map[string]time.Time
	count uint64

	minInterval time.Duration
	sweepEvery  int
	now         func() time.Time

	sweepMu sync.Mutex
	sweeper func(now time.Time)
}

func New(opts Options) *Gatekeeper {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = DefaultMinInterval
	}
	if opts.SweepEvery <= 0 {
		opts.SweepEvery = DefaultSweepEvery
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gatekeeper{
		seen:        newSeenSet(opts.Capacity),
		last:        make(map[string]time.Time),
		minInterval: opts.MinInterval,
		sweepEvery:  opts.SweepEvery,
		now:         opts.Now,
	}
}

// OnSweep registers the function run every SweepEvery recorded message ids.
func (g *Gatekeeper) OnSweep(fn func(now time.Time)) {
	g.sweepMu.Lock()
	defer g.sweepMu.Unlock()
	g.sweeper = fn
}

// Remember records a message id and reports whether it is new.
// Messages without an id are always new and are not recorded.
func (g *Gatekeeper) Remember(messageID string) bool {
	if messageID == "" {
		return true
	}
	g.mu.Lock()
	if !g.seen.add(messageID) {
		g.mu.Unlock()
		return false
	}
	g.count++
	trigger := g.count%uint64(g.sweepEvery) == 0
	now := g.now()
	if trigger {
		g.pruneLocked(now)
	}
	g.mu.Unlock()

	if trigger {
		g.runSweep(now)
	}
	return true
}

// Allow applies the per-user minimum interval. A refused message does not
// move the user's window.
func (g *Gatekeeper) Allow(userID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	now := g.now()
	if last, ok := g.last[userID]; ok && now.Sub(last) < g.minInterval {
		return false
	}
	g.last[userID] = now
	return true
}

// Admit combines Remember and Allow.
func (g *Gatekeeper) Admit(userID, messageID string) Decision {
	if !g.Remember(messageID) {
		return Duplicate
	}
	if !g.Allow(userID) {
		return RateLimited
	}
	return Admitted
}

// SeenCount returns how many message ids are currently remembered.
func (g *Gatekeeper) SeenCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen.len()
}

// Sweep runs the registered sweeper immediately.
func (g *Gatekeeper) Sweep() {
	g.mu.Lock()
	now := g.now()
	g.pruneLocked(now)
	g.mu.Unlock()
	g.runSweep(now)
}

func (g *Gatekeeper) pruneLocked(now time.Time) {
	for id, t := range g.last {
		if now.Sub(t) >= g.minInterval {
			delete(g.last, id)
		}
	}
}

func (g *Gatekeeper) runSweep(now time.Time) {
	g.sweepMu.Lock()
	fn := g.sweeper
	g.sweepMu.Unlock()
	if fn != nil {
		fn(now)
	}
}
