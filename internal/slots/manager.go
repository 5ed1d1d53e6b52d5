package slots

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swarmd/pkg/types"
)

// Defaults applied when corresponding Config fields are unset.
const (
	defaultMaxSlots       = 2
	defaultRerankInterval = time.Second
)

// LivenessFunc reports whether the profile's assigned emulator is still
// alive. Used to detect stale re-entrant slot holders.
type LivenessFunc func(p *types.Profile) bool

// PositionFunc receives live wait-queue rank updates for a worker.
// Rank 0 means the worker holds a slot; ranks >= 1 are wait positions.
type PositionFunc func(workerID string, rank int)

// Config encapsulates all tunables for Manager construction. MaxSlots is
// captured once here; live reconfiguration goes through a new Manager.
type Config struct {
	MaxSlots       int
	RerankInterval time.Duration
	Liveness       LivenessFunc
	Logger         zerolog.Logger
}

// Manager owns the fixed pool of emulator execution slots. A single mutex
// covers both the active set and the wait queue so a request's rank and the
// active count are never observed inconsistently.
type Manager struct {
	mu       sync.Mutex
	maxSlots int
	rerank   time.Duration
	active   map[string]*types.Profile
	waiters  *waitQueue
	wake     chan struct{}
	alive    LivenessFunc
	log      zerolog.Logger
}

// New constructs a Manager from Config.
func New(cfg Config) *Manager {
	m := &Manager{
		active:  make(map[string]*types.Profile),
		waiters: newWaitQueue(),
		wake:    make(chan struct{}),
		alive:   cfg.Liveness,
		log:     cfg.Logger,
	}
	if cfg.MaxSlots <= 0 {
		m.maxSlots = defaultMaxSlots
	} else {
		m.maxSlots = cfg.MaxSlots
	}
	if cfg.RerankInterval <= 0 {
		m.rerank = defaultRerankInterval
	} else {
		m.rerank = cfg.RerankInterval
	}
	slotsMax.Set(float64(m.maxSlots))
	return m
}

// MaxSlots returns the configured slot ceiling.
func (m *Manager) MaxSlots() int { return m.maxSlots }

// Acquire blocks until workerID holds a slot, the context is cancelled, or
// the pool is reset. While waiting it recomputes the request's 1-based rank
// at least once per rerank interval, mirrors it onto profile.QueuePosition
// and reports it through onPosition.
//
// A worker already holding a slot for a live emulator re-enters as a no-op
// (position 0). A holder whose emulator died is silently dropped from the
// active set and acquires normally.
func (m *Manager) Acquire(ctx context.Context, workerID string, p *types.Profile, onPosition PositionFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	if cur, held := m.active[workerID]; held {
		if m.alive == nil || m.alive(cur) {
			p.SetQueuePosition(0)
			m.mu.Unlock()
			if onPosition != nil {
				onPosition(workerID, 0)
			}
			return nil
		}
		delete(m.active, workerID)
		m.updateGaugesLocked()
		m.wakeAllLocked()
		staleDropsTotal.Inc()
		m.log.Warn().Str("worker", workerID).Str("emulator", cur.Emulator).
			Msg("dropping stale slot holder, emulator no longer alive")
	}

	// Fast path: free slot and nobody waiting.
	if len(m.active) < m.maxSlots && m.waiters.len() == 0 {
		m.grantLocked(workerID, p)
		m.mu.Unlock()
		if onPosition != nil {
			onPosition(workerID, 0)
		}
		return nil
	}

	req := m.waiters.enqueue(workerID, p)
	m.updateGaugesLocked()
	for {
		if req.aborted {
			p.SetQueuePosition(types.QueuePositionNotWaiting)
			m.mu.Unlock()
			return poolResetError{}
		}
		if m.waiters.head() == req && len(m.active) < m.maxSlots {
			m.waiters.remove(req)
			m.grantLocked(workerID, p)
			// Remaining waiters shift up one rank.
			m.wakeAllLocked()
			m.mu.Unlock()
			if onPosition != nil {
				onPosition(workerID, 0)
			}
			return nil
		}
		rank := m.waiters.rank(req)
		p.SetQueuePosition(rank)
		wake := m.wake
		m.mu.Unlock()
		if onPosition != nil {
			onPosition(workerID, rank)
		}

		timer := time.NewTimer(m.rerank)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.mu.Lock()
			m.waiters.remove(req)
			p.SetQueuePosition(types.QueuePositionNotWaiting)
			m.updateGaugesLocked()
			m.wakeAllLocked()
			m.mu.Unlock()
			acquireCancelsTotal.Inc()
			return ctx.Err()
		case <-wake:
			timer.Stop()
		case <-timer.C:
			// Periodic re-rank so position feedback stays live even
			// when no release happens.
		}
		m.mu.Lock()
	}
}

// Release returns workerID's slot to the pool. Releasing without holding a
// slot is logged and otherwise a no-op. All blocked waiters are woken to
// re-evaluate eligibility.
func (m *Manager) Release(workerID string, p *types.Profile) {
	m.mu.Lock()
	if _, held := m.active[workerID]; held {
		delete(m.active, workerID)
		releasesTotal.Inc()
	} else {
		m.log.Debug().Str("worker", workerID).Msg("release without held slot")
	}
	if p != nil {
		p.SetQueuePosition(types.QueuePositionNotWaiting)
	}
	m.updateGaugesLocked()
	m.wakeAllLocked()
	m.mu.Unlock()
}

// ResetAll clears the wait queue and the active set atomically and wakes
// every waiter. Blocked Acquire calls return an error satisfying
// IsPoolReset. Used on full-system shutdown or restart.
func (m *Manager) ResetAll() {
	m.mu.Lock()
	for _, req := range m.waiters.drain() {
		req.profile.SetQueuePosition(types.QueuePositionNotWaiting)
	}
	for _, p := range m.active {
		p.SetQueuePosition(types.QueuePositionNotWaiting)
	}
	m.active = make(map[string]*types.Profile)
	m.updateGaugesLocked()
	m.wakeAllLocked()
	m.mu.Unlock()
	poolResetsTotal.Inc()
	m.log.Info().Msg("slot pool reset")
}

// Stats is a read-only projection of pool occupancy.
type Stats struct {
	Max     int
	Active  int
	Waiting int
}

// Stats returns a consistent snapshot of pool occupancy.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Stats{Max: m.maxSlots, Active: len(m.active), Waiting: m.waiters.len()}
}

func (m *Manager) grantLocked(workerID string, p *types.Profile) {
	m.active[workerID] = p
	p.SetQueuePosition(0)
	acquiresTotal.Inc()
	m.updateGaugesLocked()
	m.log.Debug().Str("worker", workerID).Int("active", len(m.active)).Msg("slot granted")
}

// wakeAllLocked wakes every parked waiter by closing the broadcast channel
// and replacing it.
func (m *Manager) wakeAllLocked() {
	close(m.wake)
	m.wake = make(chan struct{})
}

func (m *Manager) updateGaugesLocked() {
	slotsActive.Set(float64(len(m.active)))
	waitQueueLen.Set(float64(m.waiters.len()))
}
