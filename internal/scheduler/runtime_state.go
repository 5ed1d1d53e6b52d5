package scheduler

import (
	"sync"
	"time"
)

// Defaults applied when corresponding fields are unset.
const (
	defaultIdleLimit            = 30 * time.Minute
	defaultBackgroundCheckEvery = 60
)

// LoopState tracks one task-execution cycle of a queue.
type LoopState struct {
	mu        sync.Mutex
	startedAt time.Time
	endedAt   time.Time
	didWork   bool
}

func (l *LoopState) begin() {
	l.mu.Lock()
	l.startedAt = time.Now()
	l.endedAt = time.Time{}
	l.didWork = false
	l.mu.Unlock()
}

// EndLoop marks the end of the current cycle.
func (l *LoopState) EndLoop() {
	l.mu.Lock()
	l.endedAt = time.Now()
	l.mu.Unlock()
}

// SetDidWork records whether the cycle performed useful work.
func (l *LoopState) SetDidWork(v bool) {
	l.mu.Lock()
	l.didWork = v
	l.mu.Unlock()
}

// DidWork reports whether the current cycle performed useful work.
func (l *LoopState) DidWork() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.didWork
}

// Duration returns the elapsed time of the cycle: live if the loop is still
// running, final once EndLoop was called.
func (l *LoopState) Duration() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.startedAt.IsZero() {
		return 0
	}
	if l.endedAt.IsZero() {
		return time.Since(l.startedAt)
	}
	return l.endedAt.Sub(l.startedAt)
}

// RuntimeState is the per-queue state machine: running/paused plus the
// orthogonal connected/awaiting-reconnect axis with its one-shot delayed
// transition. Instances are private to their owning queue; the embedded
// mutex only orders the reconnect timer callback against readers.
type RuntimeState struct {
	mu               sync.Mutex
	running          bool
	paused           bool
	needsReconnect   bool
	readyToReconnect bool
	idleExceeded     bool

	idleLimit   time.Duration
	pausedAt    time.Time
	delayUntil  time.Time
	reconnectAt time.Time

	checkEvery int
	checkCount int

	loop           LoopState
	reconnectTimer *time.Timer
	reconnectGen   uint64
}

func newRuntimeState(idleLimit time.Duration, checkEvery int) *RuntimeState {
	if idleLimit <= 0 {
		idleLimit = defaultIdleLimit
	}
	if checkEvery <= 0 {
		checkEvery = defaultBackgroundCheckEvery
	}
	return &RuntimeState{idleLimit: idleLimit, checkEvery: checkEvery}
}

// Running reports whether the queue's worker loop is active.
func (s *RuntimeState) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *RuntimeState) setRunning(v bool) {
	s.mu.Lock()
	s.running = v
	s.mu.Unlock()
}

// Paused reports whether the queue is paused.
func (s *RuntimeState) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// SetPaused pauses or resumes the queue. Pausing stamps the pause moment;
// resuming only flips the flag (pause state is boolean, not
// timestamp-derived).
func (s *RuntimeState) SetPaused(v bool) {
	s.mu.Lock()
	s.paused = v
	if v {
		s.pausedAt = time.Now()
	}
	s.mu.Unlock()
}

// PausedAt returns the moment of the most recent pause.
func (s *RuntimeState) PausedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pausedAt
}

// NeedsReconnect reports whether the queue is in a reconnect cooldown.
func (s *RuntimeState) NeedsReconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.needsReconnect
}

// ReadyToReconnect reports whether the reconnect cooldown has elapsed.
func (s *RuntimeState) ReadyToReconnect() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readyToReconnect
}

// ReconnectAt returns the scheduled reconnect time.
func (s *RuntimeState) ReconnectAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnectAt
}

// ScheduleReconnect pauses the queue and arms a one-shot timer after which
// the queue becomes eligible to reconnect. An earlier pending transition is
// replaced. Cancelling the timer (Reset) abandons the transition; it is
// never an error.
func (s *RuntimeState) ScheduleReconnect(d time.Duration) {
	if d < 0 {
		d = 0
	}
	s.mu.Lock()
	s.paused = true
	s.pausedAt = time.Now()
	s.needsReconnect = true
	s.readyToReconnect = false
	s.reconnectAt = time.Now().Add(d)
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
	}
	// Stop does not guarantee the old callback lost the race with its timer
	// firing; the generation check makes a superseded callback a no-op.
	s.reconnectGen++
	gen := s.reconnectGen
	s.reconnectTimer = time.AfterFunc(d, func() {
		s.mu.Lock()
		if s.needsReconnect && gen == s.reconnectGen {
			s.readyToReconnect = true
		}
		s.mu.Unlock()
	})
	s.mu.Unlock()
}

// ClearReconnect exits the reconnect state after a successful reconnection.
func (s *RuntimeState) ClearReconnect() {
	s.mu.Lock()
	s.needsReconnect = false
	s.readyToReconnect = false
	s.paused = false
	s.reconnectGen++
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.mu.Unlock()
}

// DelayUntil returns the next time the queue has work due.
func (s *RuntimeState) DelayUntil() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.delayUntil
}

// SetDelayUntil records when the queue's next work is due.
func (s *RuntimeState) SetDelayUntil(t time.Time) {
	s.mu.Lock()
	s.delayUntil = t
	s.mu.Unlock()
}

// IsIdleTimeExceeded reports whether the queue's next scheduled work is
// farther in the future than the idle tolerance. Pure predicate: no state
// is mutated, distinct from the sticky IdleExceeded flag.
func (s *RuntimeState) IsIdleTimeExceeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Now().Add(s.idleLimit).Before(s.delayUntil)
}

// MarkIdleExceeded sets the sticky idle indicator.
func (s *RuntimeState) MarkIdleExceeded() {
	s.mu.Lock()
	s.idleExceeded = true
	s.mu.Unlock()
}

// IdleExceeded reports the sticky idle indicator.
func (s *RuntimeState) IdleExceeded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.idleExceeded
}

// ShouldRunBackgroundChecks is a sampling gate: it returns true on every
// Nth call (N = configured interval) and false otherwise, so callers avoid
// running expensive diagnostics every cycle.
func (s *RuntimeState) ShouldRunBackgroundChecks() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.checkCount++
	if s.checkCount >= s.checkEvery {
		s.checkCount = 0
		return true
	}
	return false
}

// LoopStarted resets the loop bookkeeping at the top of a cycle.
func (s *RuntimeState) LoopStarted() { s.loop.begin() }

// Loop exposes the current cycle's bookkeeping.
func (s *RuntimeState) Loop() *LoopState { return &s.loop }

// Reset restores defaults on queue teardown or full shutdown: flags cleared,
// next-due set to now, any pending reconnect transition abandoned.
func (s *RuntimeState) Reset() {
	s.mu.Lock()
	s.running = false
	s.paused = false
	s.needsReconnect = false
	s.readyToReconnect = false
	s.idleExceeded = false
	s.delayUntil = time.Now()
	s.checkCount = 0
	s.reconnectGen++
	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
		s.reconnectTimer = nil
	}
	s.mu.Unlock()
}
