package scheduler

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swarmd/internal/slots"
	"swarmd/pkg/types"
)

// TaskRunner executes one automation-task cycle for a profile. The cycle's
// business logic is opaque to the scheduler; only due-time semantics and the
// reconnect signal matter here.
type TaskRunner interface {
	ExecuteCycle(ctx context.Context, p *types.Profile) (CycleOutcome, error)
}

// RunnerFunc adapts a function to TaskRunner.
type RunnerFunc func(ctx context.Context, p *types.Profile) (CycleOutcome, error)

func (f RunnerFunc) ExecuteCycle(ctx context.Context, p *types.Profile) (CycleOutcome, error) {
	return f(ctx, p)
}

// BackgroundChecker is an optional TaskRunner extension invoked through the
// per-queue sampling gate (every Nth cycle) for expensive diagnostics.
type BackgroundChecker interface {
	RunBackgroundChecks(ctx context.Context, p *types.Profile) error
}

// CycleOutcome is what one task cycle reports back to its queue.
type CycleOutcome struct {
	// NextDue is when the queue has work again; zero means immediately.
	NextDue time.Time
	// Reconnect requests a reconnect cooldown of RetryAfter.
	Reconnect  bool
	RetryAfter time.Duration
	// DidWork marks whether the cycle performed useful work.
	DidWork bool
}

// TaskStateSink is notified on full shutdown that a profile's tasks are no
// longer scheduled. The scheduler never reads this state back.
type TaskStateSink interface {
	MarkUnscheduled(profileID string)
}

type noopSink struct{}

func (noopSink) MarkUnscheduled(string) {}

// Defaults applied when corresponding Config fields are unset.
const (
	defaultStartStagger = 250 * time.Millisecond
	defaultPollInterval = time.Second
)

// Config encapsulates all tunables for Scheduler construction. The values
// are captured once here; live reconfiguration goes through a new Scheduler.
type Config struct {
	Slots      *slots.Manager
	Runner     TaskRunner
	TaskStates TaskStateSink
	Publisher  EventPublisher
	// Default idle tolerance; profiles may override via IdleLimitMin.
	IdleLimit            time.Duration
	BackgroundCheckEvery int
	// Delay inserted between consecutive queue starts.
	StartStagger time.Duration
	// Worker poll cadence while gated (paused, reconnecting, not due).
	PollInterval time.Duration
	Logger       zerolog.Logger
}

// Scheduler owns one queue per registered profile and decides the order in
// which queues start. Slot arbitration after startup is entirely the slot
// manager's business.
type Scheduler struct {
	slots      *slots.Manager
	runner     TaskRunner
	sink       TaskStateSink
	pub        EventPublisher
	idleLimit  time.Duration
	checkEvery int
	stagger    time.Duration
	tick       time.Duration
	log        zerolog.Logger
	startTime  time.Time

	mu      sync.Mutex
	queues  map[string]*Queue
	paused  map[string]bool
	started bool
}

// New constructs a Scheduler from Config.
func New(cfg Config) *Scheduler {
	s := &Scheduler{
		slots:      cfg.Slots,
		runner:     cfg.Runner,
		sink:       cfg.TaskStates,
		pub:        cfg.Publisher,
		idleLimit:  cfg.IdleLimit,
		checkEvery: cfg.BackgroundCheckEvery,
		stagger:    cfg.StartStagger,
		tick:       cfg.PollInterval,
		log:        cfg.Logger,
		startTime:  time.Now(),
		queues:     make(map[string]*Queue),
		paused:     make(map[string]bool),
	}
	if s.slots == nil {
		s.slots = slots.New(slots.Config{Logger: cfg.Logger})
	}
	if s.runner == nil {
		// No task runner integrated; queues idle at the poll cadence.
		s.runner = RunnerFunc(func(context.Context, *types.Profile) (CycleOutcome, error) {
			return CycleOutcome{NextDue: time.Now().Add(defaultPollInterval)}, nil
		})
	}
	if s.sink == nil {
		s.sink = noopSink{}
	}
	if s.pub == nil {
		s.pub = noopPublisher{}
	}
	if s.stagger <= 0 {
		s.stagger = defaultStartStagger
	}
	if s.tick <= 0 {
		s.tick = defaultPollInterval
	}
	return s
}

// CreateQueue registers a queue for the profile. Idempotent: a profile that
// already has a queue is left untouched.
func (s *Scheduler) CreateQueue(p *types.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queues[p.ID]; ok {
		return
	}
	idleLimit := s.idleLimit
	if p.IdleLimitMin > 0 {
		idleLimit = time.Duration(p.IdleLimitMin) * time.Minute
	}
	st := newRuntimeState(idleLimit, s.checkEvery)
	p.SetQueuePosition(types.QueuePositionNotWaiting)
	s.queues[p.ID] = newQueue(p, st, s.slots, s.runner, s.pub, s.log, s.tick)
	s.paused[p.ID] = false
	queuesRegistered.Set(float64(len(s.queues)))
}

// Queue returns the registered queue for a profile id, if any.
func (s *Scheduler) Queue(profileID string) (*Queue, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[profileID]
	return q, ok
}

// StartAll starts every registered queue. Queues with work due within their
// idle tolerance start first; within the same bucket higher priority starts
// first. A fixed stagger separates consecutive starts so the slot pool is
// not hit by a thundering herd. One queue failing to start does not stop
// the rest.
func (s *Scheduler) StartAll(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return alreadyStartedError{}
	}
	s.started = true
	qs := make([]*Queue, 0, len(s.queues))
	for _, q := range s.queues {
		qs = append(qs, q)
	}
	s.mu.Unlock()

	sort.SliceStable(qs, func(i, j int) bool {
		di, dj := !qs[i].state.IsIdleTimeExceeded(), !qs[j].state.IsIdleTimeExceeded()
		if di != dj {
			return di
		}
		return qs[i].profile.Priority > qs[j].profile.Priority
	})

	for i, q := range qs {
		if i > 0 {
			select {
			case <-time.After(s.stagger):
			case <-ctx.Done():
				// Roll back the started flag so a retry can launch the
				// queues this pass never reached.
				s.mu.Lock()
				s.started = false
				s.mu.Unlock()
				s.log.Warn().Err(ctx.Err()).Int("launched", i).Int("queues", len(qs)).
					Msg("queue startup cancelled mid-stagger")
				return ctx.Err()
			}
		}
		if err := q.Start(); err != nil {
			if IsAlreadyStarted(err) {
				// Launched by an earlier, cancelled pass.
				continue
			}
			s.log.Error().Err(err).Str("profile", q.profile.ID).Msg("queue start failed")
			continue
		}
		s.pub.Publish(Event{Name: "queue_started", ProfileID: q.profile.ID})
	}
	s.log.Info().Int("queues", len(qs)).Msg("all queues started")
	return nil
}

// StopAll is the authoritative full shutdown: notify the task-state sink
// for every profile, stop every worker, then clear all bookkeeping and
// reset the slot pool.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	qs := make([]*Queue, 0, len(s.queues))
	for _, q := range s.queues {
		qs = append(qs, q)
	}
	s.mu.Unlock()

	for _, q := range qs {
		s.sink.MarkUnscheduled(q.profile.ID)
	}
	// Unblock workers parked in slot acquisition before joining them.
	s.slots.ResetAll()
	for _, q := range qs {
		q.Stop()
		q.state.Reset()
		s.pub.Publish(Event{Name: "queue_stopped", ProfileID: q.profile.ID})
	}

	s.mu.Lock()
	s.queues = make(map[string]*Queue)
	s.paused = make(map[string]bool)
	s.started = false
	s.mu.Unlock()
	queuesRegistered.Set(0)
	s.log.Info().Int("queues", len(qs)).Msg("all queues stopped")
}

// PauseAll pauses every registered queue.
func (s *Scheduler) PauseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, q := range s.queues {
		q.state.SetPaused(true)
		s.paused[id] = true
	}
}

// ResumeAll resumes every registered queue.
func (s *Scheduler) ResumeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, q := range s.queues {
		q.state.SetPaused(false)
		s.paused[id] = false
	}
}

// Pause pauses a single profile's queue.
func (s *Scheduler) Pause(profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[profileID]
	if !ok {
		return profileNotFoundError{id: profileID}
	}
	// Queue state and the command cache are written together so they can
	// never disagree.
	q.state.SetPaused(true)
	s.paused[profileID] = true
	return nil
}

// Resume resumes a single profile's queue.
func (s *Scheduler) Resume(profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.queues[profileID]
	if !ok {
		return profileNotFoundError{id: profileID}
	}
	q.state.SetPaused(false)
	s.paused[profileID] = false
	return nil
}

// ActiveQueueStates returns a read-only projection of every registered
// queue, sorted by profile display name case-insensitively. Never used for
// scheduling decisions.
func (s *Scheduler) ActiveQueueStates() []types.QueueStatus {
	s.mu.Lock()
	out := make([]types.QueueStatus, 0, len(s.queues))
	for id, q := range s.queues {
		st := q.state
		qs := types.QueueStatus{
			ProfileID:        id,
			ProfileName:      q.profile.Name,
			Paused:           s.paused[id],
			Running:          st.Running(),
			NeedsReconnect:   st.NeedsReconnect(),
			ReadyToReconnect: st.ReadyToReconnect(),
			QueuePosition:    q.profile.QueuePosition(),
		}
		if due := st.DelayUntil(); !due.IsZero() {
			qs.NextDueUnix = due.Unix()
		}
		out = append(out, qs)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].ProfileName) < strings.ToLower(out[j].ProfileName)
	})
	return out
}

// Profiles returns the registered profiles, shared by reference.
func (s *Scheduler) Profiles() []*types.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*types.Profile, 0, len(s.queues))
	for _, q := range s.queues {
		out = append(out, q.profile)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ready reports whether the queues have been started.
func (s *Scheduler) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Status builds the detailed status response for /status.
func (s *Scheduler) Status() types.StatusResponse {
	st := s.slots.Stats()
	state := "stopped"
	if s.Ready() {
		state = "running"
	}
	return types.StatusResponse{
		State:          state,
		SlotsMax:       st.Max,
		SlotsActive:    st.Active,
		Waiting:        st.Waiting,
		Queues:         s.ActiveQueueStates(),
		UptimeSeconds:  int64(time.Since(s.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
}
