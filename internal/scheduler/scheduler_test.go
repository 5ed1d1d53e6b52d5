package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"swarmd/internal/slots"
	"swarmd/pkg/types"
)

type recordingSink struct {
	mu  sync.Mutex
	ids []string
}

func (s *recordingSink) MarkUnscheduled(id string) {
	s.mu.Lock()
	s.ids = append(s.ids, id)
	s.mu.Unlock()
}

func (s *recordingSink) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// idleRunner keeps every queue parked an hour out so tests control timing.
func idleRunner() TaskRunner {
	return RunnerFunc(func(context.Context, *types.Profile) (CycleOutcome, error) {
		return CycleOutcome{NextDue: time.Now().Add(time.Hour)}, nil
	})
}

func newTestScheduler(t *testing.T, pub EventPublisher, sink TaskStateSink) *Scheduler {
	t.Helper()
	s := New(Config{
		Slots:        slots.New(slots.Config{MaxSlots: 2, RerankInterval: 2 * time.Millisecond}),
		Runner:       idleRunner(),
		TaskStates:   sink,
		Publisher:    pub,
		StartStagger: time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	t.Cleanup(s.StopAll)
	return s
}

func TestCreateQueueIdempotent(t *testing.T) {
	s := newTestScheduler(t, nil, nil)
	p := testProfile("a", 1)
	s.CreateQueue(p)
	s.CreateQueue(p)

	if got := len(s.ActiveQueueStates()); got != 1 {
		t.Fatalf("expected 1 queue, got %d", got)
	}
	if pos := p.QueuePosition(); pos != types.QueuePositionNotWaiting {
		t.Fatalf("expected not-waiting position sentinel, got %d", pos)
	}
}

func TestStartAllOrdersDueThenPriority(t *testing.T) {
	pub := NewMemoryPublisher()
	s := newTestScheduler(t, pub, nil)
	s.CreateQueue(testProfile("low", 1))
	s.CreateQueue(testProfile("high", 5))
	s.CreateQueue(testProfile("idle", 3))

	// "idle" has nothing due within the idle tolerance, so it starts last
	// despite outranking "low".
	q, ok := s.Queue("idle")
	if !ok {
		t.Fatalf("queue idle not registered")
	}
	q.State().SetDelayUntil(time.Now().Add(2 * time.Hour))

	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("start all: %v", err)
	}

	var started []string
	for _, e := range pub.Events() {
		if e.Name == "queue_started" {
			started = append(started, e.ProfileID)
		}
	}
	want := []string{"high", "low", "idle"}
	if len(started) != len(want) {
		t.Fatalf("expected %d starts, got %v", len(want), started)
	}
	for i := range want {
		if started[i] != want[i] {
			t.Fatalf("start order %v, want %v", started, want)
		}
	}
}

func TestStartAllCancelledMidStaggerCanRetry(t *testing.T) {
	s := New(Config{
		Slots:        slots.New(slots.Config{MaxSlots: 2, RerankInterval: 2 * time.Millisecond}),
		Runner:       idleRunner(),
		StartStagger: 200 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Logger:       zerolog.Nop(),
	})
	t.Cleanup(s.StopAll)
	s.CreateQueue(testProfile("a", 2))
	s.CreateQueue(testProfile("b", 1))

	// Cancel well inside the stagger window so only the first queue launches.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.StartAll(ctx); err == nil {
		t.Fatalf("expected cancellation error from interrupted start")
	}
	if s.Ready() {
		t.Fatalf("cancelled start must not leave the scheduler marked started")
	}

	// A retry launches the queues the first pass never reached.
	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("retry after cancelled start: %v", err)
	}
	qb, ok := s.Queue("b")
	if !ok {
		t.Fatalf("queue b not registered")
	}
	waitFor(t, time.Second, qb.State().Running)
	qa, _ := s.Queue("a")
	waitFor(t, time.Second, qa.State().Running)
}

func TestStartAllTwice(t *testing.T) {
	s := newTestScheduler(t, nil, nil)
	s.CreateQueue(testProfile("a", 1))
	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("start all: %v", err)
	}
	if err := s.StartAll(context.Background()); !IsAlreadyStarted(err) {
		t.Fatalf("expected already-started error, got %v", err)
	}
}

func TestPauseResumeSingle(t *testing.T) {
	s := newTestScheduler(t, nil, nil)
	s.CreateQueue(testProfile("a", 1))

	if err := s.Pause("a"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	q, _ := s.Queue("a")
	if !q.State().Paused() {
		t.Fatalf("queue state not paused")
	}
	states := s.ActiveQueueStates()
	if len(states) != 1 || !states[0].Paused {
		t.Fatalf("projection does not reflect pause: %+v", states)
	}

	if err := s.Resume("a"); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if q.State().Paused() || s.ActiveQueueStates()[0].Paused {
		t.Fatalf("resume not reflected")
	}

	if err := s.Pause("ghost"); !IsProfileNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if err := s.Resume("ghost"); !IsProfileNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestPauseAllResumeAll(t *testing.T) {
	s := newTestScheduler(t, nil, nil)
	s.CreateQueue(testProfile("a", 1))
	s.CreateQueue(testProfile("b", 2))

	s.PauseAll()
	for _, qs := range s.ActiveQueueStates() {
		if !qs.Paused {
			t.Fatalf("queue %s not paused", qs.ProfileID)
		}
	}
	s.ResumeAll()
	for _, qs := range s.ActiveQueueStates() {
		if qs.Paused {
			t.Fatalf("queue %s still paused", qs.ProfileID)
		}
	}
}

func TestActiveQueueStatesSortedByName(t *testing.T) {
	s := newTestScheduler(t, nil, nil)
	for _, p := range []*types.Profile{
		{ID: "1", Name: "gamma", Priority: 1, Emulator: "e1"},
		{ID: "2", Name: "Alpha", Priority: 1, Emulator: "e2"},
		{ID: "3", Name: "beta", Priority: 1, Emulator: "e3"},
	} {
		s.CreateQueue(p)
	}
	states := s.ActiveQueueStates()
	want := []string{"Alpha", "beta", "gamma"}
	for i, qs := range states {
		if qs.ProfileName != want[i] {
			t.Fatalf("sort order %v at %d, want %v", qs.ProfileName, i, want[i])
		}
	}
}

func TestStopAllNotifiesSinkAndClears(t *testing.T) {
	sink := &recordingSink{}
	s := newTestScheduler(t, nil, sink)
	s.CreateQueue(testProfile("a", 1))
	s.CreateQueue(testProfile("b", 2))
	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("start all: %v", err)
	}

	s.StopAll()

	seen := map[string]bool{}
	for _, id := range sink.seen() {
		seen[id] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("sink not notified for all profiles: %v", sink.seen())
	}
	if got := len(s.ActiveQueueStates()); got != 0 {
		t.Fatalf("expected queues cleared, got %d", got)
	}
	if s.Ready() {
		t.Fatalf("expected not ready after stop")
	}
}

func TestStatusSnapshot(t *testing.T) {
	s := newTestScheduler(t, nil, nil)
	s.CreateQueue(testProfile("a", 1))

	st := s.Status()
	if st.State != "stopped" {
		t.Fatalf("expected stopped, got %q", st.State)
	}
	if err := s.StartAll(context.Background()); err != nil {
		t.Fatalf("start all: %v", err)
	}
	st = s.Status()
	if st.State != "running" {
		t.Fatalf("expected running, got %q", st.State)
	}
	if st.SlotsMax != 2 {
		t.Fatalf("expected 2 max slots, got %d", st.SlotsMax)
	}
	if len(st.Queues) != 1 {
		t.Fatalf("expected 1 queue in status, got %d", len(st.Queues))
	}
}

func TestProfilesSortedByID(t *testing.T) {
	s := newTestScheduler(t, nil, nil)
	s.CreateQueue(testProfile("b", 1))
	s.CreateQueue(testProfile("a", 2))
	ps := s.Profiles()
	if len(ps) != 2 || ps[0].ID != "a" || ps[1].ID != "b" {
		t.Fatalf("unexpected profile order: %+v", ps)
	}
}
