package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"swarmd/internal/slots"
	"swarmd/pkg/types"
)

// Queue drives the recurring stream of task cycles for one profile. Each
// queue owns exactly one worker goroutine; its RuntimeState is private to
// that worker apart from pause/reset commands.
type Queue struct {
	profile *types.Profile
	state   *RuntimeState
	slots   *slots.Manager
	runner  TaskRunner
	pub     EventPublisher
	log     zerolog.Logger
	tick    time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newQueue(p *types.Profile, st *RuntimeState, sm *slots.Manager, runner TaskRunner, pub EventPublisher, log zerolog.Logger, tick time.Duration) *Queue {
	return &Queue{
		profile: p,
		state:   st,
		slots:   sm,
		runner:  runner,
		pub:     pub,
		log:     log.With().Str("profile", p.ID).Logger(),
		tick:    tick,
	}
}

// State exposes the queue's runtime state machine.
func (q *Queue) State() *RuntimeState { return q.state }

// Profile returns the profile this queue belongs to.
func (q *Queue) Profile() *types.Profile { return q.profile }

// Start launches the worker loop. Starting a running queue is an error so
// StartAll can log and continue with the rest.
func (q *Queue) Start() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cancel != nil {
		return alreadyStartedError{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel
	q.done = make(chan struct{})
	go q.run(ctx)
	return nil
}

// Stop cancels the worker loop and waits for it to exit. Safe to call on a
// stopped queue.
func (q *Queue) Stop() {
	q.mu.Lock()
	cancel := q.cancel
	done := q.done
	q.cancel = nil
	q.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (q *Queue) run(ctx context.Context) {
	defer close(q.done)
	q.state.setRunning(true)
	defer q.state.setRunning(false)
	q.log.Info().Int("priority", q.profile.Priority).Str("emulator", q.profile.Emulator).Msg("queue worker started")

	for {
		if ctx.Err() != nil {
			return
		}

		// Reconnect gate: while the cooldown runs the queue issues no new
		// cycles; it resumes when the timer has fired.
		if q.state.NeedsReconnect() {
			if !q.state.ReadyToReconnect() {
				q.sleep(ctx, q.tick)
				continue
			}
			q.state.ClearReconnect()
			q.pub.Publish(Event{Name: "queue_reconnected", ProfileID: q.profile.ID})
			q.log.Info().Msg("reconnect cooldown elapsed, resuming")
		}

		if q.state.Paused() {
			q.sleep(ctx, q.tick)
			continue
		}

		// Wait out the schedule without holding a slot.
		if wait := time.Until(q.state.DelayUntil()); wait > 0 {
			q.sleep(ctx, min(wait, q.tick))
			continue
		}

		if q.state.ShouldRunBackgroundChecks() {
			if bc, ok := q.runner.(BackgroundChecker); ok {
				if err := bc.RunBackgroundChecks(ctx, q.profile); err != nil {
					q.log.Warn().Err(err).Msg("background checks failed")
				}
			}
		}

		if err := q.slots.Acquire(ctx, q.profile.ID, q.profile, q.onPosition); err != nil {
			if ctx.Err() != nil || slots.IsPoolReset(err) {
				return
			}
			q.log.Error().Err(err).Msg("slot acquisition failed")
			q.sleep(ctx, q.tick)
			continue
		}

		q.state.LoopStarted()
		outcome, err := q.runner.ExecuteCycle(ctx, q.profile)
		q.slots.Release(q.profile.ID, q.profile)
		q.state.Loop().SetDidWork(outcome.DidWork)
		q.state.Loop().EndLoop()
		cyclesTotal.WithLabelValues(q.profile.ID).Inc()
		cycleDuration.Observe(q.state.Loop().Duration().Seconds())

		switch {
		case err != nil:
			// Task-level failures are the task contract's concern; the
			// queue only reschedules.
			q.log.Warn().Err(err).Msg("task cycle failed, rescheduling")
			q.state.SetDelayUntil(time.Now().Add(q.tick))
		case outcome.Reconnect:
			reconnectsTotal.WithLabelValues(q.profile.ID).Inc()
			q.state.ScheduleReconnect(outcome.RetryAfter)
			q.pub.Publish(Event{Name: "queue_reconnect_scheduled", ProfileID: q.profile.ID,
				Fields: map[string]any{"retry_after": outcome.RetryAfter.String()}})
			q.log.Info().Dur("retry_after", outcome.RetryAfter).Msg("reconnect scheduled")
		default:
			q.state.SetDelayUntil(outcome.NextDue)
		}
	}
}

func (q *Queue) onPosition(_ string, rank int) {
	q.log.Debug().Int("rank", rank).Msg("slot queue position")
}

func (q *Queue) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
