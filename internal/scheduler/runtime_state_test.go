package scheduler

import (
	"testing"
	"time"
)

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for {
		if cond() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %v", d)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestScheduleReconnectRoundTrip(t *testing.T) {
	st := newRuntimeState(0, 0)
	st.ScheduleReconnect(20 * time.Millisecond)

	if !st.NeedsReconnect() {
		t.Fatalf("expected needsReconnect after scheduling")
	}
	if st.ReadyToReconnect() {
		t.Fatalf("expected not ready before the timer fires")
	}
	if !st.Paused() {
		t.Fatalf("scheduling a reconnect must pause the queue")
	}

	waitFor(t, time.Second, st.ReadyToReconnect)
	// The cooldown elapsing does not clear the reconnect condition itself.
	if !st.NeedsReconnect() {
		t.Fatalf("needsReconnect must persist until explicitly cleared")
	}

	st.ClearReconnect()
	if st.NeedsReconnect() || st.ReadyToReconnect() || st.Paused() {
		t.Fatalf("expected reconnect state cleared")
	}
}

func TestScheduleReconnectZeroDelay(t *testing.T) {
	st := newRuntimeState(0, 0)
	st.SetPaused(true)
	st.ScheduleReconnect(0)
	waitFor(t, time.Second, st.ReadyToReconnect)
	if !st.NeedsReconnect() {
		t.Fatalf("needsReconnect must remain set after immediate cooldown")
	}
}

func TestRescheduleAbandonsEarlierTimer(t *testing.T) {
	st := newRuntimeState(0, 0)
	// Hammer immediate reschedules so some of the superseded callbacks fire
	// after being replaced, then park the live one an hour out.
	for i := 0; i < 100; i++ {
		st.ScheduleReconnect(0)
	}
	st.ScheduleReconnect(time.Hour)
	time.Sleep(20 * time.Millisecond)
	if st.ReadyToReconnect() {
		t.Fatalf("a superseded timer must not mark the queue ready")
	}
	if !st.NeedsReconnect() {
		t.Fatalf("reconnect condition must still be pending")
	}
}

func TestResetAbandonsPendingReconnect(t *testing.T) {
	st := newRuntimeState(0, 0)
	st.ScheduleReconnect(50 * time.Millisecond)
	st.Reset()
	time.Sleep(80 * time.Millisecond)
	if st.NeedsReconnect() || st.ReadyToReconnect() {
		t.Fatalf("reset must abandon the pending transition")
	}
	if st.Paused() || st.Running() {
		t.Fatalf("reset must restore default flags")
	}
	if d := st.DelayUntil(); time.Since(d) > time.Second {
		t.Fatalf("reset must set delayUntil to now, got %v", d)
	}
}

func TestIdleTimeExceededIsPure(t *testing.T) {
	st := newRuntimeState(10*time.Minute, 0)

	st.SetDelayUntil(time.Now().Add(20 * time.Minute))
	for i := 0; i < 5; i++ {
		if !st.IsIdleTimeExceeded() {
			t.Fatalf("call %d: expected exceeded for work due in 20m with 10m tolerance", i)
		}
	}

	st.SetDelayUntil(time.Now().Add(5 * time.Minute))
	for i := 0; i < 5; i++ {
		if st.IsIdleTimeExceeded() {
			t.Fatalf("call %d: expected not exceeded for work due in 5m", i)
		}
	}

	// The sticky indicator is separate from the predicate.
	if st.IdleExceeded() {
		t.Fatalf("sticky flag must not be set by the predicate")
	}
	st.MarkIdleExceeded()
	if !st.IdleExceeded() {
		t.Fatalf("expected sticky flag after MarkIdleExceeded")
	}
}

func TestBackgroundCheckSampling(t *testing.T) {
	st := newRuntimeState(0, 3)
	want := []bool{false, false, true, false, false, true, false, false, true}
	for i, w := range want {
		if got := st.ShouldRunBackgroundChecks(); got != w {
			t.Fatalf("call %d: expected %v got %v", i+1, w, got)
		}
	}
}

func TestSetPausedStampsTime(t *testing.T) {
	st := newRuntimeState(0, 0)
	before := time.Now()
	st.SetPaused(true)
	at := st.PausedAt()
	if at.Before(before) || at.After(time.Now()) {
		t.Fatalf("pausedAt not stamped at pause moment: %v", at)
	}
	st.SetPaused(false)
	if st.Paused() {
		t.Fatalf("expected unpaused")
	}
	// Resuming flips the flag only; the stamp is not timestamp-derived.
	if !st.PausedAt().Equal(at) {
		t.Fatalf("resume must not touch pausedAt")
	}
}

func TestLoopStateDuration(t *testing.T) {
	st := newRuntimeState(0, 0)
	loop := st.Loop()
	if d := loop.Duration(); d != 0 {
		t.Fatalf("expected zero duration before first loop, got %v", d)
	}

	st.LoopStarted()
	time.Sleep(10 * time.Millisecond)
	if d := loop.Duration(); d <= 0 {
		t.Fatalf("expected live duration while running, got %v", d)
	}

	loop.SetDidWork(true)
	loop.EndLoop()
	final := loop.Duration()
	time.Sleep(10 * time.Millisecond)
	if got := loop.Duration(); got != final {
		t.Fatalf("duration must be frozen after EndLoop: %v != %v", got, final)
	}
	if !loop.DidWork() {
		t.Fatalf("expected didWork recorded")
	}

	// The next loop resets the bookkeeping.
	st.LoopStarted()
	if loop.DidWork() {
		t.Fatalf("expected didWork cleared on loop start")
	}
}

func TestRuntimeStateDefaults(t *testing.T) {
	st := newRuntimeState(0, 0)
	if st.idleLimit != defaultIdleLimit {
		t.Fatalf("expected default idle limit %v got %v", defaultIdleLimit, st.idleLimit)
	}
	if st.checkEvery != defaultBackgroundCheckEvery {
		t.Fatalf("expected default check interval %d got %d", defaultBackgroundCheckEvery, st.checkEvery)
	}
}
