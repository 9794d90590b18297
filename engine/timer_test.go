// engine/timer_test.go
package engine

import (
	"context"
	"testing"
	"time"

	"pokerbot/models"
	"pokerbot/testutil"
)

func TestTimerExpiryForcesSkips(t *testing.T) {
	ctx := context.Background()
	eng, notifier, repo := newTestEngine(t, Options{
		VoteTimeout: 60 * time.Millisecond,
		WarnBefore:  time.Millisecond,
	})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(2), "T1")
	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.CastVote(ctx, key, 1, "5"); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool {
		s := mustGet(t, repo, key)
		return s.State == models.BatchCompleted
	})

	s := mustGet(t, repo, key)
	task := s.LastBatch[0]
	if task.Votes[2] != models.VoteSkip {
		t.Errorf("expected missing vote recorded as skip, got %q", task.Votes[2])
	}
	// One skip plus one numeric vote: normal resolution applies.
	if *task.StoryPoints != 5 {
		t.Errorf("expected 5, got %d", *task.StoryPoints)
	}
	if !notifier.contains("Time is up") {
		t.Error("expected timeout notification")
	}
}

func TestTimerExpiryAllSkip(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{
		VoteTimeout: 40 * time.Millisecond,
		WarnBefore:  time.Millisecond,
	})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(2), "T1")
	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool {
		s := mustGet(t, repo, key)
		return s.State == models.BatchCompleted
	})

	s := mustGet(t, repo, key)
	if *s.LastBatch[0].StoryPoints != 0 {
		t.Errorf("no votes at expiry should resolve to 0, got %d", *s.LastBatch[0].StoryPoints)
	}
}

func TestPauseCancelsTimer(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{
		VoteTimeout: 50 * time.Millisecond,
		WarnBefore:  time.Millisecond,
	})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(2), "T1")
	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Pause(ctx, key); err != nil {
		t.Fatal(err)
	}

	time.Sleep(200 * time.Millisecond)

	s := mustGet(t, repo, key)
	if s.State != models.BatchPaused {
		t.Errorf("cancelled timer must not fire, state %q", s.State)
	}
	if s.CurrentTask().Resolved() {
		t.Error("paused task must not resolve")
	}
}

func TestExtendTimer(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(2), "T1")

	// No timer armed: no-op.
	extended, err := eng.ExtendTimer(ctx, key, time.Minute)
	if err != nil || extended {
		t.Fatalf("expected no-op extend, extended=%v err=%v", extended, err)
	}

	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}
	before := *mustGet(t, repo, key).Deadline

	extended, err = eng.ExtendTimer(ctx, key, time.Minute)
	if err != nil || !extended {
		t.Fatalf("expected extend, extended=%v err=%v", extended, err)
	}
	after := *mustGet(t, repo, key).Deadline
	if got := after.Sub(before); got < 59*time.Second || got > 61*time.Second {
		t.Errorf("expected deadline pushed by ~1m, got %v", got)
	}
}

func TestWarningFiresOnce(t *testing.T) {
	ctx := context.Background()
	eng, notifier, repo := newTestEngine(t, Options{
		VoteTimeout: 150 * time.Millisecond,
		WarnBefore:  100 * time.Millisecond,
	})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(1), "T1")
	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}

	waitFor(t, 2*time.Second, func() bool { return notifier.contains("seconds left") })

	s := mustGet(t, repo, key)
	if !s.WarningSent {
		t.Error("expected warning flag persisted")
	}

	waitFor(t, 2*time.Second, func() bool {
		return mustGet(t, repo, key).State == models.BatchCompleted
	})

	notifier.mu.Lock()
	warnings := 0
	for _, m := range notifier.sent {
		if m == "10 seconds left!" {
			warnings++
		}
	}
	notifier.mu.Unlock()
	if warnings != 1 {
		t.Errorf("expected exactly one warning, got %d", warnings)
	}
}

func TestNewRoundRearmsTimer(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(2), "T1", "T2")
	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}
	first := *mustGet(t, repo, key).Deadline

	time.Sleep(10 * time.Millisecond)
	castAll(t, eng, key, map[int64]string{1: "5", 2: "5"})

	s := mustGet(t, repo, key)
	if s.Deadline == nil {
		t.Fatal("expected a fresh deadline for the next task")
	}
	if !s.Deadline.After(first) {
		t.Error("advancing must arm a fresh countdown")
	}
	if s.WarningSent {
		t.Error("warning flag must reset each round")
	}
}
