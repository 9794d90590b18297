// engine/voting_test.go
package engine

import (
	"context"
	"errors"
	"testing"

	"pokerbot/models"
	"pokerbot/testutil"
)

func TestCastVoteErrors(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(2), "T1")

	// Idle session: not collecting votes.
	if _, err := eng.CastVote(ctx, key, 1, "5"); !errors.Is(err, ErrNotVoting) {
		t.Errorf("expected ErrNotVoting on idle session, got %v", err)
	}

	if started, err := eng.StartBatch(ctx, key); err != nil || !started {
		t.Fatalf("StartBatch: started=%v err=%v", started, err)
	}

	// Non-participant.
	if _, err := eng.CastVote(ctx, key, 99, "5"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for stranger, got %v", err)
	}

	// Admin cannot vote.
	if err := eng.Join(ctx, key, 50, "admin", models.RoleAdmin); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.CastVote(ctx, key, 50, "5"); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for admin, got %v", err)
	}

	// Off-scale value.
	if _, err := eng.CastVote(ctx, key, 1, "42"); !errors.Is(err, ErrInvalidVote) {
		t.Errorf("expected ErrInvalidVote, got %v", err)
	}
}

func TestCastVoteOverwriteBeforeQuorum(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(2), "T1")
	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}

	res, err := eng.CastVote(ctx, key, 1, "5")
	if err != nil {
		t.Fatal(err)
	}
	if res.Replaced || res.Resolved {
		t.Errorf("first vote should be plain, got %+v", res)
	}

	res, err = eng.CastVote(ctx, key, 1, "8")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Replaced {
		t.Error("second vote from same user should replace")
	}
	if res.Resolved {
		t.Error("replacement must not resolve with quorum outstanding")
	}

	s := mustGet(t, repo, key)
	if got := s.CurrentTask().Votes[1]; got != "8" {
		t.Errorf("expected overwritten vote 8, got %q", got)
	}
}

func TestCastVoteQuorumResolvesToMax(t *testing.T) {
	ctx := context.Background()
	eng, notifier, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(2), "T1")
	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}

	if _, err := eng.CastVote(ctx, key, 1, "5"); err != nil {
		t.Fatal(err)
	}
	res, err := eng.CastVote(ctx, key, 2, "8")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Resolved || res.Points != 8 {
		t.Fatalf("expected resolution at 8, got %+v", res)
	}

	// Single-task batch with a narrow spread completes immediately.
	s := mustGet(t, repo, key)
	if s.State != models.BatchCompleted {
		t.Errorf("expected completed batch, got %q", s.State)
	}
	if len(s.LastBatch) != 1 || *s.LastBatch[0].StoryPoints != 8 {
		t.Errorf("expected last batch [8], got %+v", s.LastBatch)
	}
	if len(s.History) != 1 {
		t.Errorf("expected one task in history, got %d", len(s.History))
	}
	if s.Queue != nil {
		t.Errorf("expected drained queue, got %d tasks", len(s.Queue))
	}
	if !notifier.contains("Batch finished") {
		t.Error("expected batch summary notification")
	}
}

func TestSkipVotesCountTowardQuorum(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(2), "T1")
	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}

	if _, err := eng.CastVote(ctx, key, 1, models.VoteSkip); err != nil {
		t.Fatal(err)
	}
	res, err := eng.CastVote(ctx, key, 2, models.VoteSkip)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Resolved || res.Points != 0 {
		t.Errorf("all-skip task should resolve to 0, got %+v", res)
	}
}

func TestLeaveCompletesQuorum(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(3), "T1")
	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}

	if _, err := eng.CastVote(ctx, key, 1, "5"); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.CastVote(ctx, key, 2, "5"); err != nil {
		t.Fatal(err)
	}

	// The last holdout leaves; their absence completes quorum.
	removed, err := eng.Leave(ctx, key, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Fatal("expected participant to be removed")
	}

	s := mustGet(t, repo, key)
	if s.State != models.BatchCompleted {
		t.Errorf("expected departure to resolve the task, state %q", s.State)
	}
	if *s.LastBatch[0].StoryPoints != 5 {
		t.Errorf("expected 5, got %d", *s.LastBatch[0].StoryPoints)
	}
}

func TestLeaveUnknownParticipant(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(1))

	removed, err := eng.Leave(ctx, key, 999)
	if err != nil {
		t.Fatal(err)
	}
	if removed {
		t.Error("removing an unknown participant must be a no-op")
	}
}

func TestJoinRoleChangeDropsVote(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(2), "T1")
	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.CastVote(ctx, key, 2, "13"); err != nil {
		t.Fatal(err)
	}

	// User 2 rejoins as admin: the recorded vote is dropped and the
	// shrunken eligible set is re-evaluated.
	if err := eng.Join(ctx, key, 2, "userb", models.RoleAdmin); err != nil {
		t.Fatal(err)
	}

	s := mustGet(t, repo, key)
	if s.State != models.BatchVoting {
		t.Fatalf("expected still voting, got %q", s.State)
	}
	if _, ok := s.CurrentTask().Votes[2]; ok {
		t.Error("admin's stale vote should have been dropped")
	}

	// Remaining lone voter resolves the task.
	res, err := eng.CastVote(ctx, key, 1, "5")
	if err != nil {
		t.Fatal(err)
	}
	if !res.Resolved || res.Points != 5 {
		t.Errorf("expected resolution at 5, got %+v", res)
	}
}

func TestKickRequiresManager(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(3))

	// User 2 is a plain participant.
	if _, err := eng.Kick(ctx, key, 2, 3); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized, got %v", err)
	}

	// User 1 is the lead.
	removed, err := eng.Kick(ctx, key, 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if !removed {
		t.Error("expected target to be removed")
	}
	s := mustGet(t, repo, key)
	if _, ok := s.Participants[3]; ok {
		t.Error("kicked participant still present")
	}
}

func TestKickAfterLosingManageRole(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(3))

	// The lead leaves; their authority must be gone by the time a kick
	// from them is evaluated.
	if _, err := eng.Leave(ctx, key, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Kick(ctx, key, 1, 2); !errors.Is(err, ErrNotAuthorized) {
		t.Errorf("expected ErrNotAuthorized for departed lead, got %v", err)
	}
	s := mustGet(t, repo, key)
	if _, ok := s.Participants[2]; !ok {
		t.Error("target must survive an unauthorized kick")
	}
}

func TestKickCompletesQuorum(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(3), "T1")
	if _, err := eng.StartBatch(ctx, key); err != nil {
		t.Fatal(err)
	}
	castAll(t, eng, key, map[int64]string{1: "5", 2: "8"})

	// Kicking the holdout completes quorum and resolves the task.
	removed, err := eng.Kick(ctx, key, 1, 3)
	if err != nil || !removed {
		t.Fatalf("expected kick, removed=%v err=%v", removed, err)
	}
	s := mustGet(t, repo, key)
	if s.State != models.BatchCompleted || *s.LastBatch[0].StoryPoints != 8 {
		t.Errorf("expected kick to resolve the task at 8, state=%q", s.State)
	}
}

func TestAddTasksDedupe(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(1))

	added, err := eng.AddTasks(ctx, key, []*models.Task{
		models.NewTask("FLEX-1", "First", ""),
		models.NewTask("FLEX-2", "Second", ""),
	})
	if err != nil {
		t.Fatal(err)
	}
	if added != 2 {
		t.Fatalf("expected 2 added, got %d", added)
	}

	added, err = eng.AddTasks(ctx, key, []*models.Task{
		models.NewTask("FLEX-1", "First again", ""), // duplicate key
		models.NewTask("", "", ""),                  // empty summary
		models.NewTask("", "Manual", ""),            // keyless, always added
	})
	if err != nil {
		t.Fatal(err)
	}
	if added != 1 {
		t.Errorf("expected 1 added on second call, got %d", added)
	}

	s := mustGet(t, repo, key)
	if len(s.Queue) != 3 {
		t.Errorf("expected queue of 3, got %d", len(s.Queue))
	}
}
