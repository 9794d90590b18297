// engine/tracker_test.go
package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"pokerbot/models"
	"pokerbot/testutil"
)

type fakeSource struct {
	tasks      []*models.Task
	resolveErr error
	written    map[string]int
	failKeys   map[string]bool
	block      chan struct{} // when set, Resolve parks until closed
}

func (f *fakeSource) Resolve(ctx context.Context, query string) ([]*models.Task, error) {
	if f.block != nil {
		<-f.block
	}
	return f.tasks, f.resolveErr
}

func (f *fakeSource) WriteBack(ctx context.Context, taskKey string, points int) error {
	if f.failKeys[taskKey] {
		return fmt.Errorf("tracker rejected %s", taskKey)
	}
	if f.written == nil {
		f.written = map[string]int{}
	}
	f.written[taskKey] = points
	return nil
}

func TestImportTasks(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(1))

	src := &fakeSource{tasks: []*models.Task{
		models.NewTask("FLEX-1", "First", ""),
		models.NewTask("FLEX-2", "Second", ""),
	}}
	added, err := eng.ImportTasks(ctx, key, "key=FLEX-1 FLEX-2", src)
	if err != nil {
		t.Fatal(err)
	}
	if added != 2 {
		t.Errorf("expected 2 imported, got %d", added)
	}

	s := mustGet(t, repo, key)
	if len(s.Queue) != 2 {
		t.Errorf("expected 2 queued, got %d", len(s.Queue))
	}
}

func TestImportTasksBusy(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(1))

	block := make(chan struct{})
	slow := &fakeSource{block: block}
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := eng.ImportTasks(ctx, key, "jql=slow", slow)
		done <- err
	}()
	<-started

	// Wait until the first import holds the guard.
	waitFor(t, 2*time.Second, func() bool {
		err := eng.guard.TryExclusive(key, "import-tasks", func() error { return nil })
		return errors.Is(err, ErrBusy)
	})

	if _, err := eng.ImportTasks(ctx, key, "jql=dup", &fakeSource{}); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy for duplicate import, got %v", err)
	}

	close(block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
}

func TestPushStoryPoints(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey

	five, zero := 5, 0
	s := testutil.SeedSession(t, repo, key, testutil.Voters(1))
	s.LastBatch = []*models.Task{
		{Key: "FLEX-1", Summary: "Good", StoryPoints: &five},
		{Key: "FLEX-2", Summary: "Rejected", StoryPoints: &five},
		{Key: "FLEX-3", Summary: "All skip", StoryPoints: &zero},
		{Summary: "Manual task", StoryPoints: &five},
	}
	if err := repo.Save(s); err != nil {
		t.Fatal(err)
	}

	src := &fakeSource{failKeys: map[string]bool{"FLEX-2": true}}
	res, err := eng.PushStoryPoints(ctx, key, src)
	if err != nil {
		t.Fatal(err)
	}

	if res.Updated != 1 || src.written["FLEX-1"] != 5 {
		t.Errorf("expected one write-back of 5, got %+v written=%v", res, src.written)
	}
	// One failed write-back does not abort the rest.
	if len(res.Failed) != 1 || res.Failed[0] != "FLEX-2" {
		t.Errorf("expected FLEX-2 failed, got %v", res.Failed)
	}
	// Zero-point and keyless tasks are skipped with reasons.
	if len(res.Skipped) != 2 {
		t.Errorf("expected 2 skipped, got %v", res.Skipped)
	}
}

func TestPushStoryPointsEmptyBatch(t *testing.T) {
	ctx := context.Background()
	eng, _, repo := newTestEngine(t, Options{})
	key := testutil.TestKey
	testutil.SeedSession(t, repo, key, testutil.Voters(1))

	res, err := eng.PushStoryPoints(ctx, key, &fakeSource{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Updated != 0 || len(res.Failed) != 0 || len(res.Skipped) != 0 {
		t.Errorf("expected empty result, got %+v", res)
	}
}
