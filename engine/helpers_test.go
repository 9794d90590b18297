// engine/helpers_test.go
package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"pokerbot/models"
	"pokerbot/store"
	"pokerbot/testutil"
)

// fakeNotifier records sent messages. Safe for concurrent use because
// timer callbacks deliver from their own goroutines.
type fakeNotifier struct {
	mu     sync.Mutex
	sent   []string
	nextID int64
}

func (f *fakeNotifier) Send(_ context.Context, _ models.SessionKey, text string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	f.nextID++
	return f.nextID, nil
}

func (f *fakeNotifier) Edit(context.Context, models.SessionKey, int64, string) error { return nil }

func (f *fakeNotifier) Delete(context.Context, models.SessionKey, int64) error { return nil }

func (f *fakeNotifier) Answer(context.Context, string, string) error { return nil }

func (f *fakeNotifier) contains(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.sent {
		if strings.Contains(m, substr) {
			return true
		}
	}
	return false
}

// newTestEngine builds an engine over an in-memory store with a timeout
// long enough that timers never interfere unless a test wants them to.
func newTestEngine(t *testing.T, opts Options) (*Engine, *fakeNotifier, store.Repository) {
	t.Helper()
	if opts.VoteTimeout == 0 {
		opts.VoteTimeout = time.Hour
	}
	repo := testutil.SetupStore(t)
	notifier := &fakeNotifier{}
	return New(repo, notifier, opts), notifier, repo
}

// mustGet loads a session or fails the test.
func mustGet(t *testing.T, repo store.Repository, key models.SessionKey) *models.Session {
	t.Helper()
	s, err := repo.Get(key)
	if err != nil {
		t.Fatalf("Failed to load session: %v", err)
	}
	return s
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
