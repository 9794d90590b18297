// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"pokerbot/models"
)

// StartBatch begins voting on the queued tasks. Returns false without
// touching state when the queue is empty or a batch is already voting.
func (e *Engine) StartBatch(ctx context.Context, key models.SessionKey) (bool, error) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return false, err
	}

	if len(s.Queue) == 0 || s.State == models.BatchVoting {
		return false, nil
	}

	now := time.Now().UTC()
	s.CurrentIndex = 0
	s.Queue[0].ResetVotes()
	s.Revote = nil
	s.PausedFrom = ""
	s.BatchID = uuid.NewString()
	s.BatchStartedAt = &now
	s.State = models.BatchVoting

	slog.Info("batch started", "session", key, "batch", s.BatchID, "tasks", len(s.Queue))
	e.announceCurrent(ctx, s)
	e.armTimer(s)

	if err := e.repo.Save(s); err != nil {
		return false, err
	}
	return true, nil
}

// ResetQueue drops all queued tasks and any in-flight voting state,
// returning the number of removed tasks. History and the last batch are
// never touched. Safe on an empty queue (no-op, returns 0).
func (e *Engine) ResetQueue(ctx context.Context, key models.SessionKey) (int, error) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return 0, err
	}

	removed := len(s.Queue)
	if task := s.CurrentTask(); task != nil {
		task.ResetVotes()
	}
	s.Queue = nil
	s.CurrentIndex = 0
	s.Revote = nil
	s.PausedFrom = ""
	s.BatchID = ""
	s.BatchStartedAt = nil
	s.State = models.BatchIdle
	e.cancelTimer(s)

	slog.Info("queue reset", "session", key, "removed", removed)
	if err := e.repo.Save(s); err != nil {
		return 0, err
	}
	return removed, nil
}

// Pause suspends vote collection until Resume. The armed timer is
// cancelled; recorded votes are kept. Returns false unless the session is
// currently collecting votes.
func (e *Engine) Pause(ctx context.Context, key models.SessionKey) (bool, error) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return false, err
	}

	if s.State != models.BatchVoting && s.State != models.BatchRevoting {
		return false, nil
	}
	s.PausedFrom = s.State
	s.State = models.BatchPaused
	e.cancelTimer(s)

	slog.Info("session paused", "session", key)
	e.notifyPlain(ctx, key, "Voting paused.")
	if err := e.repo.Save(s); err != nil {
		return false, err
	}
	return true, nil
}

// Resume continues a paused session in the state it was paused from and
// re-arms the vote timer for the current task.
func (e *Engine) Resume(ctx context.Context, key models.SessionKey) (bool, error) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return false, err
	}

	if s.State != models.BatchPaused {
		return false, nil
	}
	s.State = s.PausedFrom
	if s.State == "" {
		s.State = models.BatchVoting
	}
	s.PausedFrom = ""

	slog.Info("session resumed", "session", key, "state", s.State)
	if s.CurrentTask() != nil {
		e.announceCurrent(ctx, s)
		e.armTimer(s)
	}
	if err := e.repo.Save(s); err != nil {
		return false, err
	}
	return true, nil
}

// NeedsReview moves the current task to the end of the queue with its votes
// and resolution cleared, so the group revisits it after the rest of the
// batch. Requires an active voting round.
func (e *Engine) NeedsReview(ctx context.Context, key models.SessionKey, byUserID int64) (bool, error) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return false, err
	}

	if !s.CanManage(byUserID) {
		return false, ErrNotAuthorized
	}
	if s.State != models.BatchVoting || s.CurrentTask() == nil {
		return false, nil
	}

	i := s.CurrentIndex
	task := s.Queue[i]
	s.Queue = append(s.Queue[:i], s.Queue[i+1:]...)
	s.Queue = append(s.Queue, task)
	task.ResetVotes()
	task.StoryPoints = nil
	task.CompletedAt = nil

	// CurrentIndex now points at the task that slid into the removed slot,
	// or back at the moved task itself when it was the last one.
	slog.Info("task sent to review", "session", key, "task", task.Summary)
	e.announceCurrent(ctx, s)
	e.armTimer(s)

	if err := e.repo.Save(s); err != nil {
		return false, err
	}
	return true, nil
}

// resolveCurrent assigns the current task its resolved value, cancels the
// timer and advances the batch. Caller holds the session lock and saves.
func (e *Engine) resolveCurrent(ctx context.Context, s *models.Session) int {
	task := s.CurrentTask()
	points := ResolveTaskValue(task.Votes)
	now := time.Now().UTC()
	task.StoryPoints = &points
	task.CompletedAt = &now
	e.cancelTimer(s)

	slog.Info("task resolved",
		"session", s.Key(), "task", task.Summary, "points", points, "votes", len(task.Votes))
	e.notifyPlain(ctx, s.Key(), fmt.Sprintf("%s → %d", task.Summary, points))

	e.advance(ctx, s)
	return points
}

// advance moves to the next task, or runs discrepancy analysis and either
// enters a revote round or finishes the batch when the queue is exhausted.
func (e *Engine) advance(ctx context.Context, s *models.Session) {
	if s.State == models.BatchRevoting && s.Revote != nil {
		s.Revote.Position++
		if s.Revote.Position < len(s.Revote.TaskIndices) {
			next := s.CurrentTask()
			next.ResetVotes()
			next.StoryPoints = nil
			next.CompletedAt = nil
			e.announceCurrent(ctx, s)
			e.armTimer(s)
			return
		}
		e.finishBatch(ctx, s)
		return
	}

	s.CurrentIndex++
	if s.CurrentIndex < len(s.Queue) {
		s.Queue[s.CurrentIndex].ResetVotes()
		e.announceCurrent(ctx, s)
		e.armTimer(s)
		return
	}

	flagged := e.analyzeBatch(s)
	if len(flagged) > 0 {
		e.enterRevote(ctx, s, flagged)
		return
	}
	e.finishBatch(ctx, s)
}

// analyzeBatch returns the queue indices whose vote spread is significant.
func (e *Engine) analyzeBatch(s *models.Session) []int {
	var flagged []int
	for i, task := range s.Queue {
		if NeedsRevote(task.Votes) {
			flagged = append(flagged, i)
		}
	}
	return flagged
}

// enterRevote starts a revote round over the flagged tasks. The first
// flagged task loses its votes and resolution immediately; the rest are
// cleared as the round reaches them.
func (e *Engine) enterRevote(ctx context.Context, s *models.Session, indices []int) {
	s.Revote = &models.RevoteRequest{TaskIndices: indices}
	s.State = models.BatchRevoting

	first := s.CurrentTask()
	first.ResetVotes()
	first.StoryPoints = nil
	first.CompletedAt = nil

	slog.Info("revote started", "session", s.Key(), "tasks", len(indices))
	e.notifyPlain(ctx, s.Key(),
		fmt.Sprintf("Vote spread too wide on %d task(s), revoting.", len(indices)))
	e.announceCurrent(ctx, s)
	e.armTimer(s)
}

// finishBatch moves the resolved queue into last-batch and history and
// completes the batch. Idempotent: a second call on a completed batch is a
// no-op guarded by the state check.
func (e *Engine) finishBatch(ctx context.Context, s *models.Session) {
	if s.State == models.BatchCompleted {
		return
	}

	now := time.Now().UTC()
	for _, task := range s.Queue {
		task.BatchID = s.BatchID
		if task.CompletedAt == nil {
			task.CompletedAt = &now
		}
	}
	s.LastBatch = s.Queue
	s.History = append(s.History, s.Queue...)
	s.Queue = nil
	s.CurrentIndex = 0
	s.Revote = nil
	s.PausedFrom = ""
	s.BatchStartedAt = nil
	s.State = models.BatchCompleted
	e.cancelTimer(s)

	slog.Info("batch finished", "session", s.Key(), "batch", s.BatchID, "tasks", len(s.LastBatch))
	e.notifyPlain(ctx, s.Key(), BatchSummary(s.LastBatch))
}

// FinishBatch forces batch completion from outside the normal advance path
// (admin command). Refused when already completed or when the queue is
// empty: finishing nothing would overwrite the last batch with nothing.
func (e *Engine) FinishBatch(ctx context.Context, key models.SessionKey) (bool, error) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return false, err
	}
	if s.State == models.BatchCompleted || len(s.Queue) == 0 {
		return false, nil
	}
	e.finishBatch(ctx, s)
	if err := e.repo.Save(s); err != nil {
		return false, err
	}
	return true, nil
}

func (e *Engine) announceCurrent(ctx context.Context, s *models.Session) {
	task := s.CurrentTask()
	if task == nil {
		return
	}
	if s.State == models.BatchRevoting && s.Revote != nil {
		e.notify(ctx, s, fmt.Sprintf("Revote %d/%d: %s",
			s.Revote.Position+1, len(s.Revote.TaskIndices), task.Text()))
		return
	}
	e.notify(ctx, s, fmt.Sprintf("Task %d/%d: %s",
		s.CurrentIndex+1, len(s.Queue), task.Text()))
}

// BatchSummary renders one line per task with its resolved value and the
// average of the numeric votes. Used for the finish notification and the
// results command.
func BatchSummary(tasks []*models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Batch finished, %d task(s):\n", len(tasks))
	for _, t := range tasks {
		points := 0
		if t.StoryPoints != nil {
			points = *t.StoryPoints
		}
		fmt.Fprintf(&b, "• %s: %d (avg %.1f)\n", t.Summary, points, AverageVote(t.Votes))
	}
	return b.String()
}
