// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"fmt"
	"log/slog"

	"pokerbot/models"
)

// CastResult reports what a successful vote did.
type CastResult struct {
	Replaced bool // the voter overwrote an earlier vote on this task
	Resolved bool // this vote completed quorum and resolved the task
	Points   int  // resolved value, meaningful only when Resolved
}

// CastVote records a participant's vote on the current task. Re-voting
// before quorum simply replaces the prior value. When the vote completes
// quorum the task resolves to the maximum numeric vote and the batch
// advances.
func (e *Engine) CastVote(ctx context.Context, key models.SessionKey, userID int64, value string) (CastResult, error) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return CastResult{}, err
	}

	if s.State != models.BatchVoting && s.State != models.BatchRevoting {
		return CastResult{}, ErrNotVoting
	}
	task := s.CurrentTask()
	if task == nil {
		return CastResult{}, ErrNoActiveTask
	}
	if !s.CanVote(userID) {
		return CastResult{}, ErrNotAuthorized
	}
	if !e.validVote(value) {
		return CastResult{}, ErrInvalidVote
	}

	_, replaced := task.Votes[userID]
	task.Votes[userID] = value
	slog.Info("vote recorded",
		"session", key, "user", userID, "value", value, "replaced", replaced)

	res := CastResult{Replaced: replaced}
	if s.QuorumReached() {
		res.Resolved = true
		res.Points = e.resolveCurrent(ctx, s)
	}

	if err := e.repo.Save(s); err != nil {
		return CastResult{}, err
	}
	return res, nil
}

// Join adds (or re-adds) a participant with the given role. Idempotent.
// A joiner whose role cannot vote has any recorded vote on the current task
// dropped so they never count toward quorum.
func (e *Engine) Join(ctx context.Context, key models.SessionKey, userID int64, name string, role models.Role) error {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return err
	}

	s.Participants[userID] = models.Participant{Name: name, Role: role}
	if !role.CanVote() {
		if task := s.CurrentTask(); task != nil {
			delete(task.Votes, userID)
		}
	}
	slog.Info("participant joined", "session", key, "user", userID, "role", role)

	// A role change can shrink the eligible set and complete quorum.
	if e.maybeResolveAfterEligibilityChange(ctx, s) {
		slog.Info("quorum completed by role change", "session", key)
	}
	return e.repo.Save(s)
}

// Leave removes a participant and purges their vote on the current task so
// a departed voter cannot block quorum. Removal can itself complete quorum
// and resolve the task. Removing an unknown participant is a no-op.
func (e *Engine) Leave(ctx context.Context, key models.SessionKey, userID int64) (bool, error) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return false, err
	}

	if !e.removeParticipant(ctx, s, userID) {
		return false, nil
	}
	slog.Info("participant left", "session", key, "user", userID)

	if err := e.repo.Save(s); err != nil {
		return false, err
	}
	return true, nil
}

// Kick removes target from the session on behalf of a managing participant.
// The role check and the removal run under the same session lock, so the
// kicker's authority is evaluated against the state the removal applies to.
func (e *Engine) Kick(ctx context.Context, key models.SessionKey, byUserID, target int64) (bool, error) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return false, err
	}
	if !s.CanManage(byUserID) {
		return false, ErrNotAuthorized
	}
	if !e.removeParticipant(ctx, s, target) {
		return false, nil
	}
	slog.Info("participant kicked", "session", key, "user", target, "by", byUserID)

	if err := e.repo.Save(s); err != nil {
		return false, err
	}
	return true, nil
}

// removeParticipant drops the participant and their current vote, then
// re-evaluates quorum. Caller holds the session lock and saves.
func (e *Engine) removeParticipant(ctx context.Context, s *models.Session, userID int64) bool {
	if _, ok := s.Participants[userID]; !ok {
		return false
	}
	delete(s.Participants, userID)
	if task := s.CurrentTask(); task != nil {
		delete(task.Votes, userID)
	}
	if e.maybeResolveAfterEligibilityChange(ctx, s) {
		slog.Info("quorum completed by participant removal", "session", s.Key(), "user", userID)
	}
	return true
}

// AddTasks appends tasks to the queue, skipping duplicates of external keys
// already queued. Returns the number actually added.
func (e *Engine) AddTasks(ctx context.Context, key models.SessionKey, tasks []*models.Task) (int, error) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return 0, err
	}

	queued := map[string]bool{}
	for _, t := range s.Queue {
		if t.Key != "" {
			queued[t.Key] = true
		}
	}

	added := 0
	for _, t := range tasks {
		if t.Summary == "" {
			continue
		}
		if t.Key != "" && queued[t.Key] {
			continue
		}
		if t.Votes == nil {
			t.Votes = map[int64]string{}
		}
		s.Queue = append(s.Queue, t)
		if t.Key != "" {
			queued[t.Key] = true
		}
		added++
	}

	if added > 0 {
		slog.Info("tasks queued", "session", key, "added", added, "queue", len(s.Queue))
		e.notifyPlain(ctx, key, fmt.Sprintf("Queued %d task(s), %d total.", added, len(s.Queue)))
	}

	if err := e.repo.Save(s); err != nil {
		return 0, err
	}
	return added, nil
}

// maybeResolveAfterEligibilityChange re-evaluates quorum after the eligible
// voter set changed and resolves the current task if it is now complete.
func (e *Engine) maybeResolveAfterEligibilityChange(ctx context.Context, s *models.Session) bool {
	if s.State != models.BatchVoting && s.State != models.BatchRevoting {
		return false
	}
	if s.CurrentTask() == nil || !s.QuorumReached() {
		return false
	}
	e.resolveCurrent(ctx, s)
	return true
}
