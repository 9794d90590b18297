// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pokerbot/models"
)

// timerRegistry owns every armed countdown, keyed by session. At most one
// timer is armed per session: arming again cancels and replaces the old
// one. The registry holds in-process timers only; the authoritative
// deadline lives on the persisted session, which is what expiry callbacks
// validate against before forcing a reveal.
type timerRegistry struct {
	mu         sync.Mutex
	warnBefore time.Duration
	timers     map[models.SessionKey]*sessionTimer
}

type sessionTimer struct {
	deadline time.Time
	expire   *time.Timer
	warn     *time.Timer
	warned   bool
	onWarn   func()
	onExpire func()
}

func newTimerRegistry(warnBefore time.Duration) *timerRegistry {
	return &timerRegistry{warnBefore: warnBefore, timers: map[models.SessionKey]*sessionTimer{}}
}

// Arm schedules onExpire after d and a one-shot onWarn shortly before the
// deadline. Replaces any existing timer for the key.
func (r *timerRegistry) Arm(key models.SessionKey, d time.Duration, onWarn, onExpire func()) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.cancelLocked(key)

	st := &sessionTimer{
		deadline: time.Now().Add(d),
		onWarn:   onWarn,
		onExpire: onExpire,
	}
	st.expire = time.AfterFunc(d, func() {
		r.mu.Lock()
		if r.timers[key] == st {
			delete(r.timers, key)
		}
		r.mu.Unlock()
		onExpire()
	})
	if d > r.warnBefore {
		st.warn = time.AfterFunc(d-r.warnBefore, func() {
			r.mu.Lock()
			st.warned = true
			r.mu.Unlock()
			onWarn()
		})
	}
	r.timers[key] = st
	return st.deadline
}

// Extend pushes the deadline of an armed timer by delta. Returns the new
// deadline, or false when no timer is armed. The warning stays one-shot:
// once fired it is not re-armed by an extension.
func (r *timerRegistry) Extend(key models.SessionKey, delta time.Duration) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, ok := r.timers[key]
	if !ok {
		return time.Time{}, false
	}
	if !st.expire.Stop() {
		// Already fired; the expiry callback owns the session now.
		return time.Time{}, false
	}

	st.deadline = st.deadline.Add(delta)
	remaining := time.Until(st.deadline)
	if remaining < 0 {
		remaining = 0
	}
	st.expire.Reset(remaining)

	if !st.warned && remaining > r.warnBefore {
		if st.warn != nil {
			st.warn.Stop()
		}
		warnIn := remaining - r.warnBefore
		st.warn = time.AfterFunc(warnIn, func() {
			r.mu.Lock()
			st.warned = true
			r.mu.Unlock()
			st.onWarn()
		})
	}
	return st.deadline, true
}

// Cancel stops the timer for the key without firing it.
func (r *timerRegistry) Cancel(key models.SessionKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelLocked(key)
}

func (r *timerRegistry) cancelLocked(key models.SessionKey) {
	st, ok := r.timers[key]
	if !ok {
		return
	}
	st.expire.Stop()
	if st.warn != nil {
		st.warn.Stop()
	}
	delete(r.timers, key)
}

// armTimer arms the countdown for the session's current task. The deadline
// is stamped on the session so stale in-process timers can be detected.
// Caller holds the session lock and saves.
func (e *Engine) armTimer(s *models.Session) {
	if e.timeout <= 0 {
		return
	}
	key := s.Key()
	dl := e.timers.Arm(key, e.timeout,
		func() { e.timerWarn(context.Background(), key) },
		func() { e.timerExpire(context.Background(), key) },
	)
	s.Deadline = &dl
	s.WarningSent = false
}

// cancelTimer stops the session's timer. Invoked by every transition that
// makes the countdown stale: resolution, pause, reset, finish, delete.
func (e *Engine) cancelTimer(s *models.Session) {
	e.timers.Cancel(s.Key())
	s.Deadline = nil
}

// ExtendTimer pushes the current task's deadline by delta. No-op returning
// false when no timer is armed.
func (e *Engine) ExtendTimer(ctx context.Context, key models.SessionKey, delta time.Duration) (bool, error) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		return false, err
	}
	if s.Deadline == nil {
		return false, nil
	}

	dl, ok := e.timers.Extend(key, delta)
	if !ok {
		return false, nil
	}
	s.Deadline = &dl

	slog.Info("timer extended", "session", key, "delta", delta, "deadline", dl)
	if err := e.repo.Save(s); err != nil {
		return false, err
	}
	return true, nil
}

// timerWarn emits the near-expiry ping, at most once per task round.
func (e *Engine) timerWarn(ctx context.Context, key models.SessionKey) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		slog.Error("timer warn: load failed", "session", key, "error", err)
		return
	}
	if s.State != models.BatchVoting && s.State != models.BatchRevoting {
		return
	}
	if s.Deadline == nil || s.WarningSent {
		return
	}

	e.notifyPlain(ctx, key, "10 seconds left!")
	s.WarningSent = true
	if err := e.repo.Save(s); err != nil {
		slog.Error("timer warn: save failed", "session", key, "error", err)
	}
}

// timerExpire forces a reveal: everyone who has not voted is treated as
// skip, then the task resolves through the normal path. A timer that lost
// the race against quorum or an admin action finds the deadline cleared or
// moved and backs off.
func (e *Engine) timerExpire(ctx context.Context, key models.SessionKey) {
	unlock := e.lock(key)
	defer unlock()

	s, err := e.repo.Get(key)
	if err != nil {
		slog.Error("timer expire: load failed", "session", key, "error", err)
		return
	}
	if s.State != models.BatchVoting && s.State != models.BatchRevoting {
		return
	}
	if s.Deadline == nil || time.Until(*s.Deadline) > time.Second {
		slog.Debug("stale timer ignored", "session", key)
		return
	}
	task := s.CurrentTask()
	if task == nil {
		return
	}

	for _, id := range s.EligibleVoterIDs() {
		if _, voted := task.Votes[id]; !voted {
			task.Votes[id] = models.VoteSkip
		}
	}
	slog.Info("vote timed out", "session", key, "task", task.Summary)
	e.notifyPlain(ctx, key, "Time is up, revealing votes.")
	e.resolveCurrent(ctx, s)

	if err := e.repo.Save(s); err != nil {
		slog.Error("timer expire: save failed", "session", key, "error", err)
	}
}
