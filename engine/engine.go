// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"pokerbot/models"
	"pokerbot/store"
)

var (
	ErrNotAuthorized = errors.New("not authorized")
	ErrNoActiveTask  = errors.New("no active task")
	ErrNotVoting     = errors.New("session is not collecting votes")
	ErrInvalidVote   = errors.New("vote value not in scale")
)

// Notifier delivers user-facing messages. Calls are best effort: the engine
// logs failures and never rolls back a state transition because a chat
// message could not be delivered.
type Notifier interface {
	Send(ctx context.Context, key models.SessionKey, text string) (messageID int64, err error)
	Edit(ctx context.Context, key models.SessionKey, messageID int64, text string) error
	Delete(ctx context.Context, key models.SessionKey, messageID int64) error
	Answer(ctx context.Context, callbackID, text string) error
}

// TaskSource resolves task queries against an external tracker and writes
// resolved estimates back. Failures are per task, never fatal to a batch.
type TaskSource interface {
	Resolve(ctx context.Context, query string) ([]*models.Task, error)
	WriteBack(ctx context.Context, taskKey string, points int) error
}

// Options tunes an Engine. Zero values fall back to the defaults used by
// the original deployment: the 1-13 scale, a 90 second vote timeout and a
// 10 second warning lead.
type Options struct {
	Scale       []string
	VoteTimeout time.Duration
	WarnBefore  time.Duration
}

// Engine owns all session mutation. Every operation is a read-modify-write
// against the repository executed under a per-session lock, so concurrent
// interactions with the same session (double-clicks, timer expiry racing a
// final vote) serialize instead of corrupting state. Distinct sessions
// never contend.
type Engine struct {
	repo     store.Repository
	notifier Notifier
	timers   *timerRegistry
	guard    *Guard
	scale    []string
	timeout  time.Duration

	mu    sync.Mutex
	locks map[models.SessionKey]*sync.Mutex
}

func New(repo store.Repository, notifier Notifier, opts Options) *Engine {
	if len(opts.Scale) == 0 {
		opts.Scale = models.DefaultScale
	}
	if opts.VoteTimeout == 0 {
		opts.VoteTimeout = 90 * time.Second
	}
	if opts.WarnBefore == 0 {
		opts.WarnBefore = 10 * time.Second
	}
	return &Engine{
		repo:     repo,
		notifier: notifier,
		timers:   newTimerRegistry(opts.WarnBefore),
		guard:    NewGuard(),
		scale:    opts.Scale,
		timeout:  opts.VoteTimeout,
		locks:    map[models.SessionKey]*sync.Mutex{},
	}
}

// Scale returns the configured vote scale.
func (e *Engine) Scale() []string { return e.scale }

// Session returns a snapshot of the session for read-only display.
func (e *Engine) Session(key models.SessionKey) (*models.Session, error) {
	return e.repo.Get(key)
}

// DeleteSession removes all session state and stops its timer. Used by the
// administrative wipe command only.
func (e *Engine) DeleteSession(key models.SessionKey) error {
	unlock := e.lock(key)
	defer unlock()
	e.timers.Cancel(key)
	return e.repo.Delete(key)
}

// lock serializes operations on one session key.
func (e *Engine) lock(key models.SessionKey) (unlock func()) {
	e.mu.Lock()
	l, ok := e.locks[key]
	if !ok {
		l = &sync.Mutex{}
		e.locks[key] = l
	}
	e.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (e *Engine) validVote(value string) bool {
	if value == models.VoteSkip {
		return true
	}
	for _, v := range e.scale {
		if v == value {
			return true
		}
	}
	return false
}

// notify sends a message and records its ID on the session. Delivery
// failures are logged and swallowed.
func (e *Engine) notify(ctx context.Context, s *models.Session, text string) {
	id, err := e.notifier.Send(ctx, s.Key(), text)
	if err != nil {
		slog.Warn("notify failed", "session", s.Key(), "error", err)
		return
	}
	s.ActiveMessageID = id
}

// notifyPlain sends a message without touching the active message ID.
func (e *Engine) notifyPlain(ctx context.Context, key models.SessionKey, text string) {
	if _, err := e.notifier.Send(ctx, key, text); err != nil {
		slog.Warn("notify failed", "session", key, "error", err)
	}
}
