// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"errors"
	"sync"

	"pokerbot/models"
)

// ErrBusy is returned when an exclusive operation is already running for
// the same session.
var ErrBusy = errors.New("operation already in progress")

// Guard provides named mutual exclusion per (session, operation). It
// protects operations with external side effects (task imports, tracker
// write-backs) from rapid duplicate triggers. Callers are refused
// immediately rather than queued, and the lock is always released, on
// success and failure alike. Locks are never global: unrelated sessions or
// operations never contend.
type Guard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

func NewGuard() *Guard {
	return &Guard{held: map[string]struct{}{}}
}

// TryExclusive runs fn while holding the (key, operation) lock. If the lock
// is already held, fn is not invoked and ErrBusy is returned.
func (g *Guard) TryExclusive(key models.SessionKey, operation string, fn func() error) error {
	id := key.String() + "/" + operation

	g.mu.Lock()
	if _, busy := g.held[id]; busy {
		g.mu.Unlock()
		return ErrBusy
	}
	g.held[id] = struct{}{}
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.held, id)
		g.mu.Unlock()
	}()
	return fn()
}
