// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"encoding/json"
	"fmt"
	"sync"

	"pokerbot/models"
)

// Memory is the in-process backend. Sessions are stored as JSON snapshots
// so Get always hands out an independent copy: a caller mutating a loaded
// session cannot leak partial writes into the store before Save.
type Memory struct {
	mu       sync.Mutex
	sessions map[models.SessionKey][]byte
}

func NewMemory() *Memory {
	return &Memory{sessions: map[models.SessionKey][]byte{}}
}

func (m *Memory) Get(key models.SessionKey) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	raw, ok := m.sessions[key]
	if !ok {
		return models.NewSession(key), nil
	}
	var s models.Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return &s, nil
}

func (m *Memory) Save(s *models.Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.Key(), err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.Key()] = raw
	return nil
}

func (m *Memory) Delete(key models.SessionKey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key)
	return nil
}
