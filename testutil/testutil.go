// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"testing"

	"pokerbot/cliparse"
	"pokerbot/models"
	"pokerbot/store"
)

// TestKey is the session key most tests run under.
var TestKey = models.SessionKey{ChatID: -100123, TopicID: 7}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		BotToken:       "123:test-token",
		UserToken:      "user-secret",
		LeadToken:      "lead-secret",
		AdminToken:     "admin-secret",
		StoreType:      "memory",
		VoteTimeoutSec: 90,
		WarnBeforeSec:  10,
	}
}

// SetupStore returns an empty in-memory repository.
func SetupStore(t *testing.T) store.Repository {
	t.Helper()
	return store.NewMemory()
}

// SeedSession stores a session with the given participants and queued
// task summaries, ready to vote.
func SeedSession(t *testing.T, repo store.Repository, key models.SessionKey, participants map[int64]models.Participant, summaries ...string) *models.Session {
	t.Helper()

	s := models.NewSession(key)
	for id, p := range participants {
		s.Participants[id] = p
	}
	for _, summary := range summaries {
		s.Queue = append(s.Queue, models.NewTask("", summary, ""))
	}
	if err := repo.Save(s); err != nil {
		t.Fatalf("Failed to seed session: %v", err)
	}
	return s
}

// Voters builds a participant map of n voting participants with IDs 1..n,
// the first of which is a lead.
func Voters(n int) map[int64]models.Participant {
	out := make(map[int64]models.Participant, n)
	for i := 1; i <= n; i++ {
		role := models.RoleParticipant
		if i == 1 {
			role = models.RoleLead
		}
		out[int64(i)] = models.Participant{Name: "user" + string(rune('a'+i-1)), Role: role}
	}
	return out
}
