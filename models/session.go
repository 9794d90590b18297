// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import (
	"fmt"
	"sort"
	"time"
)

// Batch states
const (
	BatchIdle      BatchState = "idle"
	BatchVoting    BatchState = "voting"
	BatchPaused    BatchState = "paused"
	BatchRevoting  BatchState = "revoting"
	BatchCompleted BatchState = "completed"
)

type BatchState string

// SessionKey identifies a session: one planning group per chat topic.
// TopicID is zero for chats without topics.
type SessionKey struct {
	ChatID  int64 `json:"chat_id"`
	TopicID int64 `json:"topic_id"`
}

func (k SessionKey) String() string {
	return fmt.Sprintf("%d:%d", k.ChatID, k.TopicID)
}

// RevoteRequest tracks an in-flight revote round: which queue indices were
// flagged by discrepancy analysis and which of them is being revoted now.
type RevoteRequest struct {
	TaskIndices []int `json:"task_indices"`
	Position    int   `json:"position"`
}

// Session is the aggregate root. All mutation goes through the engine under
// the per-session lock; no component keeps a reference across a repository
// round-trip.
//
// Invariants:
//   - 0 <= CurrentIndex <= len(Queue); CurrentIndex == len(Queue) means the
//     queue is exhausted and the batch must finish.
//   - State == BatchVoting implies the queue is non-empty and
//     CurrentIndex < len(Queue).
//   - History and LastBatch are only written at batch finish; reset and kick
//     never touch them.
type Session struct {
	ChatID          int64                 `json:"chat_id"`
	TopicID         int64                 `json:"topic_id"`
	Participants    map[int64]Participant `json:"participants"`
	Queue           []*Task               `json:"queue"`
	CurrentIndex    int                   `json:"current_index"`
	History         []*Task               `json:"history"`
	LastBatch       []*Task               `json:"last_batch"`
	State           BatchState            `json:"state"`
	Revote          *RevoteRequest        `json:"revote,omitempty"`
	PausedFrom      BatchState            `json:"paused_from,omitempty"`
	BatchID         string                `json:"batch_id,omitempty"`
	BatchStartedAt  *time.Time            `json:"batch_started_at,omitempty"`
	Deadline        *time.Time            `json:"deadline,omitempty"`
	WarningSent     bool                  `json:"warning_sent"`
	ActiveMessageID int64                 `json:"active_message_id,omitempty"`
}

// NewSession creates an empty idle session for the key.
func NewSession(key SessionKey) *Session {
	return &Session{
		ChatID:       key.ChatID,
		TopicID:      key.TopicID,
		Participants: map[int64]Participant{},
		State:        BatchIdle,
	}
}

func (s *Session) Key() SessionKey {
	return SessionKey{ChatID: s.ChatID, TopicID: s.TopicID}
}

// CurrentTask returns the task votes are being collected for, or nil.
// During a revote round this is the flagged task at the revote position,
// not Queue[CurrentIndex].
func (s *Session) CurrentTask() *Task {
	if s.State == BatchRevoting && s.Revote != nil {
		if s.Revote.Position < len(s.Revote.TaskIndices) {
			i := s.Revote.TaskIndices[s.Revote.Position]
			if i >= 0 && i < len(s.Queue) {
				return s.Queue[i]
			}
		}
		return nil
	}
	if s.CurrentIndex >= 0 && s.CurrentIndex < len(s.Queue) {
		return s.Queue[s.CurrentIndex]
	}
	return nil
}

// CanVote reports whether the user is a participant with a voting role.
func (s *Session) CanVote(userID int64) bool {
	p, ok := s.Participants[userID]
	return ok && p.Role.CanVote()
}

// CanManage reports whether the user is a participant with a managing role.
func (s *Session) CanManage(userID int64) bool {
	p, ok := s.Participants[userID]
	return ok && p.Role.CanManage()
}

// EligibleVoterIDs returns the sorted IDs of participants whose votes count
// toward quorum.
func (s *Session) EligibleVoterIDs() []int64 {
	var ids []int64
	for id, p := range s.Participants {
		if p.Role.CanVote() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// QuorumReached reports whether every eligible voter has voted on the
// current task. False when there is no current task or no eligible voters.
func (s *Session) QuorumReached() bool {
	task := s.CurrentTask()
	if task == nil {
		return false
	}
	eligible := s.EligibleVoterIDs()
	if len(eligible) == 0 {
		return false
	}
	return len(task.Votes) >= len(eligible)
}
