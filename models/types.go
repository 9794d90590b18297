package models

import "time"

// Participant roles
const (
	RoleParticipant Role = "participant"
	RoleLead        Role = "lead"
	RoleAdmin       Role = "admin"
)

// VoteSkip is the sentinel vote for "I cannot estimate this task".
// It counts toward quorum but is excluded from all numeric aggregation.
const VoteSkip = "skip"

// DefaultScale is the vote scale used when none is configured.
var DefaultScale = []string{"1", "2", "3", "5", "8", "13"}

type Role string

// CanVote reports whether the role participates in quorum.
// Admins moderate sessions but never vote.
func (r Role) CanVote() bool {
	return r == RoleParticipant || r == RoleLead
}

// CanManage reports whether the role may run admin commands
// (start/reset/pause/kick, external write-backs).
func (r Role) CanManage() bool {
	return r == RoleLead || r == RoleAdmin
}

// Participant is a member of a session. Participants are owned by their
// session and exist only between join and leave/kick.
type Participant struct {
	Name string `json:"name"`
	Role Role   `json:"role"`
}

// Task is a single estimation item. Votes are keyed by participant ID;
// encoding/json serializes the int64 keys as strings, which is the
// persisted wire format.
type Task struct {
	Key         string           `json:"key,omitempty"` // external tracker key, e.g. FLEX-365
	Summary     string           `json:"summary"`
	URL         string           `json:"url,omitempty"`
	StoryPoints *int             `json:"story_points,omitempty"`
	Votes       map[int64]string `json:"votes"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	BatchID     string           `json:"batch_id,omitempty"` // batch the task finished in
}

// NewTask creates an unvoted task.
func NewTask(key, summary, url string) *Task {
	return &Task{Key: key, Summary: summary, URL: url, Votes: map[int64]string{}}
}

// ResetVotes clears all recorded votes. Called whenever the task (re)starts.
func (t *Task) ResetVotes() {
	t.Votes = map[int64]string{}
}

// Resolved reports whether the task has been assigned a value.
func (t *Task) Resolved() bool {
	return t.StoryPoints != nil
}

// Text returns the task's display text: summary plus reference URL if any.
func (t *Task) Text() string {
	if t.URL == "" {
		return t.Summary
	}
	return t.Summary + " " + t.URL
}
