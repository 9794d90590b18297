// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package engine is the planning poker core: the session state machine and
its concurrency-control layer.

# State machine

A session's batch moves through:

	idle --start(queue non-empty)--> voting
	voting --quorum on last task--> discrepancy check
	  --spread significant--> revoting --all flagged resolved--> completed
	  --otherwise--> completed
	voting|revoting --pause--> paused --resume--> (previous state)
	any --reset--> idle   (history and last batch are never touched)

A task resolves the moment every eligible voter (participant or lead,
never admin) has voted; the resolved value is the maximum numeric vote,
skips excluded, 0 when only skips were cast. A batch whose max/min vote
ratio exceeds 3 on any task is revoted on exactly those tasks before it
can complete.

# Concurrency

All mutation is read-modify-write against the store under a per-session
lock, so simultaneous votes, duplicate button presses and a timer expiry
racing the final vote serialize cleanly. Suspension (store and notifier
I/O) never happens mid-mutation of unshared state, and no component keeps
a session reference across operations.

The Guard adds named (session, operation) mutual exclusion for actions
with external side effects, such as imports and tracker write-backs,
answering duplicate triggers with ErrBusy instead of queueing them.

# Timers

Each session has at most one armed countdown, owned by an in-process
registry. Expiry treats missing votes as skip and resolves through the
normal path. The persisted session carries the authoritative deadline, so
a stale timer that lost a race against quorum or an admin action detects
the moved/cleared deadline and backs off. Every transition that makes a
countdown stale cancels it. A one-shot warning fires shortly before
expiry, at most once per task round.

# External collaborators

The Notifier (chat transport) and TaskSource (issue tracker) are best
effort: their failures are logged per item and never roll back a state
transition. Persistence failures, in contrast, abort the operation; the
caller retries the whole read-modify-write.
*/
package engine
