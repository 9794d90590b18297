// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package telegram is the chat transport: a thin Bot API client plus the
update dispatcher.

Bot implements the engine's Notifier (send, edit, delete, callback
answers). Dispatcher long-polls getUpdates and maps commands and vote
button callbacks onto engine operations; it keeps no session state, so
every update is resolved against the store-backed engine.

# Commands

	/join <token>      join with a role token (user, lead or admin token)
	/leave             leave the session
	/kick <user id>    remove a participant (lead/admin)
	/tasks <lines>     queue manual tasks, one title per line
	/import <query>    pull tasks from the issue tracker (lead/admin)
	/start_batch       start voting on the queue (lead/admin)
	/pause /resume     suspend and continue the current round (lead/admin)
	/extend <seconds>  push the current deadline out
	/review            park the current task for later discussion (lead/admin)
	/results           show the last finished batch
	/summary           show all finished batches and total story points
	/reset             clear the queue (lead/admin)
	/finish            force batch completion (lead/admin)
	/push              write resolved story points to the tracker (lead/admin)
	/wipe              delete all session state (lead/admin)

Votes arrive as callback queries with data "vote:<value>".
*/
package telegram
