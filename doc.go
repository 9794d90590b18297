// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the planning poker bot.

The bot runs estimation sessions in group chats: participants join with
role tokens, a lead queues tasks (manually or imported from Jira),
starts a batch, and everyone votes on a 1-13 scale via inline buttons.
Each task resolves to the maximum numeric vote once all eligible voters
have voted or the round times out; batches with widely spread votes get
an automatic revote round before completing. Resolved estimates can be
written back to Jira story points.

# Starting the Bot

The bot requires environment variables or CLI flags for configuration:

	BOT_TOKEN=123:abc USER_TOKEN=secret go run main.go

Or with flags:

	go run main.go -token 123:abc -user-token secret -t sqlite

# Configuration

Required settings:

  - BOT_TOKEN (-token): Telegram bot token
  - at least one join token: USER_TOKEN, LEAD_TOKEN, ADMIN_TOKEN

Optional settings:

  - STORE_TYPE (-t): memory, sqlite or postgres (default: sqlite)
  - DATABASE_URL (-d): connection string
  - VOTE_TIMEOUT, WARN_BEFORE, VOTE_SCALE: round tuning
  - JIRA_URL, JIRA_USERNAME, JIRA_API_TOKEN, STORY_POINTS_FIELD

# Architecture

The bot uses an engine-based architecture with dependency injection:

  - engine: session state machine, voting, timers, concurrency guard
  - telegram: Bot API client and update dispatcher
  - jira: issue tracker adapter (task import, story point write-back)
  - store: session persistence (memory, SQLite, PostgreSQL)
  - models: session, task and participant types
  - auth: join token to role mapping
  - cliparse: configuration parsing

See package documentation for each component.
*/
package main
