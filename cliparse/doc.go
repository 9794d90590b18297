// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

A .env file in the working directory is loaded before flags are
resolved; CLI flags take precedence over environment variables.

# Required settings

  - BOT_TOKEN (-token): Telegram bot token
  - at least one of USER_TOKEN, LEAD_TOKEN, ADMIN_TOKEN: join tokens
  - DATABASE_URL (-d): connection string, unless the store is
    "memory" or "sqlite" (sqlite defaults to file:pokerbot.db)

# Optional settings

  - STORE_TYPE (-t): memory, sqlite or postgres (default: sqlite)
  - VOTE_TIMEOUT (-vote-timeout): round timeout seconds (default: 90)
  - WARN_BEFORE (-warn-before): warning lead time seconds (default: 10)
  - VOTE_SCALE (-scale): comma-separated vote values
  - JIRA_URL, JIRA_USERNAME, JIRA_API_TOKEN: issue tracker access;
    username and token are required once the URL is set
  - STORY_POINTS_FIELD (-points-field): Jira custom field ID
    (default: customfield_10022)
*/
package cliparse
