// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store persists sessions behind a single Repository interface.

# Backends

Three backends implement the same contract; the deployment picks one via
configuration (never by duplicating business logic):

  - memory: in-process, for tests and throwaway runs
  - sqlite: single-file local database (WAL mode)
  - postgres: shared database for multi-instance deployments

Every backend stores a session as one JSON document keyed by
(chat_id, topic_id). Get returns a fresh empty session for unknown keys,
and Save after Delete simply recreates the row, so callers never need an
explicit create step.

# Consistency

The repository offers read-modify-write, nothing fancier: the engine loads
a session, mutates it in memory and saves it back while holding the
per-session lock. Backends only need atomic single-document writes, which
an upsert provides.
*/
package store
