// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the planning poker data model.

# Entities

  - Participant: a session member with a Role. The two capability
    predicates, Role.CanVote and Role.CanManage, are the single source of
    role semantics; nothing outside this package re-derives them.
  - Task: one estimation item with its votes keyed by participant ID.
  - Session: the aggregate root, keyed by (chat, topic). Holds the
    participants, the task queue, the last resolved batch and the
    append-only history.

# Roles

Participants and leads vote; leads and admins manage. An admin therefore
never blocks quorum, and a plain participant can never start or reset a
batch.

# Serialization

Sessions serialize to a single JSON document per (chat, topic). Vote maps
use string object keys on the wire (encoding/json handles the int64 key
conversion both ways), so the structure round-trips losslessly through any
of the store backends.

# Ownership

A Task belongs to exactly one collection phase: the queue while voting, then
last-batch/history after the batch finishes. Task values move as pointers;
the batch controller transfers them, it never copies.
*/
package models
