// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"pokerbot/models"
)

// SQLite persists one JSON document per session in a local database file.
// WAL mode plus a busy timeout keeps concurrent session saves from tripping
// over each other; remaining transient lock errors are retried.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(4)

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS session (
			chat_id    INTEGER NOT NULL,
			topic_id   INTEGER NOT NULL,
			payload    TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (chat_id, topic_id)
		);
	`)
	return err
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Get(key models.SessionKey) (*models.Session, error) {
	var raw string
	err := s.db.QueryRow(`
		SELECT payload FROM session WHERE chat_id = ? AND topic_id = ?
	`, key.ChatID, key.TopicID).Scan(&raw)
	if err == sql.ErrNoRows {
		return models.NewSession(key), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return &sess, nil
}

func (s *SQLite) Save(sess *models.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.Key(), err)
	}

	return retryBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO session (chat_id, topic_id, payload, updated_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT (chat_id, topic_id) DO UPDATE
			SET payload = excluded.payload, updated_at = excluded.updated_at
		`, sess.ChatID, sess.TopicID, string(raw), time.Now().UTC().Format(time.RFC3339))
		return err
	})
}

func (s *SQLite) Delete(key models.SessionKey) error {
	return retryBusy(func() error {
		_, err := s.db.Exec(`
			DELETE FROM session WHERE chat_id = ? AND topic_id = ?
		`, key.ChatID, key.TopicID)
		return err
	})
}

// retryBusy retries writes that hit transient SQLite lock errors. The busy
// timeout pragma handles most contention at the connection level; this
// covers the SQLITE_LOCKED fallthrough.
func retryBusy(fn func() error) error {
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		if err = fn(); err == nil || !isBusyErr(err) {
			return err
		}
		time.Sleep(time.Duration(attempt+1) * 50 * time.Millisecond)
	}
	return err
}

func isBusyErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "SQLITE_LOCKED") ||
		strings.Contains(msg, "database is locked")
}
