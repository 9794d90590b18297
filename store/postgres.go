// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/lib/pq"

	"pokerbot/models"
)

// Postgres persists one JSONB document per session.
type Postgres struct {
	db *sql.DB
}

// OpenPostgres connects to the database at url, verifies the connection and
// ensures the schema.
func OpenPostgres(url string) (*Postgres, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}

	p := &Postgres{db: db}
	if err := p.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return p, nil
}

func (p *Postgres) migrate() error {
	_, err := p.db.Exec(`
		CREATE TABLE IF NOT EXISTS session (
			chat_id    BIGINT NOT NULL,
			topic_id   BIGINT NOT NULL,
			payload    JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (chat_id, topic_id)
		);
	`)
	return err
}

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) Get(key models.SessionKey) (*models.Session, error) {
	var raw []byte
	err := p.db.QueryRow(`
		SELECT payload FROM session WHERE chat_id = $1 AND topic_id = $2
	`, key.ChatID, key.TopicID).Scan(&raw)
	if err == sql.ErrNoRows {
		return models.NewSession(key), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", key, err)
	}

	var sess models.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", key, err)
	}
	return &sess, nil
}

func (p *Postgres) Save(sess *models.Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.Key(), err)
	}

	_, err = p.db.Exec(`
		INSERT INTO session (chat_id, topic_id, payload, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (chat_id, topic_id) DO UPDATE
		SET payload = EXCLUDED.payload, updated_at = NOW()
	`, sess.ChatID, sess.TopicID, raw)
	if err != nil {
		return fmt.Errorf("save session %s: %w", sess.Key(), err)
	}
	return nil
}

func (p *Postgres) Delete(key models.SessionKey) error {
	_, err := p.db.Exec(`
		DELETE FROM session WHERE chat_id = $1 AND topic_id = $2
	`, key.ChatID, key.TopicID)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", key, err)
	}
	return nil
}
