// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"pokerbot/models"
)

// DefaultAPIURL is the production Bot API endpoint.
const DefaultAPIURL = "https://api.telegram.org"

// Bot is a minimal Bot API client. It implements engine.Notifier; all
// notifier calls are best effort and the engine treats their failures as
// non-fatal.
type Bot struct {
	token string
	base  string
	http  *http.Client
}

// New creates a Bot API client. apiURL is overridable for tests; empty
// means DefaultAPIURL.
func New(token, apiURL string) *Bot {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Bot{
		token: token,
		base:  strings.TrimRight(apiURL, "/"),
		http:  &http.Client{Timeout: 65 * time.Second},
	}
}

// Send posts a message to the session's chat topic and returns its ID.
func (b *Bot) Send(ctx context.Context, key models.SessionKey, text string) (int64, error) {
	payload := map[string]any{"chat_id": key.ChatID, "text": text}
	if key.TopicID != 0 {
		payload["message_thread_id"] = key.TopicID
	}
	var msg struct {
		MessageID int64 `json:"message_id"`
	}
	if err := b.call(ctx, "sendMessage", payload, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

// Edit replaces the text of an earlier message.
func (b *Bot) Edit(ctx context.Context, key models.SessionKey, messageID int64, text string) error {
	return b.call(ctx, "editMessageText", map[string]any{
		"chat_id":    key.ChatID,
		"message_id": messageID,
		"text":       text,
	}, nil)
}

// Delete removes a message.
func (b *Bot) Delete(ctx context.Context, key models.SessionKey, messageID int64) error {
	return b.call(ctx, "deleteMessage", map[string]any{
		"chat_id":    key.ChatID,
		"message_id": messageID,
	}, nil)
}

// Answer acknowledges a callback query with a short toast.
func (b *Bot) Answer(ctx context.Context, callbackID, text string) error {
	return b.call(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
	}, nil)
}

// getUpdates long-polls for updates after offset.
func (b *Bot) getUpdates(ctx context.Context, offset int64) ([]Update, error) {
	var updates []Update
	err := b.call(ctx, "getUpdates", map[string]any{
		"offset":  offset,
		"timeout": 30,
	}, &updates)
	return updates, err
}

func (b *Bot) call(ctx context.Context, method string, payload, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	url := b.base + "/bot" + b.token + "/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		OK          bool            `json:"ok"`
		Result      json.RawMessage `json:"result"`
		Description string          `json:"description"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&envelope); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if !envelope.OK {
		return fmt.Errorf("%s: %s", method, envelope.Description)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("%s: decode result: %w", method, err)
		}
	}
	return nil
}
