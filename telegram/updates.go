// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"pokerbot/auth"
	"pokerbot/engine"
	"pokerbot/models"
)

// Bot API update types, trimmed to the fields the dispatcher reads.

type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message"`
	CallbackQuery *CallbackQuery `json:"callback_query"`
}

type Message struct {
	MessageID       int64  `json:"message_id"`
	From            *User  `json:"from"`
	Chat            Chat   `json:"chat"`
	Text            string `json:"text"`
	MessageThreadID int64  `json:"message_thread_id"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type User struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type CallbackQuery struct {
	ID      string   `json:"id"`
	From    User     `json:"from"`
	Message *Message `json:"message"`
	Data    string   `json:"data"`
}

// Dispatcher translates chat updates into engine calls. It holds no
// session state of its own: every command is resolved against the engine.
type Dispatcher struct {
	bot    *Bot
	eng    *engine.Engine
	tokens auth.Tokens
	source engine.TaskSource // nil when no tracker is configured
}

func NewDispatcher(bot *Bot, eng *engine.Engine, tokens auth.Tokens, source engine.TaskSource) *Dispatcher {
	return &Dispatcher{bot: bot, eng: eng, tokens: tokens, source: source}
}

// Run long-polls for updates until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		updates, err := d.bot.getUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Error("poll updates failed", "error", err)
			time.Sleep(3 * time.Second)
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			d.handleUpdate(ctx, u)
		}
	}
}

func (d *Dispatcher) handleUpdate(ctx context.Context, u Update) {
	start := time.Now()
	switch {
	case u.CallbackQuery != nil:
		d.handleCallback(ctx, u.CallbackQuery)
	case u.Message != nil && strings.HasPrefix(u.Message.Text, "/"):
		d.handleCommand(ctx, u.Message)
	default:
		return
	}
	slog.Info("update handled", "update_id", u.UpdateID, "duration_ms", time.Since(start).Milliseconds())
}

// handleCallback processes vote button presses ("vote:5", "vote:skip").
func (d *Dispatcher) handleCallback(ctx context.Context, cb *CallbackQuery) {
	if cb.Message == nil {
		return
	}
	key := models.SessionKey{ChatID: cb.Message.Chat.ID, TopicID: cb.Message.MessageThreadID}

	value, ok := strings.CutPrefix(cb.Data, "vote:")
	if !ok {
		return
	}

	res, err := d.eng.CastVote(ctx, key, cb.From.ID, value)
	d.answer(ctx, cb.ID, castReply(res, err))
}

func castReply(res engine.CastResult, err error) string {
	switch {
	case errors.Is(err, engine.ErrNotAuthorized):
		return "You cannot vote in this session."
	case errors.Is(err, engine.ErrNotVoting), errors.Is(err, engine.ErrNoActiveTask):
		return "No voting is running."
	case errors.Is(err, engine.ErrInvalidVote):
		return "That value is not on the scale."
	case err != nil:
		return "Something went wrong, try again."
	case res.Resolved:
		return fmt.Sprintf("Vote counted, task resolved to %d.", res.Points)
	case res.Replaced:
		return "Vote updated."
	}
	return "Vote counted."
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg *Message) {
	if msg.From == nil {
		return
	}
	key := models.SessionKey{ChatID: msg.Chat.ID, TopicID: msg.MessageThreadID}
	cmd, args, _ := strings.Cut(msg.Text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	args = strings.TrimSpace(args)
	userID := msg.From.ID

	switch cmd {
	case "/join":
		role, err := d.tokens.RoleFor(args)
		if err != nil {
			d.reply(ctx, key, "Unknown join token.")
			return
		}
		name := msg.From.FirstName
		if msg.From.Username != "" {
			name = msg.From.Username
		}
		if err := d.eng.Join(ctx, key, userID, name, role); err != nil {
			slog.Error("join failed", "session", key, "error", err)
			return
		}
		d.reply(ctx, key, fmt.Sprintf("%s joined as %s.", name, role))

	case "/leave":
		removed, err := d.eng.Leave(ctx, key, userID)
		if err == nil && removed {
			d.reply(ctx, key, "You left the session.")
		}

	case "/kick":
		target, err := strconv.ParseInt(args, 10, 64)
		if err != nil {
			d.reply(ctx, key, "Usage: /kick <user id>")
			return
		}
		removed, err := d.eng.Kick(ctx, key, userID, target)
		switch {
		case errors.Is(err, engine.ErrNotAuthorized):
			d.reply(ctx, key, "Only leads and admins can kick.")
		case err == nil && !removed:
			d.reply(ctx, key, "No such participant.")
		case err == nil:
			d.reply(ctx, key, "Participant removed.")
		}

	case "/tasks":
		tasks := ParseTaskLines(args)
		if len(tasks) == 0 {
			d.reply(ctx, key, "Send task titles, one per line: /tasks Fix login\\nUpdate docs")
			return
		}
		if _, err := d.eng.AddTasks(ctx, key, tasks); err != nil {
			slog.Error("add tasks failed", "session", key, "error", err)
		}

	case "/import":
		if d.source == nil {
			d.reply(ctx, key, "No issue tracker configured.")
			return
		}
		if !d.requireManager(ctx, key, userID) {
			return
		}
		added, err := d.eng.ImportTasks(ctx, key, args, d.source)
		switch {
		case errors.Is(err, engine.ErrBusy):
			d.reply(ctx, key, "Import already in progress.")
		case err != nil:
			d.reply(ctx, key, "Import failed: "+err.Error())
		default:
			d.reply(ctx, key, fmt.Sprintf("Imported %d task(s).", added))
		}

	case "/start_batch":
		if !d.requireManager(ctx, key, userID) {
			return
		}
		started, err := d.eng.StartBatch(ctx, key)
		if err == nil && !started {
			d.reply(ctx, key, "Nothing to vote on. Queue a task first, or voting is already running.")
		}

	case "/reset":
		if !d.requireManager(ctx, key, userID) {
			return
		}
		removed, err := d.eng.ResetQueue(ctx, key)
		if err == nil {
			if removed == 0 {
				d.reply(ctx, key, "Queue already empty.")
			} else {
				d.reply(ctx, key, fmt.Sprintf("Queue cleared, %d task(s) removed.", removed))
			}
		}

	case "/pause":
		if !d.requireManager(ctx, key, userID) {
			return
		}
		paused, err := d.eng.Pause(ctx, key)
		if err == nil && !paused {
			d.reply(ctx, key, "Nothing to pause.")
		}

	case "/resume":
		if !d.requireManager(ctx, key, userID) {
			return
		}
		resumed, err := d.eng.Resume(ctx, key)
		if err == nil && !resumed {
			d.reply(ctx, key, "Session is not paused.")
		}

	case "/extend":
		seconds, err := strconv.Atoi(args)
		if err != nil || seconds <= 0 {
			d.reply(ctx, key, "Usage: /extend <seconds>")
			return
		}
		extended, err := d.eng.ExtendTimer(ctx, key, time.Duration(seconds)*time.Second)
		if err == nil && !extended {
			d.reply(ctx, key, "No timer is running.")
		}

	case "/review":
		moved, err := d.eng.NeedsReview(ctx, key, userID)
		switch {
		case errors.Is(err, engine.ErrNotAuthorized):
			d.reply(ctx, key, "Only leads and admins can send a task to review.")
		case err == nil && !moved:
			d.reply(ctx, key, "No active task to move.")
		}

	case "/results":
		tasks, err := d.eng.BatchResults(key)
		if err != nil {
			slog.Error("load results failed", "session", key, "error", err)
			return
		}
		if tasks == nil {
			d.reply(ctx, key, "No finished batch yet.")
			return
		}
		d.reply(ctx, key, engine.BatchSummary(tasks))

	case "/summary":
		batches, total, err := d.eng.DaySummary(key)
		if err != nil {
			slog.Error("load summary failed", "session", key, "error", err)
			return
		}
		d.reply(ctx, key, daySummaryText(batches, total))

	case "/finish":
		if !d.requireManager(ctx, key, userID) {
			return
		}
		finished, err := d.eng.FinishBatch(ctx, key)
		if err == nil && !finished {
			d.reply(ctx, key, "Batch is already finished.")
		}

	case "/wipe":
		if !d.requireManager(ctx, key, userID) {
			return
		}
		if err := d.eng.DeleteSession(key); err != nil {
			slog.Error("wipe failed", "session", key, "error", err)
			return
		}
		d.reply(ctx, key, "Session wiped.")

	case "/push":
		if d.source == nil {
			d.reply(ctx, key, "No issue tracker configured.")
			return
		}
		if !d.requireManager(ctx, key, userID) {
			return
		}
		res, err := d.eng.PushStoryPoints(ctx, key, d.source)
		switch {
		case errors.Is(err, engine.ErrBusy):
			d.reply(ctx, key, "Push already in progress.")
		case err != nil:
			d.reply(ctx, key, "Push failed: "+err.Error())
		default:
			d.reply(ctx, key, pushSummary(res))
		}
	}
}

// requireManager replies with a denial unless the user can manage the
// session.
func (d *Dispatcher) requireManager(ctx context.Context, key models.SessionKey, userID int64) bool {
	s, err := d.eng.Session(key)
	if err != nil {
		slog.Error("load session failed", "session", key, "error", err)
		return false
	}
	if !s.CanManage(userID) {
		d.reply(ctx, key, "Only leads and admins can do that.")
		return false
	}
	return true
}

func daySummaryText(batches [][]*models.Task, total int) string {
	if len(batches) == 0 {
		return "No finished batches yet."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Day summary: %d batch(es), %d SP total.\n", len(batches), total)
	for i, batch := range batches {
		fmt.Fprintf(&b, "Batch %d:\n", i+1)
		for _, t := range batch {
			points := 0
			if t.StoryPoints != nil {
				points = *t.StoryPoints
			}
			fmt.Fprintf(&b, "• %s: %d\n", t.Summary, points)
		}
	}
	return b.String()
}

func pushSummary(res engine.PushResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Story points updated for %d task(s).", res.Updated)
	if len(res.Failed) > 0 {
		fmt.Fprintf(&b, "\nFailed: %s", strings.Join(res.Failed, ", "))
	}
	for _, reason := range res.Skipped {
		fmt.Fprintf(&b, "\nSkipped %s", reason)
	}
	return b.String()
}

// ParseTaskLines builds manual tasks from newline-separated titles. Blank
// lines are skipped.
func ParseTaskLines(text string) []*models.Task {
	var tasks []*models.Task
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		tasks = append(tasks, models.NewTask("", line, ""))
	}
	return tasks
}

func (d *Dispatcher) reply(ctx context.Context, key models.SessionKey, text string) {
	if _, err := d.bot.Send(ctx, key, text); err != nil {
		slog.Warn("reply failed", "session", key, "error", err)
	}
}

func (d *Dispatcher) answer(ctx context.Context, callbackID, text string) {
	if err := d.bot.Answer(ctx, callbackID, text); err != nil {
		slog.Warn("answer callback failed", "error", err)
	}
}
