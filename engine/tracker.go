// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"log/slog"

	"pokerbot/models"
)

// ImportTasks resolves a query against the external tracker and queues the
// resulting tasks. Guarded: a duplicate trigger while an import is running
// gets ErrBusy instead of importing twice.
func (e *Engine) ImportTasks(ctx context.Context, key models.SessionKey, query string, src TaskSource) (int, error) {
	var added int
	err := e.guard.TryExclusive(key, "import-tasks", func() error {
		tasks, err := src.Resolve(ctx, query)
		if err != nil {
			return err
		}
		added, err = e.AddTasks(ctx, key, tasks)
		return err
	})
	return added, err
}

// PushResult reports a story-points write-back over the last batch.
// Failures and skips are per task; the push never aborts as a whole.
type PushResult struct {
	Updated int
	Failed  []string // tracker keys whose write-back failed
	Skipped []string // human-readable reasons for tasks not pushed
}

// PushStoryPoints writes each resolved estimate of the last batch back to
// the external tracker. Guarded against duplicate triggers.
func (e *Engine) PushStoryPoints(ctx context.Context, key models.SessionKey, src TaskSource) (PushResult, error) {
	var res PushResult
	err := e.guard.TryExclusive(key, "story-points", func() error {
		s, err := e.repo.Get(key)
		if err != nil {
			return err
		}

		for _, task := range s.LastBatch {
			if task.Key == "" {
				res.Skipped = append(res.Skipped, task.Summary+": no tracker key")
				continue
			}
			if !task.Resolved() || *task.StoryPoints == 0 {
				res.Skipped = append(res.Skipped, task.Key+": no estimate")
				continue
			}
			if err := src.WriteBack(ctx, task.Key, *task.StoryPoints); err != nil {
				slog.Warn("story points write-back failed",
					"session", key, "task", task.Key, "error", err)
				res.Failed = append(res.Failed, task.Key)
				continue
			}
			res.Updated++
		}
		slog.Info("story points pushed",
			"session", key, "updated", res.Updated, "failed", len(res.Failed), "skipped", len(res.Skipped))
		return nil
	})
	return res, err
}
