// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"pokerbot/models"
)

// BatchResults returns the tasks of the last finished batch, or nil when
// no batch has finished yet.
func (e *Engine) BatchResults(key models.SessionKey) ([]*models.Task, error) {
	s, err := e.repo.Get(key)
	if err != nil {
		return nil, err
	}
	if len(s.LastBatch) == 0 {
		return nil, nil
	}
	return s.LastBatch, nil
}

// DaySummary groups the session history into its finished batches, in
// completion order, and totals the story points across all of them. Tasks
// without a resolved value fall back to the maximum of their recorded votes.
func (e *Engine) DaySummary(key models.SessionKey) (batches [][]*models.Task, totalPoints int, err error) {
	s, err := e.repo.Get(key)
	if err != nil {
		return nil, 0, err
	}

	// History is appended one finished batch at a time, so tasks of the
	// same batch are adjacent.
	var current string
	for i, task := range s.History {
		if i == 0 || task.BatchID != current {
			batches = append(batches, nil)
			current = task.BatchID
		}
		batches[len(batches)-1] = append(batches[len(batches)-1], task)

		if task.StoryPoints != nil {
			totalPoints += *task.StoryPoints
		} else {
			totalPoints += ResolveTaskValue(task.Votes)
		}
	}
	return batches, totalPoints, nil
}
