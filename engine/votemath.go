// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"math"
	"strconv"

	"pokerbot/models"
)

// RevoteThreshold is the max/min vote ratio above which a task's spread is
// considered significant enough to revote.
const RevoteThreshold = 3.0

// Discrepancy describes the numeric vote spread on a resolved task.
type Discrepancy struct {
	Min   float64
	Max   float64
	Ratio float64
}

// ResolveTaskValue computes a task's resolved value: the maximum numeric
// vote. Skip votes are ignored; an all-skip or empty vote set resolves to 0.
func ResolveTaskValue(votes map[int64]string) int {
	max := 0
	for _, v := range numericVotes(votes) {
		if int(v) > max {
			max = int(v)
		}
	}
	return max
}

// AverageVote computes the mean of the numeric votes. Skip votes are
// excluded from both the numerator and the denominator.
func AverageVote(votes map[int64]string) float64 {
	nums := numericVotes(votes)
	if len(nums) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range nums {
		sum += v
	}
	return sum / float64(len(nums))
}

// VoteDiscrepancy analyzes the numeric vote spread. ok is false when fewer
// than two numeric votes exist, since a single estimate cannot disagree
// with itself. A zero minimum with a positive maximum yields an infinite
// ratio.
func VoteDiscrepancy(votes map[int64]string) (d Discrepancy, ok bool) {
	nums := numericVotes(votes)
	if len(nums) < 2 {
		return Discrepancy{}, false
	}

	d.Min, d.Max = nums[0], nums[0]
	for _, v := range nums[1:] {
		if v < d.Min {
			d.Min = v
		}
		if v > d.Max {
			d.Max = v
		}
	}

	switch {
	case d.Min == 0 && d.Max > 0:
		d.Ratio = math.Inf(1)
	case d.Min == 0:
		d.Ratio = 0
	default:
		d.Ratio = d.Max / d.Min
	}
	return d, true
}

// NeedsRevote reports whether the vote spread is significant: ratio above
// the threshold with at least two numeric votes.
func NeedsRevote(votes map[int64]string) bool {
	d, ok := VoteDiscrepancy(votes)
	return ok && d.Ratio > RevoteThreshold
}

func numericVotes(votes map[int64]string) []float64 {
	var nums []float64
	for _, raw := range votes {
		if raw == models.VoteSkip {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			continue
		}
		nums = append(nums, v)
	}
	return nums
}
