// Package aggregator implements the count-by-worker reduction over
// answer events.
package aggregator

import (
	"sort"

	"github.com/labeltally/labeltally/pkg/types"
)

// Aggregate groups events by subject identifier and counts events per
// group. The output is ordered by count descending, with ties broken
// by subject ascending so the same input multiset always produces the
// same table. Pure function: no side effects, usernames left empty for
// the resolve stage.
func Aggregate(events []types.AnswerEvent) []types.AggregatedRow {
	counts := make(map[string]int, len(events))
	for _, event := range events {
		counts[event.Sub]++
	}

	rows := make([]types.AggregatedRow, 0, len(counts))
	for sub, count := range counts {
		rows = append(rows, types.AggregatedRow{Sub: sub, Count: count})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].Sub < rows[j].Sub
	})

	return rows
}

// FirstPool returns the pool identifier of the first event, which the
// resolve stage uses as its lookup scope, along with any other pools
// observed. All events are assumed to share one identity pool; callers
// should surface the extras as a diagnostic when that assumption does
// not hold.
func FirstPool(events []types.AnswerEvent) (string, []string) {
	if len(events) == 0 {
		return "", nil
	}

	first := events[0].UserPoolID
	seen := map[string]bool{first: true}
	var extras []string
	for _, event := range events[1:] {
		if !seen[event.UserPoolID] {
			seen[event.UserPoolID] = true
			extras = append(extras, event.UserPoolID)
		}
	}
	return first, extras
}
