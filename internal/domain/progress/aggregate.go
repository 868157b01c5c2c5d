package progress

import (
	"github.com/learnhub/enrollment-hub/internal/domain/shared"
)

// Overall computes the overall course progress as the unweighted arithmetic
// mean of all record progress values, truncated to an integer percentage.
// Returns 0 when no records exist.
//
// Two deliberate properties:
//   - Progress is unweighted by content duration or importance. This is a
//     documented simplification carried over from the original design, not
//     a recommendation.
//   - Truncation (not rounding) means the result is 100 if and only if
//     every record is at 100, which is exactly the completion condition.
func Overall(records []*Record) shared.Percent {
	if len(records) == 0 {
		return 0
	}

	var sum int
	for _, r := range records {
		sum += r.Progress.Int()
	}

	return shared.Percent(sum / len(records))
}

// AllCompleted reports whether every record is completed. Equivalent to
// Overall(records) == 100 for a non-empty set.
func AllCompleted(records []*Record) bool {
	if len(records) == 0 {
		return false
	}
	for _, r := range records {
		if !r.IsCompleted() {
			return false
		}
	}
	return true
}

// CountCompleted returns the number of completed records.
func CountCompleted(records []*Record) int {
	n := 0
	for _, r := range records {
		if r.IsCompleted() {
			n++
		}
	}
	return n
}

// TotalTimeSpentSeconds sums accumulated time across records.
func TotalTimeSpentSeconds(records []*Record) int64 {
	var total int64
	for _, r := range records {
		total += r.TimeSpentSeconds
	}
	return total
}
