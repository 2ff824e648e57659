// Package quota meters free-tier usage per caller per calendar week.
package quota

import (
	"context"
	"time"
)

// WeekStart floors t to the most recent Monday 00:00:00 UTC and returns it
// as seconds since epoch. The result is independent of t's location.
func WeekStart(t time.Time) int64 {
	t = t.UTC()
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -(weekday - 1))
	return monday.Unix()
}

// Ledger is the persistent usage counter store. Implementations must make
// ConsumeIfBelow atomic with respect to concurrent calls for the same
// (userID, weekStart) key across process instances.
type Ledger interface {
	// Used returns the accumulated count for the key, 0 when no record exists.
	Used(ctx context.Context, userID string, weekStart int64) (int, error)

	// Increment upserts the record, adding by to the count.
	Increment(ctx context.Context, userID string, weekStart int64, by int) error

	// ConsumeIfBelow increments the count by one only if it is currently
	// below limit. It returns the count after the call and whether the
	// consume happened.
	ConsumeIfBelow(ctx context.Context, userID string, weekStart int64, limit int) (used int, allowed bool, err error)
}
