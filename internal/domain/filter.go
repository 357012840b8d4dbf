package domain

import (
	"slices"
	"time"
)

// recentWindowMinutes bounds the minute-of-hour of received_datetime. The
// check compares the minute field only, not the elapsed time since receipt.
const recentWindowMinutes = 15

// FilterStats counts why records were dropped by SelectEligible. A record is
// counted under the first predicate it fails.
type FilterStats struct {
	Total         int
	Malformed     int
	NoPosition    int
	BadTimestamp  int
	OutsideWindow int
	Closed        int
	Eligible      int
}

// SelectEligible keeps decodable records that have a point geometry, were
// received in the first quarter of their hour and are still open, ordered by
// received_datetime, most recent first. The input slice is not modified.
func SelectEligible(records []DispatchRecord) ([]DispatchRecord, FilterStats) {
	type candidate struct {
		record     DispatchRecord
		receivedAt time.Time
	}

	stats := FilterStats{Total: len(records)}
	candidates := make([]candidate, 0, len(records))

	for _, rec := range records {
		if rec.DecodeErr != nil {
			stats.Malformed++
			continue
		}
		if !rec.HasPoint() {
			stats.NoPosition++
			continue
		}
		receivedAt, err := rec.ReceivedAt()
		if err != nil {
			stats.BadTimestamp++
			continue
		}
		if receivedAt.Minute() >= recentWindowMinutes {
			stats.OutsideWindow++
			continue
		}
		if !rec.IsOpen() {
			stats.Closed++
			continue
		}
		candidates = append(candidates, candidate{record: rec, receivedAt: receivedAt})
	}

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return b.receivedAt.Compare(a.receivedAt)
	})

	eligible := make([]DispatchRecord, len(candidates))
	for i, c := range candidates {
		eligible[i] = c.record
	}
	stats.Eligible = len(eligible)
	return eligible, stats
}
