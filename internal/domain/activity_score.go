package domain

import "time"

// RecentActivityWindow is the trailing window used to count recent activity.
const RecentActivityWindow = 7 * 24 * time.Hour

// activity points, on a 0-100 scale before normalization.
const (
	streakPointsPerDay  = 3
	streakPointsCap     = 30
	recentPointsEach    = 8
	recentPointsCap     = 40
	lifetimePointsEach  = 2
	lifetimePointsCap   = 30
	activityPointsTotal = 100
)

// ActivityRecord is a minimal view of one piece of activity (a post, a check-in).
// decoupled from the full ActivityEvent to keep the scoring pure.
type ActivityRecord struct {
	AuthorID  UserID
	CreatedAt time.Time
}

// ActivityInput is everything the activity scorer needs about one candidate.
type ActivityInput struct {
	Streak        int
	LifetimeCount int
	Records       []ActivityRecord

	// Now is the shared time reference for the whole batch.
	Now time.Time
}

// ActivityBreakdown is the scored engagement of a candidate.
type ActivityBreakdown struct {
	// Score is the normalized engagement, in [0, 1].
	Score float64

	// RecentCount is the number of records inside the trailing window.
	RecentCount int
}

// CountRecent counts records created within the trailing window ending at now.
func CountRecent(records []ActivityRecord, now time.Time) int {
	cutoff := now.Add(-RecentActivityWindow)
	count := 0
	for _, r := range records {
		if !r.CreatedAt.Before(cutoff) {
			count++
		}
	}
	return count
}

// ActivityScore derives a bounded engagement score from streak, recent records and lifetime count.
//
// points: min(streak*3, 30) + min(recent*8, 40) + min(lifetime*2, 30), divided by 100.
// negative counts are treated as zero.
func ActivityScore(in ActivityInput) ActivityBreakdown {
	recent := CountRecent(in.Records, in.Now)

	points := min(max(in.Streak, 0)*streakPointsPerDay, streakPointsCap) +
		min(recent*recentPointsEach, recentPointsCap) +
		min(max(in.LifetimeCount, 0)*lifetimePointsEach, lifetimePointsCap)

	return ActivityBreakdown{
		Score:       clamp01(float64(points) / activityPointsTotal),
		RecentCount: recent,
	}
}
