package sentiment

import (
	"time"

	"github.com/DeafMist/gold-sentiment-index/backend/internal/processing"
)

// Lookback is the age beyond which a document no longer moves the index.
const Lookback = 30 * 24 * time.Hour

// RecencyWeight returns a decay weight in [0,1] for a document published at
// timestamp. Missing or unparsable timestamps weigh 0. Timestamps in the
// future count as brand new.
func RecencyWeight(timestamp string, now time.Time) float64 {
	ts, ok := processing.ParseTimestamp(timestamp)
	if !ok {
		return 0
	}
	age := now.Sub(ts)
	if age < 0 {
		age = 0
	}
	return AgeWeight(age)
}

// AgeWeight is the step decay by age in days:
//
//	[0,1] 1.0, (1,3] 0.8, (3,7] 0.6, (7,14] 0.3, (14,30] 0.1, beyond 0.
func AgeWeight(age time.Duration) float64 {
	days := age.Seconds() / 86400.0
	switch {
	case days <= 1:
		return 1.0
	case days <= 3:
		return 0.8
	case days <= 7:
		return 0.6
	case days <= 14:
		return 0.3
	case days <= 30:
		return 0.1
	default:
		return 0.0
	}
}
