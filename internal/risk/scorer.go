package risk

import (
	"fmt"
	"strings"
	"time"
)

// Scorer evaluates transactions against the rule set. It holds no mutable
// state and is safe for concurrent use; each call works on its own history
// snapshot.
type Scorer struct {
	now func() time.Time
}

// NewScorer creates a scorer backed by the system clock.
func NewScorer() *Scorer {
	return &Scorer{now: time.Now}
}

// WithClock overrides the time source. The velocity and duplicate windows are
// anchored to "now" rather than to any transaction field, so tests must pin
// the clock to get reproducible output.
func (s *Scorer) WithClock(now func() time.Time) *Scorer {
	s.now = now
	return s
}

// Assess scores a candidate transaction against the user's prior history.
// History must be scoped to one user and must not contain the candidate
// itself; the caller snapshots it before persisting the candidate. The slice
// is only read, never modified.
//
// With an empty history the history-dependent checks simply do not fire.
func (s *Scorer) Assess(candidate Transaction, history []Transaction) *Assessment {
	now := s.now()
	a := &Assessment{
		Flags:           []string{},
		AnalysisDetails: make(map[string]float64),
		EvaluatedAt:     now,
	}

	score := 0

	// 1. Amount anomaly: strictly above twice the historical average.
	if len(history) > 0 {
		var sum float64
		for _, h := range history {
			sum += h.Amount
		}
		avg := sum / float64(len(history))
		a.AnalysisDetails["average_amount"] = avg
		if candidate.Amount > avg*amountAnomalyMultiple {
			score += weightAmountAnomaly
			a.LargeAmount = true
			a.Flags = append(a.Flags, fmt.Sprintf(
				"Amount is %.1fx the user's average of $%.0f", candidate.Amount/avg, avg))
		}
	}

	// 2. Flat high-value threshold, independent of check 1.
	if candidate.Amount > highValueThreshold {
		score += weightHighValue
		a.LargeAmount = true
		a.Flags = append(a.Flags, "High-value transaction exceeds $10,000")
	}

	// 3. Velocity: submissions persisted within the trailing hour.
	recent := 0
	velocityCutoff := now.Add(-velocityWindow)
	for _, h := range history {
		if h.CreatedAt.After(velocityCutoff) {
			recent++
		}
	}
	a.AnalysisDetails["recent_transaction_count"] = float64(recent)
	if recent >= velocityThreshold {
		score += weightVelocity
		a.HighVelocity = true
		a.Flags = append(a.Flags, fmt.Sprintf("%d transactions in the last hour", recent))
	}

	// 4. Geo mismatch against the most recent prior transaction. Selected by
	// max CreatedAt rather than slice position, so an unordered history
	// cannot flip the comparison. A missing location on either side is
	// "unknown", never a mismatch.
	if candidate.Location != "" && len(history) > 0 {
		prev := mostRecent(history)
		if prev.Location != "" && !strings.EqualFold(prev.Location, candidate.Location) {
			score += weightGeoMismatch
			a.GeoMismatch = true
			a.Flags = append(a.Flags, fmt.Sprintf(
				"Location changed from %s to %s", prev.Location, candidate.Location))
		}
	}

	// 5. Unusual time of day, from the user-declared transaction date.
	hour := candidate.Date.Hour()
	a.AnalysisDetails["hour_of_day"] = float64(hour)
	if hour >= unusualHourStart && hour <= unusualHourEnd {
		score += weightUnusualTime
		a.UnusualTime = true
		a.Flags = append(a.Flags, fmt.Sprintf("Transaction at unusual hour (%d:00)", hour))
	}

	// 6. Duplicate: exact amount and type match persisted within the trailing
	// five minutes. First match is enough.
	duplicateCutoff := now.Add(-duplicateWindow)
	for _, h := range history {
		if h.Amount == candidate.Amount && h.Type == candidate.Type && h.CreatedAt.After(duplicateCutoff) {
			score += weightDuplicate
			a.Duplicate = true
			a.Flags = append(a.Flags, "Possible duplicate of a recent transaction")
			break
		}
	}

	if score > maxScore {
		score = maxScore
	}
	a.RiskScore = score
	a.RiskLevel = Classify(score)

	return a
}

// Classify maps a risk score to its level. Thresholds are exhaustive and
// non-overlapping: high >= 60, medium >= 30, low otherwise.
func Classify(score int) Level {
	switch {
	case score >= highThreshold:
		return LevelHigh
	case score >= mediumThreshold:
		return LevelMedium
	default:
		return LevelLow
	}
}

func mostRecent(history []Transaction) Transaction {
	latest := history[0]
	for _, h := range history[1:] {
		if h.CreatedAt.After(latest.CreatedAt) {
			latest = h
		}
	}
	return latest
}
