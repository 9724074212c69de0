// Package analytics computes aggregated dashboard data from stored
// transactions and their risk assessments.
package analytics

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/mdekker/fraudsight/internal/risk"
	"github.com/mdekker/fraudsight/internal/transactions"
)

// analysisLimit caps how many records feed each aggregation. The dashboard
// shows recent activity; unbounded scans are not needed.
const analysisLimit = 1000

// Summary aggregates a user's scored transactions.
type Summary struct {
	TotalTransactions int            `json:"totalTransactions"`
	TotalVolume       float64        `json:"totalVolume"`
	AverageRiskScore  float64        `json:"averageRiskScore"`
	RiskLevels        map[string]int `json:"riskLevels"`
	FlaggedCount      int            `json:"flaggedCount"`
	FlaggedRatio      float64        `json:"flaggedRatio"`
	ByType            map[string]int `json:"byType"`
}

// DayBucket is one day in the trailing activity series.
type DayBucket struct {
	Date             string  `json:"date"` // YYYY-MM-DD
	Count            int     `json:"count"`
	Volume           float64 `json:"volume"`
	AverageRiskScore float64 `json:"averageRiskScore"`
	HighRiskCount    int     `json:"highRiskCount"`
}

// FlagCount is one detection flag and how often it fired.
type FlagCount struct {
	Flag  string `json:"flag"`
	Count int    `json:"count"`
}

// Service computes analytics from store snapshots.
type Service struct {
	transactions transactions.Store
	assessments  risk.Store
	now          func() time.Time
}

// NewService creates an analytics service.
func NewService(txns transactions.Store, assessments risk.Store) *Service {
	return &Service{transactions: txns, assessments: assessments, now: time.Now}
}

// WithClock overrides the time source (for tests).
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// GetSummary aggregates the user's recent transactions and assessments.
func (s *Service) GetSummary(ctx context.Context, userID string) (*Summary, error) {
	txns, err := s.transactions.ListByUser(ctx, userID, analysisLimit)
	if err != nil {
		return nil, err
	}
	assessments, err := s.assessments.ListByUser(ctx, userID, analysisLimit)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		RiskLevels: map[string]int{"low": 0, "medium": 0, "high": 0},
		ByType:     make(map[string]int),
	}

	for _, t := range txns {
		summary.TotalTransactions++
		summary.TotalVolume += t.Amount
		summary.ByType[t.Type]++
	}

	var scoreSum int
	for _, a := range assessments {
		scoreSum += a.RiskScore
		summary.RiskLevels[string(a.RiskLevel)]++
		if len(a.Flags) > 0 {
			summary.FlaggedCount++
		}
	}
	if len(assessments) > 0 {
		summary.AverageRiskScore = round2(float64(scoreSum) / float64(len(assessments)))
		summary.FlaggedRatio = round2(float64(summary.FlaggedCount) / float64(len(assessments)))
	}
	summary.TotalVolume = round2(summary.TotalVolume)

	return summary, nil
}

// GetDaily returns per-day activity for the trailing 7 days, oldest first.
// Days without activity appear as zero buckets. Bucketing uses the
// transaction's CreatedAt in UTC.
func (s *Service) GetDaily(ctx context.Context, userID string) ([]*DayBucket, error) {
	txns, err := s.transactions.ListByUser(ctx, userID, analysisLimit)
	if err != nil {
		return nil, err
	}
	assessments, err := s.assessments.ListByUser(ctx, userID, analysisLimit)
	if err != nil {
		return nil, err
	}

	scoreByTxn := make(map[string]*risk.Assessment, len(assessments))
	for _, a := range assessments {
		scoreByTxn[a.TransactionID] = a
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	buckets := make([]*DayBucket, 7)
	index := make(map[string]*DayBucket, 7)
	for i := 0; i < 7; i++ {
		day := today.AddDate(0, 0, i-6)
		b := &DayBucket{Date: day.Format("2006-01-02")}
		buckets[i] = b
		index[b.Date] = b
	}

	scoreSums := make(map[string]int, 7)
	for _, t := range txns {
		key := t.CreatedAt.UTC().Format("2006-01-02")
		b, ok := index[key]
		if !ok {
			continue
		}
		b.Count++
		b.Volume += t.Amount
		if a, ok := scoreByTxn[t.ID]; ok {
			scoreSums[key] += a.RiskScore
			if a.RiskLevel == risk.LevelHigh {
				b.HighRiskCount++
			}
		}
	}
	for _, b := range buckets {
		b.Volume = round2(b.Volume)
		if b.Count > 0 {
			b.AverageRiskScore = round2(float64(scoreSums[b.Date]) / float64(b.Count))
		}
	}

	return buckets, nil
}

// GetTopFlags returns the user's most frequent detection flags, most common
// first. Ties break alphabetically so output is stable.
func (s *Service) GetTopFlags(ctx context.Context, userID string, limit int) ([]*FlagCount, error) {
	assessments, err := s.assessments.ListByUser(ctx, userID, analysisLimit)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	for _, a := range assessments {
		for _, f := range a.Flags {
			counts[f]++
		}
	}

	flags := make([]*FlagCount, 0, len(counts))
	for f, c := range counts {
		flags = append(flags, &FlagCount{Flag: f, Count: c})
	}
	sort.Slice(flags, func(i, j int) bool {
		if flags[i].Count != flags[j].Count {
			return flags[i].Count > flags[j].Count
		}
		return flags[i].Flag < flags[j].Flag
	})

	if limit > 0 && len(flags) > limit {
		flags = flags[:limit]
	}
	return flags, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
