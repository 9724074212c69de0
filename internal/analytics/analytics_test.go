package analytics

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdekker/fraudsight/internal/risk"
	"github.com/mdekker/fraudsight/internal/transactions"
)

var testNow = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

type fixture struct {
	svc         *Service
	txns        *transactions.MemoryStore
	assessments *risk.MemoryStore
	seq         int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	txns := transactions.NewMemoryStore()
	assessments := risk.NewMemoryStore()
	svc := NewService(txns, assessments).WithClock(func() time.Time { return testNow })
	return &fixture{svc: svc, txns: txns, assessments: assessments}
}

func (f *fixture) seed(t *testing.T, userID string, amount float64, txnType string, createdAt time.Time, score int, level risk.Level, flags []string) {
	t.Helper()
	f.seq++
	id := fmt.Sprintf("txn_%03d", f.seq)
	require.NoError(t, f.txns.Create(context.Background(), &transactions.Transaction{
		ID: id, UserID: userID, Amount: amount, Type: txnType,
		Date: createdAt, CreatedAt: createdAt,
	}))
	require.NoError(t, f.assessments.Record(context.Background(), &risk.Assessment{
		ID: fmt.Sprintf("risk_%03d", f.seq), TransactionID: id, UserID: userID,
		RiskScore: score, RiskLevel: level, Flags: flags,
		EvaluatedAt: createdAt,
	}))
}

func TestSummary(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "usr_1", 100, "transfer", testNow, 0, risk.LevelLow, nil)
	f.seed(t, "usr_1", 200, "payment", testNow, 40, risk.LevelMedium, []string{"a", "b"})
	f.seed(t, "usr_1", 15000, "transfer", testNow, 80, risk.LevelHigh, []string{"c"})
	f.seed(t, "usr_2", 999, "deposit", testNow, 0, risk.LevelLow, nil)

	summary, err := f.svc.GetSummary(context.Background(), "usr_1")
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalTransactions)
	assert.Equal(t, 15300.0, summary.TotalVolume)
	assert.Equal(t, 40.0, summary.AverageRiskScore)
	assert.Equal(t, map[string]int{"low": 1, "medium": 1, "high": 1}, summary.RiskLevels)
	assert.Equal(t, 2, summary.FlaggedCount)
	assert.Equal(t, 0.67, summary.FlaggedRatio)
	assert.Equal(t, map[string]int{"transfer": 2, "payment": 1}, summary.ByType)
}

func TestSummaryEmpty(t *testing.T) {
	f := newFixture(t)

	summary, err := f.svc.GetSummary(context.Background(), "usr_none")
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalTransactions)
	assert.Equal(t, 0.0, summary.AverageRiskScore)
	assert.Equal(t, 0.0, summary.FlaggedRatio)
}

func TestDailySeries(t *testing.T) {
	f := newFixture(t)
	// Two transactions today, one three days ago, one outside the window.
	f.seed(t, "usr_1", 100, "transfer", testNow, 20, risk.LevelLow, nil)
	f.seed(t, "usr_1", 50, "payment", testNow.Add(-2*time.Hour), 80, risk.LevelHigh, []string{"x"})
	f.seed(t, "usr_1", 75, "payment", testNow.AddDate(0, 0, -3), 10, risk.LevelLow, nil)
	f.seed(t, "usr_1", 999, "transfer", testNow.AddDate(0, 0, -10), 0, risk.LevelLow, nil)

	days, err := f.svc.GetDaily(context.Background(), "usr_1")
	require.NoError(t, err)
	require.Len(t, days, 7)

	assert.Equal(t, "2025-06-09", days[0].Date)
	assert.Equal(t, "2025-06-15", days[6].Date)

	today := days[6]
	assert.Equal(t, 2, today.Count)
	assert.Equal(t, 150.0, today.Volume)
	assert.Equal(t, 50.0, today.AverageRiskScore)
	assert.Equal(t, 1, today.HighRiskCount)

	threeDaysAgo := days[3]
	assert.Equal(t, "2025-06-12", threeDaysAgo.Date)
	assert.Equal(t, 1, threeDaysAgo.Count)
	assert.Equal(t, 75.0, threeDaysAgo.Volume)

	// Empty day between is a zero bucket, not missing.
	assert.Equal(t, 0, days[4].Count)
	assert.Equal(t, 0.0, days[4].Volume)
}

func TestTopFlags(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "usr_1", 100, "transfer", testNow, 20, risk.LevelLow, []string{"Possible duplicate of a recent transaction"})
	f.seed(t, "usr_1", 100, "transfer", testNow, 35, risk.LevelMedium, []string{"Possible duplicate of a recent transaction", "High-value transaction exceeds $10,000"})
	f.seed(t, "usr_1", 100, "transfer", testNow, 15, risk.LevelLow, []string{"High-value transaction exceeds $10,000"})
	f.seed(t, "usr_1", 100, "transfer", testNow, 15, risk.LevelLow, []string{"Transaction at unusual hour (3:00)"})

	flags, err := f.svc.GetTopFlags(context.Background(), "usr_1", 2)
	require.NoError(t, err)
	require.Len(t, flags, 2)
	// Both top flags have count 2; alphabetical tiebreak.
	assert.Equal(t, "High-value transaction exceeds $10,000", flags[0].Flag)
	assert.Equal(t, 2, flags[0].Count)
	assert.Equal(t, "Possible duplicate of a recent transaction", flags[1].Flag)
	assert.Equal(t, 2, flags[1].Count)
}

func TestTopFlagsEmpty(t *testing.T) {
	f := newFixture(t)
	flags, err := f.svc.GetTopFlags(context.Background(), "usr_1", 10)
	require.NoError(t, err)
	assert.Empty(t, flags)
}
