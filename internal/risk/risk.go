// Package risk implements rule-based risk scoring for submitted transactions.
//
// Every transaction is evaluated against six additive checks: amount anomaly
// vs the user's average, a flat high-value threshold, submission velocity,
// location change, unusual time of day, and duplicate resubmission. Scores
// range 0-100 and map to a three-tier risk level. The scorer is deterministic:
// the only external input is the clock, which is injectable for tests.
package risk

import (
	"context"
	"errors"
	"time"
)

// Level is the three-tier classification derived from the risk score.
type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// Score weights and thresholds. These are contract values displayed in the
// dashboard, not tunables.
const (
	weightAmountAnomaly = 25
	weightHighValue     = 15
	weightVelocity      = 20
	weightGeoMismatch   = 20
	weightUnusualTime   = 15
	weightDuplicate     = 20

	amountAnomalyMultiple = 2.0
	highValueThreshold    = 10000.0

	velocityWindow    = time.Hour
	velocityThreshold = 5

	duplicateWindow = 5 * time.Minute

	unusualHourStart = 1
	unusualHourEnd   = 5

	maxScore        = 100
	highThreshold   = 60
	mediumThreshold = 30
)

var ErrAssessmentNotFound = errors.New("assessment not found")

// Transaction is the scorer's read-only view of a transaction. Date is the
// user-declared occurrence time and drives the unusual-hour check; CreatedAt
// is the persistence time and drives the velocity and duplicate windows.
type Transaction struct {
	Amount    float64
	Type      string
	Location  string
	Date      time.Time
	CreatedAt time.Time
}

// Assessment is the result of scoring a single transaction. One assessment
// exists per transaction; it is written once and never recomputed.
type Assessment struct {
	ID            string `json:"id"`
	TransactionID string `json:"transactionId"`
	UserID        string `json:"userId"`

	RiskScore int      `json:"riskScore"` // 0-100
	RiskLevel Level    `json:"riskLevel"`
	Flags     []string `json:"flags"` // one human-readable line per triggered check, in check order

	// Discrete check results so the dashboard can render indicators
	// independently of the flag text.
	LargeAmount  bool `json:"largeAmount"` // amount anomaly or high-value threshold
	HighVelocity bool `json:"highVelocity"`
	GeoMismatch  bool `json:"geoMismatch"`
	UnusualTime  bool `json:"unusualTime"`
	Duplicate    bool `json:"duplicate"`

	// AnalysisDetails carries auxiliary numeric context. Always includes
	// recent_transaction_count and hour_of_day.
	AnalysisDetails map[string]float64 `json:"analysisDetails"`

	EvaluatedAt time.Time `json:"evaluatedAt"`
}

// Store persists assessments for audit trail and dashboard analytics.
type Store interface {
	Record(ctx context.Context, assessment *Assessment) error
	GetByTransaction(ctx context.Context, transactionID string) (*Assessment, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]*Assessment, error)
}
