// Package transactions manages submitted transactions and orchestrates their
// risk assessment.
//
// Flow per submission:
//  1. Validate the request
//  2. Snapshot the user's history (before the candidate is persisted, so a
//     transaction never scores against itself)
//  3. Score with the risk engine
//  4. Persist the transaction, then its assessment (1:1)
//  5. Ask the external ML predictor, if configured; its failure never blocks
//     the heuristic result
package transactions

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInvalidType         = errors.New("unknown transaction type")
)

// Transaction is a persisted submission.
//
// Date is the user-declared occurrence time and may differ from CreatedAt,
// the persistence time. The risk engine depends on both: the unusual-hour
// check reads Date, the velocity and duplicate windows read CreatedAt.
type Transaction struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Date        time.Time `json:"transactionDate"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Store persists transactions.
type Store interface {
	Create(ctx context.Context, txn *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	// ListByUser returns the user's transactions newest-first (by CreatedAt),
	// up to limit.
	ListByUser(ctx context.Context, userID string, limit int) ([]*Transaction, error)
	CountByUser(ctx context.Context, userID string) (int, error)
}

// Prediction is the external ML model's verdict, displayed beside the
// heuristic assessment. It is advisory: absence means the predictor was
// disabled or unreachable.
type Prediction struct {
	Prediction       string  `json:"prediction"` // "FRAUD" or "LEGITIMATE"
	FraudProbability float64 `json:"fraudProbability"` // percentage
	RiskLevel        string  `json:"riskLevel"`
	ModelAccuracy    float64 `json:"modelAccuracy,omitempty"`
	TransactionType  string  `json:"transactionType,omitempty"`
}

// Predictor calls the external ML service. Implementations must honor ctx
// cancellation; the service applies its own timeout per call.
type Predictor interface {
	Predict(ctx context.Context, txn *Transaction) (*Prediction, error)
}

// EventEmitter broadcasts scoring results to realtime subscribers.
type EventEmitter interface {
	TransactionScored(txn *Transaction, riskScore int, riskLevel string, flags []string)
}
