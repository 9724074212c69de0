package transactions

import (
	"context"
	"log/slog"
	"time"

	"github.com/mdekker/fraudsight/internal/idgen"
	"github.com/mdekker/fraudsight/internal/metrics"
	"github.com/mdekker/fraudsight/internal/risk"
	"github.com/mdekker/fraudsight/internal/traces"
	"github.com/mdekker/fraudsight/internal/validation"
)

// Service orchestrates transaction submission and risk assessment.
type Service struct {
	store       Store
	assessments risk.Store
	scorer      *risk.Scorer

	predictor        Predictor // nil when disabled
	predictorTimeout time.Duration

	events       EventEmitter // nil when realtime is disabled
	historyLimit int
	logger       *slog.Logger
	now          func() time.Time
}

// Option configures the service.
type Option func(*Service)

// WithPredictor enables the external ML predictor with a per-call timeout.
func WithPredictor(p Predictor, timeout time.Duration) Option {
	return func(s *Service) {
		s.predictor = p
		s.predictorTimeout = timeout
	}
}

// WithEvents sets a realtime event emitter.
func WithEvents(e EventEmitter) Option {
	return func(s *Service) { s.events = e }
}

// WithHistoryLimit caps how many prior transactions feed each assessment.
func WithHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}

// WithClock overrides the time source (for tests). The same clock should be
// given to the scorer so the velocity and duplicate windows line up with
// CreatedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a transaction service.
func NewService(store Store, assessments risk.Store, scorer *risk.Scorer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:            store,
		assessments:      assessments,
		scorer:           scorer,
		predictorTimeout: 3 * time.Second,
		historyLimit:     100,
		logger:           logger,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitInput carries one dashboard submission.
type SubmitInput struct {
	Amount      float64
	Type        string
	Location    string
	Description string
	Date        time.Time // user-declared occurrence time; zero means "now"
}

// SubmitResult bundles the persisted transaction, its heuristic assessment,
// and the optional ML prediction.
type SubmitResult struct {
	Transaction *Transaction     `json:"transaction"`
	Assessment  *risk.Assessment `json:"assessment"`
	Prediction  *Prediction      `json:"prediction,omitempty"`
	// PredictorError carries a short reason when the ML backend was asked but
	// did not answer. The heuristic assessment above is complete regardless.
	PredictorError string `json:"predictorError,omitempty"`
}

// Submit validates, scores, and persists one transaction. The assessment is
// created exactly once, synchronously; it is never recomputed.
func (s *Service) Submit(ctx context.Context, userID string, in SubmitInput) (*SubmitResult, error) {
	ctx, span := traces.StartSpan(ctx, "transactions.Submit")
	defer span.End()

	if !validation.IsValidAmount(in.Amount) {
		return nil, ErrInvalidAmount
	}
	if !validation.IsValidTransactionType(in.Type) {
		return nil, ErrInvalidType
	}

	now := s.now()
	date := in.Date
	if date.IsZero() {
		date = now
	}

	// History snapshot BEFORE the candidate is persisted.
	prior, err := s.store.ListByUser(ctx, userID, s.historyLimit)
	if err != nil {
		return nil, err
	}
	history := make([]risk.Transaction, len(prior))
	for i, p := range prior {
		history[i] = risk.Transaction{
			Amount:    p.Amount,
			Type:      p.Type,
			Location:  p.Location,
			Date:      p.Date,
			CreatedAt: p.CreatedAt,
		}
	}

	txn := &Transaction{
		ID:          idgen.WithPrefix("txn_"),
		UserID:      userID,
		Amount:      in.Amount,
		Type:        in.Type,
		Location:    validation.SanitizeString(in.Location, 200),
		Description: validation.SanitizeString(in.Description, validation.MaxStringLength),
		Date:        date,
		CreatedAt:   now,
	}

	assessment := s.scorer.Assess(risk.Transaction{
		Amount:    txn.Amount,
		Type:      txn.Type,
		Location:  txn.Location,
		Date:      txn.Date,
		CreatedAt: txn.CreatedAt,
	}, history)
	assessment.ID = idgen.WithPrefix("risk_")
	assessment.TransactionID = txn.ID
	assessment.UserID = userID

	span.SetAttributes(
		traces.TransactionID(txn.ID),
		traces.RiskScore(assessment.RiskScore),
		traces.RiskLevel(string(assessment.RiskLevel)),
	)

	if err := s.store.Create(ctx, txn); err != nil {
		return nil, err
	}
	if err := s.assessments.Record(ctx, assessment); err != nil {
		// The transaction row exists but its assessment is missing; surfaced
		// as an error so the caller can retry the whole submission.
		s.logger.Error("failed to record assessment",
			"transaction_id", txn.ID, "error", err)
		return nil, err
	}

	s.recordMetrics(assessment)

	result := &SubmitResult{Transaction: txn, Assessment: assessment}

	if s.predictor != nil {
		result.Prediction, result.PredictorError = s.predict(ctx, txn)
	}

	if s.events != nil {
		s.events.TransactionScored(txn, assessment.RiskScore, string(assessment.RiskLevel), assessment.Flags)
	}

	s.logger.Info("transaction scored",
		"transaction_id", txn.ID,
		"user_id", userID,
		"amount", txn.Amount,
		"risk_score", assessment.RiskScore,
		"risk_level", assessment.RiskLevel,
		"flags", len(assessment.Flags),
	)

	return result, nil
}

// predict consults the ML backend. Failures degrade to heuristic-only output.
func (s *Service) predict(ctx context.Context, txn *Transaction) (*Prediction, string) {
	pctx, cancel := context.WithTimeout(ctx, s.predictorTimeout)
	defer cancel()

	pctx, span := traces.StartSpan(pctx, "predictor.Predict", traces.TransactionID(txn.ID))
	defer span.End()

	pred, err := s.predictor.Predict(pctx, txn)
	if err != nil {
		s.logger.Warn("predictor unavailable, heuristic assessment stands",
			"transaction_id", txn.ID, "error", err)
		return nil, "prediction service unavailable"
	}
	return pred, ""
}

// Get returns one transaction owned by the user.
func (s *Service) Get(ctx context.Context, userID, id string) (*Transaction, error) {
	txn, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if txn.UserID != userID {
		// Don't leak existence of other users' transactions.
		return nil, ErrTransactionNotFound
	}
	return txn, nil
}

// GetAssessment returns the assessment for one of the user's transactions.
func (s *Service) GetAssessment(ctx context.Context, userID, transactionID string) (*risk.Assessment, error) {
	if _, err := s.Get(ctx, userID, transactionID); err != nil {
		return nil, err
	}
	return s.assessments.GetByTransaction(ctx, transactionID)
}

// List returns the user's transactions, newest first.
func (s *Service) List(ctx context.Context, userID string, limit int) ([]*Transaction, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

func (s *Service) recordMetrics(a *risk.Assessment) {
	metrics.TransactionsTotal.WithLabelValues(string(a.RiskLevel)).Inc()
	checks := map[string]bool{
		"large_amount":  a.LargeAmount,
		"high_velocity": a.HighVelocity,
		"geo_mismatch":  a.GeoMismatch,
		"unusual_time":  a.UnusualTime,
		"duplicate":     a.Duplicate,
	}
	for name, fired := range checks {
		if fired {
			metrics.RiskChecksTriggeredTotal.WithLabelValues(name).Inc()
		}
	}
}
