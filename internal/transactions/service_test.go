package transactions

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdekker/fraudsight/internal/risk"
)

var testNow = time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, opts ...Option) (*Service, *MemoryStore, *risk.MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	assessments := risk.NewMemoryStore()
	scorer := risk.NewScorer().WithClock(func() time.Time { return testNow })
	base := []Option{WithClock(func() time.Time { return testNow })}
	svc := NewService(store, assessments, scorer, slog.New(slog.DiscardHandler), append(base, opts...)...)
	return svc, store, assessments
}

func TestSubmitPersistsTransactionAndAssessment(t *testing.T) {
	svc, store, assessments := newTestService(t)

	result, err := svc.Submit(context.Background(), "usr_1", SubmitInput{
		Amount:   15000,
		Type:     "transfer",
		Location: "Paris",
	})
	require.NoError(t, err)
	require.NotNil(t, result.Transaction)
	require.NotNil(t, result.Assessment)

	assert.Equal(t, 15, result.Assessment.RiskScore)
	assert.Equal(t, risk.LevelLow, result.Assessment.RiskLevel)
	assert.True(t, result.Assessment.LargeAmount)
	assert.Equal(t, result.Transaction.ID, result.Assessment.TransactionID)
	assert.Equal(t, "usr_1", result.Assessment.UserID)

	stored, err := store.Get(context.Background(), result.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, 15000.0, stored.Amount)

	recorded, err := assessments.GetByTransaction(context.Background(), result.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Assessment.ID, recorded.ID)
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), "usr_1", SubmitInput{Amount: -5, Type: "transfer"})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Submit(context.Background(), "usr_1", SubmitInput{Amount: 100, Type: "lottery"})
	assert.ErrorIs(t, err, ErrInvalidType)
}

func TestSubmitExcludesCandidateFromOwnHistory(t *testing.T) {
	svc, _, _ := newTestService(t)

	// An identical immediate resubmission is a duplicate; the first
	// submission must not be flagged against itself.
	first, err := svc.Submit(context.Background(), "usr_1", SubmitInput{Amount: 100, Type: "transfer"})
	require.NoError(t, err)
	assert.False(t, first.Assessment.Duplicate)
	assert.Equal(t, 0, first.Assessment.RiskScore)

	second, err := svc.Submit(context.Background(), "usr_1", SubmitInput{Amount: 100, Type: "transfer"})
	require.NoError(t, err)
	assert.True(t, second.Assessment.Duplicate)
}

func TestSubmitHistoryIsPerUser(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Submit(context.Background(), "usr_1", SubmitInput{Amount: 100, Type: "transfer"})
	require.NoError(t, err)

	// Another user's identical submission sees an empty history.
	other, err := svc.Submit(context.Background(), "usr_2", SubmitInput{Amount: 100, Type: "transfer"})
	require.NoError(t, err)
	assert.False(t, other.Assessment.Duplicate)
}

func TestSubmitDefaultsDateToNow(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.Submit(context.Background(), "usr_1", SubmitInput{Amount: 50, Type: "payment"})
	require.NoError(t, err)
	assert.Equal(t, testNow, result.Transaction.Date)
	assert.Equal(t, testNow, result.Transaction.CreatedAt)
}

func TestSubmitDeclaredDateDrivesUnusualHour(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.Submit(context.Background(), "usr_1", SubmitInput{
		Amount: 50,
		Type:   "payment",
		Date:   time.Date(2025, 6, 15, 3, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.True(t, result.Assessment.UnusualTime)
	assert.Equal(t, 15, result.Assessment.RiskScore)
}

type stubPredictor struct {
	pred *Prediction
	err  error
}

func (s *stubPredictor) Predict(ctx context.Context, txn *Transaction) (*Prediction, error) {
	return s.pred, s.err
}

func TestSubmitIncludesPrediction(t *testing.T) {
	pred := &Prediction{Prediction: "Not Fraud", FraudProbability: 0.12, RiskLevel: "low"}
	svc, _, _ := newTestService(t, WithPredictor(&stubPredictor{pred: pred}, time.Second))

	result, err := svc.Submit(context.Background(), "usr_1", SubmitInput{Amount: 50, Type: "payment"})
	require.NoError(t, err)
	assert.Equal(t, pred, result.Prediction)
	assert.Empty(t, result.PredictorError)
}

func TestSubmitSurvivesPredictorFailure(t *testing.T) {
	svc, _, _ := newTestService(t, WithPredictor(&stubPredictor{err: errors.New("connection refused")}, time.Second))

	result, err := svc.Submit(context.Background(), "usr_1", SubmitInput{Amount: 15000, Type: "transfer"})
	require.NoError(t, err)
	assert.Nil(t, result.Prediction)
	assert.Equal(t, "prediction service unavailable", result.PredictorError)
	// The heuristic assessment is unaffected.
	assert.Equal(t, 15, result.Assessment.RiskScore)
}

type captureEmitter struct {
	txn   *Transaction
	score int
	level string
	flags []string
}

func (c *captureEmitter) TransactionScored(txn *Transaction, score int, level string, flags []string) {
	c.txn, c.score, c.level, c.flags = txn, score, level, flags
}

func TestSubmitEmitsEvent(t *testing.T) {
	emitter := &captureEmitter{}
	svc, _, _ := newTestService(t, WithEvents(emitter))

	result, err := svc.Submit(context.Background(), "usr_1", SubmitInput{Amount: 15000, Type: "transfer"})
	require.NoError(t, err)
	require.NotNil(t, emitter.txn)
	assert.Equal(t, result.Transaction.ID, emitter.txn.ID)
	assert.Equal(t, 15, emitter.score)
	assert.Equal(t, "low", emitter.level)
	assert.Len(t, emitter.flags, 1)
}

func TestGetEnforcesOwnership(t *testing.T) {
	svc, _, _ := newTestService(t)

	result, err := svc.Submit(context.Background(), "usr_1", SubmitInput{Amount: 50, Type: "payment"})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), "usr_2", result.Transaction.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	_, err = svc.GetAssessment(context.Background(), "usr_2", result.Transaction.ID)
	assert.ErrorIs(t, err, ErrTransactionNotFound)

	got, err := svc.Get(context.Background(), "usr_1", result.Transaction.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Transaction.ID, got.ID)
}

func TestListNewestFirst(t *testing.T) {
	svc, _, _ := newTestService(t)

	for _, amount := range []float64{10, 20, 30} {
		_, err := svc.Submit(context.Background(), "usr_1", SubmitInput{Amount: amount, Type: "payment"})
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), "usr_1", 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 30.0, list[0].Amount)
	assert.Equal(t, 20.0, list[1].Amount)
}
