package predictor

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdekker/fraudsight/internal/transactions"
)

func newClient(t *testing.T, url string) *Client {
	t.Helper()
	return NewClient(url, time.Second, "xgboost", slog.New(slog.DiscardHandler))
}

func TestPredictSendsWireFormat(t *testing.T) {
	var got struct {
		TransactionData map[string]any `json:"transaction_data"`
		TransactionType string         `json:"transaction_type"`
		ModelAlgorithm  string         `json:"model_algorithm"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result": map[string]any{
				"prediction":        "LEGITIMATE",
				"fraud_probability": 4.2,
				"risk_level":        "LOW",
				"model_accuracy":    97.31,
				"transaction_type":  "bank_transfer",
			},
		})
	}))
	defer srv.Close()

	pred, err := newClient(t, srv.URL).Predict(context.Background(), &transactions.Transaction{
		Amount: 250, Type: "transfer",
	})
	require.NoError(t, err)

	assert.Equal(t, "bank_transfer", got.TransactionType)
	assert.Equal(t, "xgboost", got.ModelAlgorithm)
	assert.Equal(t, 250.0, got.TransactionData["amount"])
	assert.Equal(t, "TRANSFER", got.TransactionData["type"])

	assert.Equal(t, "LEGITIMATE", pred.Prediction)
	assert.Equal(t, 4.2, pred.FraudProbability)
	assert.Equal(t, "low", pred.RiskLevel)
	assert.Equal(t, 97.31, pred.ModelAccuracy)
}

func TestPredictToleratesStringAccuracy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result": map[string]any{
				"prediction":        "LEGITIMATE",
				"fraud_probability": 0.05,
				"risk_level":        "LOW",
				"model_accuracy":    "Fallback (No model bundle loaded)",
				"transaction_type":  "upi",
			},
		})
	}))
	defer srv.Close()

	pred, err := newClient(t, srv.URL).Predict(context.Background(), &transactions.Transaction{
		Amount: 50, Type: "upi",
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.ModelAccuracy)
}

func TestPredictRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result": map[string]any{
				"prediction": "FRAUD", "fraud_probability": 88.0,
				"risk_level": "HIGH", "model_accuracy": 95.0,
				"transaction_type": "bank_transfer",
			},
		})
	}))
	defer srv.Close()

	pred, err := newClient(t, srv.URL).Predict(context.Background(), &transactions.Transaction{
		Amount: 9000, Type: "transfer",
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, "FRAUD", pred.Prediction)
}

func TestPredictDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Predict(context.Background(), &transactions.Transaction{
		Amount: 100, Type: "transfer",
	})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPredictSurfacesServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "models not loaded",
		})
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Predict(context.Background(), &transactions.Transaction{
		Amount: 100, Type: "transfer",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "models not loaded")
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := newClient(t, srv.URL)
	txn := &transactions.Transaction{Amount: 100, Type: "transfer"}
	for i := 0; i < 5; i++ {
		_, err := client.Predict(context.Background(), txn)
		require.Error(t, err)
	}

	// Threshold reached; the next call is rejected without hitting the wire.
	_, err := client.Predict(context.Background(), txn)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit open")
}

func TestModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/models", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"success":      true,
			"total_models": 2,
			"models": map[string]any{
				"credit_card":   map[string]any{"name": "Credit Card", "accuracy": 99.1, "samples_trained": 284807},
				"bank_transfer": map[string]any{"name": "Bank Transfer", "accuracy": 97.3, "samples_trained": "N/A"},
			},
		})
	}))
	defer srv.Close()

	models, err := newClient(t, srv.URL).Models(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "Credit Card", models["credit_card"].Name)
	assert.Equal(t, 99.1, models["credit_card"].Accuracy)
}

func TestHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, newClient(t, srv.URL).Healthy(context.Background()))

	srv.Close()
	assert.Error(t, newClient(t, srv.URL).Healthy(context.Background()))
}
