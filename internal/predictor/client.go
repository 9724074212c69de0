// Package predictor is an HTTP client for the external ML fraud prediction
// service. Calls are wrapped in a retry loop and a circuit breaker so an
// offline backend degrades to heuristic-only scoring instead of failing
// submissions.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mdekker/fraudsight/internal/circuitbreaker"
	"github.com/mdekker/fraudsight/internal/metrics"
	"github.com/mdekker/fraudsight/internal/retry"
	"github.com/mdekker/fraudsight/internal/transactions"
)

const breakerKey = "predictor"

// Client talks to the prediction service.
type Client struct {
	baseURL   string
	algorithm string
	http      *http.Client
	breaker   *circuitbreaker.Breaker
	logger    *slog.Logger
}

// NewClient creates a predictor client. The timeout bounds a single HTTP
// attempt; retries run inside the caller's context deadline.
func NewClient(baseURL string, timeout time.Duration, algorithm string, logger *slog.Logger) *Client {
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		algorithm: algorithm,
		http:      &http.Client{Timeout: timeout},
		breaker:   circuitbreaker.New(5, 30*time.Second),
		logger:    logger,
	}
}

type predictRequest struct {
	TransactionData map[string]any `json:"transaction_data"`
	TransactionType string         `json:"transaction_type"`
	ModelAlgorithm  string         `json:"model_algorithm"`
}

type predictResponse struct {
	Success bool           `json:"success"`
	Result  *predictResult `json:"result"`
	Error   string         `json:"error"`
}

type predictResult struct {
	Prediction       string    `json:"prediction"`
	FraudProbability float64   `json:"fraud_probability"`
	RiskLevel        string    `json:"risk_level"`
	ModelAccuracy    flexFloat `json:"model_accuracy"`
	TransactionType  string    `json:"transaction_type"`
}

// flexFloat tolerates the service reporting model accuracy as either a
// number or a descriptive string (its fallback mode does the latter).
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		if v, err := strconv.ParseFloat(str, 64); err == nil {
			*f = flexFloat(v)
		} else {
			*f = 0
		}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = flexFloat(v)
	return nil
}

// Predict scores one transaction with the ML backend.
func (c *Client) Predict(ctx context.Context, txn *transactions.Transaction) (*transactions.Prediction, error) {
	if !c.breaker.Allow(breakerKey) {
		metrics.PredictorRequestsTotal.WithLabelValues("rejected").Inc()
		return nil, fmt.Errorf("predictor circuit open")
	}

	modelType := ModelType(txn.Type)
	req := predictRequest{
		TransactionData: Features(modelType, txn.Amount),
		TransactionType: modelType,
		ModelAlgorithm:  c.algorithm,
	}

	start := time.Now()
	var result *predictResult
	err := retry.Do(ctx, 3, 200*time.Millisecond, func() error {
		var attemptErr error
		result, attemptErr = c.predictOnce(ctx, req)
		return attemptErr
	})
	metrics.PredictorRequestDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		c.breaker.RecordFailure(breakerKey)
		metrics.PredictorRequestsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	c.breaker.RecordSuccess(breakerKey)
	metrics.PredictorRequestsTotal.WithLabelValues("ok").Inc()

	return &transactions.Prediction{
		Prediction:       result.Prediction,
		FraudProbability: float64(result.FraudProbability),
		RiskLevel:        strings.ToLower(result.RiskLevel),
		ModelAccuracy:    float64(result.ModelAccuracy),
		TransactionType:  result.TransactionType,
	}, nil
}

func (c *Client) predictOnce(ctx context.Context, preq predictRequest) (*predictResult, error) {
	body, err := json.Marshal(preq)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("failed to encode request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predictor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		// Client errors will not fix themselves with a retry.
		return nil, retry.Permanent(fmt.Errorf("predictor returned status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predictor returned status %d", resp.StatusCode)
	}

	var pr predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("failed to decode predictor response: %w", err)
	}
	if !pr.Success || pr.Result == nil {
		if pr.Error != "" {
			return nil, fmt.Errorf("predictor error: %s", pr.Error)
		}
		return nil, fmt.Errorf("predictor returned no result")
	}
	return pr.Result, nil
}

// ModelInfo describes one loaded model on the prediction service.
type ModelInfo struct {
	Name           string  `json:"name"`
	Accuracy       float64 `json:"accuracy"`
	SamplesTrained any     `json:"samples_trained"`
}

// Models lists the models the prediction service has loaded.
func (c *Client) Models(ctx context.Context) (map[string]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("predictor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("predictor returned status %d", resp.StatusCode)
	}

	var mr struct {
		Success bool                 `json:"success"`
		Models  map[string]ModelInfo `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("failed to decode models response: %w", err)
	}
	return mr.Models, nil
}

// Healthy reports whether the prediction service answers its health check.
// Used by the readiness registry; a down predictor is reported but does not
// fail readiness since submissions degrade gracefully without it.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("predictor unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("predictor unhealthy: status %d", resp.StatusCode)
	}
	return nil
}
