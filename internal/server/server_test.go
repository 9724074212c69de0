package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdekker/fraudsight/internal/config"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testConfig returns a minimal in-memory config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:             "0",
		Env:              "development",
		LogLevel:         "error",
		PredictorTimeout: time.Second,
		HistoryLimit:     100,
		RateLimitRPM:     100000, // don't trip the limiter in tests
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig())
	require.NoError(t, err)
	return s
}

func do(s *Server, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	return w
}

// register creates a user and returns the raw API key.
func register(t *testing.T, s *Server) string {
	t.Helper()
	w := do(s, http.MethodPost, "/v1/auth/register", `{"name":"Test User"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		APIKey string `json:"apiKey"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.True(t, strings.HasPrefix(resp.APIKey, "sk_"))
	return resp.APIKey
}

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = do(s, http.MethodGet, "/health/live", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Not ready until Run() marks it so.
	w = do(s, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTransactionsRequireAuth(t *testing.T) {
	s := newTestServer(t)

	w := do(s, http.MethodPost, "/v1/transactions", `{"amount":100,"type":"transfer"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(s, http.MethodGet, "/v1/transactions", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(s, http.MethodGet, "/v1/analytics/summary", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmitAndFetchFlow(t *testing.T) {
	s := newTestServer(t)
	key := register(t, s)
	authed := map[string]string{"Authorization": "Bearer " + key}

	w := do(s, http.MethodPost, "/v1/transactions",
		`{"amount":15000,"type":"transfer","location":"Paris"}`, authed)
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Transaction struct {
			ID string `json:"id"`
		} `json:"transaction"`
		Assessment struct {
			RiskScore int      `json:"riskScore"`
			RiskLevel string   `json:"riskLevel"`
			Flags     []string `json:"flags"`
		} `json:"assessment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 15, created.Assessment.RiskScore)
	assert.Equal(t, "low", created.Assessment.RiskLevel)
	assert.Contains(t, created.Assessment.Flags, "High-value transaction exceeds $10,000")

	w = do(s, http.MethodGet, "/v1/transactions/"+created.Transaction.ID, "", authed)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodGet, "/v1/transactions/"+created.Transaction.ID+"/assessment", "", authed)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(s, http.MethodGet, "/v1/analytics/summary", "", authed)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"totalTransactions":1`)
}

func TestUsersAreIsolated(t *testing.T) {
	s := newTestServer(t)
	keyA := register(t, s)
	keyB := register(t, s)

	w := do(s, http.MethodPost, "/v1/transactions", `{"amount":100,"type":"payment"}`,
		map[string]string{"Authorization": "Bearer " + keyA})
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Transaction struct {
			ID string `json:"id"`
		} `json:"transaction"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// User B cannot see user A's transaction.
	w = do(s, http.MethodGet, "/v1/transactions/"+created.Transaction.ID, "",
		map[string]string{"Authorization": "Bearer " + keyB})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTransactionTypesPublic(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/v1/transaction-types", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "transfer")
}

func TestModelsDisabledWithoutPredictor(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/v1/models", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "predictor_disabled")
}

func TestSecurityHeadersApplied(t *testing.T) {
	s := newTestServer(t)
	w := do(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}
