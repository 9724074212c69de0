// Package validation provides input validation helpers and middleware for the
// FraudSight API.
package validation

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// MaxRequestSize is the maximum request body size (1MB)
const MaxRequestSize = 1 << 20

// MaxStringLength is the maximum length for free-text fields
const MaxStringLength = 500

// MaxAmount caps the accepted transaction amount; the dashboard submits
// synthetic data, anything above this is a typo rather than a transfer.
const MaxAmount = 100_000_000

// transactionTypes are the accepted submission types. The instrument types
// route the ML predictor to its per-type model.
var transactionTypes = map[string]bool{
	"transfer":      true,
	"payment":       true,
	"withdrawal":    true,
	"deposit":       true,
	"credit_card":   true,
	"bank_transfer": true,
	"upi":           true,
	"bitcoin":       true,
}

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		c.Next()
	}
}

// IsValidTransactionType checks a submitted transaction type tag.
func IsValidTransactionType(t string) bool {
	return transactionTypes[strings.ToLower(t)]
}

// TransactionTypes returns the accepted type tags, for the type-listing endpoint.
func TransactionTypes() []string {
	return []string{
		"transfer", "payment", "withdrawal", "deposit",
		"credit_card", "bank_transfer", "upi", "bitcoin",
	}
}

// SanitizeString trims, caps length, and strips null bytes.
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// IsValidAmount checks the accepted range for submitted amounts.
func IsValidAmount(amount float64) bool {
	return amount > 0 && amount <= MaxAmount
}
