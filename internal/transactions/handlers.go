package transactions

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mdekker/fraudsight/internal/logging"
	"github.com/mdekker/fraudsight/internal/validation"
)

// Handler provides HTTP endpoints for transactions.
type Handler struct {
	service *Service
}

// NewHandler creates a new transactions handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes sets up transaction routes. All of them require an
// authenticated user; the auth middleware must run first.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/transactions", h.SubmitTransaction)
	r.GET("/transactions", h.ListTransactions)
	r.GET("/transactions/:id", h.GetTransaction)
	r.GET("/transactions/:id/assessment", h.GetAssessment)
}

// SubmitRequest for creating a transaction.
type SubmitRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Type        string  `json:"type" binding:"required"`
	Location    string  `json:"location"`
	Description string  `json:"description"`
	// TransactionDate is the declared occurrence time, RFC 3339. Optional;
	// defaults to submission time.
	TransactionDate string `json:"transactionDate"`
}

// SubmitTransaction handles POST /transactions.
func (h *Handler) SubmitTransaction(c *gin.Context) {
	userID := c.GetString("authUserID")

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "Invalid request body",
		})
		return
	}

	var date time.Time
	if req.TransactionDate != "" {
		parsed, err := time.Parse(time.RFC3339, req.TransactionDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_date",
				"message": "transactionDate must be RFC 3339 (e.g. 2025-06-15T03:00:00Z)",
			})
			return
		}
		date = parsed
	}

	result, err := h.service.Submit(c.Request.Context(), userID, SubmitInput{
		Amount:      req.Amount,
		Type:        req.Type,
		Location:    req.Location,
		Description: req.Description,
		Date:        date,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_amount",
				"message": "amount must be positive",
			})
		case errors.Is(err, ErrInvalidType):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_type",
				"message": "type must be one of the supported transaction types",
			})
		default:
			logging.L(c.Request.Context()).Error("failed to submit transaction", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Failed to submit transaction",
			})
		}
		return
	}

	c.JSON(http.StatusCreated, result)
}

// ListTransactions handles GET /transactions.
func (h *Handler) ListTransactions(c *gin.Context) {
	userID := c.GetString("authUserID")

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 200 {
			limit = parsed
		}
	}

	list, err := h.service.List(c.Request.Context(), userID, limit)
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to list transactions", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list transactions",
		})
		return
	}
	if list == nil {
		list = []*Transaction{}
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": list,
		"count":        len(list),
	})
}

// GetTransaction handles GET /transactions/:id.
func (h *Handler) GetTransaction(c *gin.Context) {
	userID := c.GetString("authUserID")

	txn, err := h.service.Get(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Transaction not found",
			})
			return
		}
		logging.L(c.Request.Context()).Error("failed to get transaction", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to get transaction",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"transaction": txn})
}

// GetAssessment handles GET /transactions/:id/assessment.
func (h *Handler) GetAssessment(c *gin.Context) {
	userID := c.GetString("authUserID")

	assessment, err := h.service.GetAssessment(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrTransactionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "Transaction not found",
			})
			return
		}
		logging.L(c.Request.Context()).Error("failed to get assessment", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to get assessment",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessment": assessment})
}

// ListTransactionTypes handles GET /transaction-types. Public; feeds the
// submission form's type selector.
func ListTransactionTypes(c *gin.Context) {
	types := make([]gin.H, 0, len(validation.TransactionTypes()))
	for _, t := range validation.TransactionTypes() {
		types = append(types, gin.H{"id": t})
	}
	c.JSON(http.StatusOK, gin.H{"transactionTypes": types})
}
