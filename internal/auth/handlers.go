package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mdekker/fraudsight/internal/logging"
	"github.com/mdekker/fraudsight/internal/validation"
)

// Handler provides HTTP endpoints for auth management.
type Handler struct {
	manager *Manager
}

// NewHandler creates a new auth handler.
func NewHandler(m *Manager) *Handler {
	return &Handler{manager: m}
}

// RegisterPublicRoutes sets up routes that need no API key.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/auth/register", h.Register)
	r.GET("/auth/info", h.Info)
}

// RegisterProtectedRoutes sets up routes behind RequireAuth.
func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/auth/me", h.Me)
	r.GET("/auth/keys", h.ListKeys)
	r.POST("/auth/keys", h.CreateKey)
	r.DELETE("/auth/keys/:id", h.RevokeKey)
}

// Info returns auth configuration info.
func (h *Handler) Info(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"type":      "api_key",
		"header":    "Authorization: Bearer sk_...",
		"altHeader": "X-API-Key: sk_...",
		"note":      "API key is returned once on registration. Store it securely.",
	})
}

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email"`
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": "name is required",
		})
		return
	}

	user, rawKey, key, err := h.manager.Register(c.Request.Context(),
		validation.SanitizeString(req.Name, 100),
		validation.SanitizeString(req.Email, 200))
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			c.JSON(http.StatusConflict, gin.H{
				"error":   "email_taken",
				"message": "That email is already registered",
			})
			return
		}
		logging.L(c.Request.Context()).Error("failed to register user", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to register",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"user":   user,
		"apiKey": rawKey, // shown exactly once
		"keyId":  key.ID,
	})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	user, err := h.manager.GetUser(c.Request.Context(), AuthenticatedUserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "not_found",
			"message": "User not found",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// ListKeys returns API keys for the authenticated user.
func (h *Handler) ListKeys(c *gin.Context) {
	keys, err := h.manager.ListKeys(c.Request.Context(), AuthenticatedUserID(c))
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to list keys", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to list keys",
		})
		return
	}
	if keys == nil {
		keys = []*APIKey{}
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys, "count": len(keys)})
}

// CreateKeyRequest is the request body for creating an additional key.
type CreateKeyRequest struct {
	Name string `json:"name"`
}

// CreateKey handles POST /auth/keys.
func (h *Handler) CreateKey(c *gin.Context) {
	var req CreateKeyRequest
	c.ShouldBindJSON(&req)
	if req.Name == "" {
		req.Name = "Additional key"
	}

	rawKey, key, err := h.manager.GenerateKey(c.Request.Context(),
		AuthenticatedUserID(c), validation.SanitizeString(req.Name, 100))
	if err != nil {
		logging.L(c.Request.Context()).Error("failed to create key", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to create API key",
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"apiKey": rawKey, // shown exactly once
		"keyId":  key.ID,
		"name":   key.Name,
	})
}

// RevokeKey handles DELETE /auth/keys/:id.
func (h *Handler) RevokeKey(c *gin.Context) {
	err := h.manager.RevokeKey(c.Request.Context(), c.Param("id"), AuthenticatedUserID(c))
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":   "not_found",
				"message": "API key not found",
			})
			return
		}
		logging.L(c.Request.Context()).Error("failed to revoke key", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "internal_error",
			"message": "Failed to revoke key",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"revoked": true})
}
