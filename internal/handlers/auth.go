package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minjoonchoi/httpgate/internal/auth/token"
	"github.com/minjoonchoi/httpgate/internal/observability"
)

// AuthHandler serves token issuance and identity endpoints.
type AuthHandler struct {
	tokens *token.Service
	users  *token.UserStore
	logger observability.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(tokens *token.Service, users *token.UserStore, logger observability.Logger) *AuthHandler {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &AuthHandler{tokens: tokens, users: users, logger: logger}
}

// Register mounts the auth routes.
func (h *AuthHandler) Register(r gin.IRouter) {
	r.POST("/auth/token", h.issueToken)
	r.POST("/auth/refresh", h.refreshToken)
	r.GET("/auth/me", h.me)
}

type tokenRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

func (h *AuthHandler) issueToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "username and password are required"})
		return
	}

	user, err := h.users.Authenticate(req.Username, req.Password)
	if err != nil {
		if errors.Is(err, token.ErrAuthenticationFailed) {
			c.JSON(http.StatusUnauthorized, gin.H{"detail": "Incorrect username or password."})
			return
		}
		h.logger.Error("authentication lookup failed", observability.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
		return
	}

	access, err := h.tokens.IssueAccessToken(user.Username, map[string]interface{}{
		"email": user.Email,
	})
	if err != nil {
		h.logger.Error("access token issuance failed", observability.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
		return
	}
	refresh, err := h.tokens.IssueRefreshToken(user.Username)
	if err != nil {
		h.logger.Error("refresh token issuance failed", observability.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int64(h.tokens.AccessTTL().Seconds()),
	})
}

func (h *AuthHandler) refreshToken(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "refresh_token is required"})
		return
	}

	claims, err := h.tokens.VerifyRefresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired credentials."})
		return
	}

	// The subject must still exist and be active.
	user, ok := h.users.Get(claims.Subject)
	if !ok || user.Disabled {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid or expired credentials."})
		return
	}

	access, err := h.tokens.IssueAccessToken(user.Username, map[string]interface{}{
		"email": user.Email,
	})
	if err != nil {
		h.logger.Error("access token issuance failed", observability.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error."})
		return
	}

	c.JSON(http.StatusOK, tokenResponse{
		AccessToken: access,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.tokens.AccessTTL().Seconds()),
	})
}

func (h *AuthHandler) me(c *gin.Context) {
	claims, ok := token.ClaimsFromContext(c.Request.Context())
	if !ok {
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated."})
		return
	}

	resp := gin.H{"username": claims.Subject}
	if email, ok := claims.Extra["email"].(string); ok {
		resp["email"] = email
	}
	c.JSON(http.StatusOK, resp)
}
