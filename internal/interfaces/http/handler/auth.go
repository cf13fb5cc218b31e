package handler

import (
	"crypto/subtle"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kotek/backend/internal/infrastructure/auth"
	"github.com/kotek/backend/internal/infrastructure/config"
	"github.com/kotek/backend/internal/infrastructure/logger"
	"github.com/kotek/backend/internal/interfaces/http/middleware"
)

// AuthHandler serves the back-office login and logout endpoints. The
// back office has a single admin account configured at deploy time,
// so there is no user store behind this handler.
type AuthHandler struct {
	BaseHandler
	admin   config.AdminConfig
	tokens  *auth.TokenService
	revoker auth.TokenRevoker
	adminID uuid.UUID
}

func NewAuthHandler(admin config.AdminConfig, tokens *auth.TokenService, revoker auth.TokenRevoker) *AuthHandler {
	return &AuthHandler{
		admin:   admin,
		tokens:  tokens,
		revoker: revoker,
		// stable identifier derived from the configured username, so
		// tokens stay attributable across restarts
		adminID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(admin.Username)),
	}
}

// LoginRequest is the credential payload for the back-office login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse carries the issued bearer token.
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
}

// Login verifies the configured admin credentials and issues a token.
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	usernameOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.admin.Username)) == 1
	passwordErr := bcrypt.CompareHashAndPassword([]byte(h.admin.PasswordHash), []byte(req.Password))
	if !usernameOK || passwordErr != nil {
		logger.L(c.Request.Context()).Warn("login rejected",
			zap.String("username", req.Username),
			zap.String("client_ip", c.ClientIP()),
		)
		h.Unauthorized(c, "Invalid username or password")
		return
	}

	issued, err := h.tokens.IssueToken(auth.IssueTokenInput{
		UserID:   h.adminID,
		Username: h.admin.Username,
		Role:     auth.RoleAdmin,
	})
	if err != nil {
		logger.L(c.Request.Context()).Error("token issuance failed", zap.Error(err))
		h.InternalError(c, "Failed to issue token")
		return
	}

	logger.L(c.Request.Context()).Info("admin logged in",
		zap.String("username", h.admin.Username),
		zap.Time("expires_at", issued.ExpiresAt),
	)

	h.Success(c, LoginResponse{
		Token:     issued.Token,
		TokenType: issued.TokenType,
		ExpiresAt: issued.ExpiresAt,
		Username:  h.admin.Username,
		Role:      string(auth.RoleAdmin),
	})
}

// Logout revokes the presented token for its remaining lifetime.
// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	claims := middleware.GetJWTClaims(c)
	if claims == nil || claims.ID == "" {
		h.Unauthorized(c, "No active session")
		return
	}

	ttl := claims.GetRemainingTTL()
	if ttl <= 0 {
		// already expired, nothing to revoke
		h.Success(c, gin.H{"message": "Logged out"})
		return
	}

	if err := h.revoker.Revoke(c.Request.Context(), claims.ID, ttl); err != nil {
		logger.L(c.Request.Context()).Error("token revocation failed",
			zap.String("jti", claims.ID),
			zap.Error(err),
		)
		h.InternalError(c, "Failed to revoke token")
		return
	}

	logger.L(c.Request.Context()).Info("admin logged out", zap.String("username", claims.Username))
	h.Success(c, gin.H{"message": "Logged out"})
}
