package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/wundergunder/toadtourist-sub000/internal/config"
	"github.com/wundergunder/toadtourist-sub000/internal/database"
	"github.com/wundergunder/toadtourist-sub000/internal/middleware"
	"github.com/wundergunder/toadtourist-sub000/internal/models"
	"github.com/wundergunder/toadtourist-sub000/internal/services"
	"github.com/wundergunder/toadtourist-sub000/internal/utils"
	"github.com/wundergunder/toadtourist-sub000/pkg/jwt"
	"github.com/wundergunder/toadtourist-sub000/pkg/storage"
)

// AuthHandler handles registration, login and token lifecycle
type AuthHandler struct {
	jwtService    *jwt.Service
	accounts      *services.AccountService
	accountRepo   *database.AccountRepository
	refreshTokens *database.RefreshTokenRepository
	sessions      *services.SessionService
	audit         *services.AuditService
	avatars       storage.Store
	config        *config.Config
	logger        *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	jwtService *jwt.Service,
	accounts *services.AccountService,
	accountRepo *database.AccountRepository,
	refreshTokens *database.RefreshTokenRepository,
	sessions *services.SessionService,
	audit *services.AuditService,
	avatars storage.Store,
	cfg *config.Config,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{
		jwtService:    jwtService,
		accounts:      accounts,
		accountRepo:   accountRepo,
		refreshTokens: refreshTokens,
		sessions:      sessions,
		audit:         audit,
		avatars:       avatars,
		config:        cfg,
		logger:        logger,
	}
}

// TokenResponse represents issued tokens
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in_seconds"`
	TokenType    string `json:"token_type"`
}

func (h *AuthHandler) issueTokens(c *gin.Context, account *models.Account) (*TokenResponse, bool) {
	var territoryID *uuid.UUID
	if account.TerritoryID.Valid {
		territoryID = &account.TerritoryID.UUID
	}

	accessToken, err := h.jwtService.GenerateAccessToken(account.ID, account.Email, account.Roles, territoryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "token_generation_failed",
			"message": "Failed to generate access token",
		})
		return nil, false
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(account.ID, account.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "token_generation_failed",
			"message": "Failed to generate refresh token",
		})
		return nil, false
	}

	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)
	expiresAt := time.Now().Add(h.config.JWT.RefreshTokenExpiry)

	if err := h.refreshTokens.Store(account.ID, refreshToken, clientIP, userAgent, expiresAt); err != nil {
		h.logger.WithError(err).WithField("account_id", account.ID).Warn("Failed to store refresh token")
	}

	return &TokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(h.config.JWT.AccessTokenExpiry.Seconds()),
		TokenType:    "Bearer",
	}, true
}

// Register handles POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	account, err := h.accounts.Register(&req)
	if err != nil {
		respondError(c, err)
		return
	}

	tokens, ok := h.issueTokens(c, account)
	if !ok {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"account": account,
		"tokens":  tokens,
	})
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)

	attempts, err := h.sessions.RegisterLoginAttempt(c.Request.Context(), req.Email, h.config.Security.LoginWindow)
	if err != nil {
		h.logger.WithError(err).Warn("Login attempt tracking unavailable")
	} else if attempts > int64(h.config.Security.LoginAttempts) {
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate_limit_exceeded",
			"message":     "Too many login attempts. Please try again later.",
			"retry_after": int(h.config.Security.LoginWindow.Seconds()),
		})
		return
	}

	account, err := h.accounts.Authenticate(req.Email, req.Password)
	if err != nil {
		if h.config.Security.EnableAuditLog {
			h.audit.LogLogin(nil, req.Email, false, clientIP, userAgent)
		}
		respondError(c, err)
		return
	}

	if err := h.sessions.ResetLoginAttempts(c.Request.Context(), req.Email); err != nil {
		h.logger.WithError(err).Warn("Failed to reset login attempts")
	}
	if h.config.Security.EnableAuditLog {
		h.audit.LogLogin(&account.ID, account.Email, true, clientIP, userAgent)
	}

	tokens, ok := h.issueTokens(c, account)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"account": account,
		"tokens":  tokens,
	})
}

// RefreshTokenRequest represents the request to refresh an access token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// RefreshToken handles POST /api/v1/auth/refresh. Tokens rotate: the old
// refresh token is revoked only after the new one is stored.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_token",
			"message": "Invalid or expired refresh token",
		})
		return
	}

	usable, err := h.refreshTokens.IsUsable(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "token_check_failed",
			"message": "Failed to verify token status",
		})
		return
	}
	if !usable {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "token_revoked",
			"message": "Refresh token has been revoked",
		})
		return
	}

	account, err := h.accountRepo.GetByID(claims.AccountID)
	if err != nil {
		if models.IsNotFound(err) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "account_not_found",
				"message": "Account no longer exists",
			})
		} else {
			respondError(c, err)
		}
		return
	}

	tokens, ok := h.issueTokens(c, account)
	if !ok {
		return
	}

	if err := h.refreshTokens.Revoke(req.RefreshToken); err != nil {
		h.logger.WithError(err).WithField("account_id", account.ID).Warn("Failed to revoke rotated refresh token")
	}

	c.JSON(http.StatusOK, tokens)
}

// LogoutRequest represents the request to logout
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
	LogoutAll    bool   `json:"logout_all"`
}

// Logout handles POST /api/v1/auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	userCtx, exists := middleware.GetUserContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		req.LogoutAll = false
	}

	if req.LogoutAll {
		if err := h.refreshTokens.RevokeAllForAccount(userCtx.AccountID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "logout_failed",
				"message": "Failed to logout from all devices",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out from all devices"})
		return
	}

	if req.RefreshToken != "" {
		if err := h.refreshTokens.Revoke(req.RefreshToken); err != nil {
			h.logger.WithError(err).WithField("account_id", userCtx.AccountID).Warn("Failed to revoke refresh token on logout")
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

// GetProfile handles GET /api/v1/auth/profile
func (h *AuthHandler) GetProfile(c *gin.Context) {
	account, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, account)
}

// UpdateProfile handles PUT /api/v1/auth/profile
func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	account, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Invalid request body",
		})
		return
	}

	updated, err := h.accounts.UpdateProfile(account, account.ID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Profile updated successfully",
		"profile": updated,
	})
}

// UploadAvatar handles POST /api/v1/auth/profile/avatar. The uploaded image
// is written to the media store and its URL saved on the profile.
func (h *AuthHandler) UploadAvatar(c *gin.Context) {
	account, ok := currentAccount(c, h.accountRepo)
	if !ok {
		return
	}

	file, header, err := c.Request.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation_error",
			"message": "Missing avatar file",
		})
		return
	}
	defer file.Close()

	url, err := h.avatars.Store(header.Filename, file)
	if err != nil {
		h.logger.WithError(err).Error("Failed to store avatar")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "upload_failed",
			"message": "Failed to store avatar",
		})
		return
	}

	updated, err := h.accounts.UpdateProfile(account, account.ID, &models.UpdateProfileRequest{AvatarURL: &url})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Avatar updated successfully",
		"profile": updated,
	})
}
