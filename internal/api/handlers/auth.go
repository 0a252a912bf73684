package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/certledger/certledger/internal/api/respond"
	"github.com/certledger/certledger/internal/auth"
	"github.com/certledger/certledger/internal/db/repository"
	"github.com/certledger/certledger/internal/models"
)

// AuthHandler handles admin login
type AuthHandler struct {
	adminRepo     *repository.AdminRepository
	auditRepo     *repository.AuditRepository
	jwtSecret     string
	tokenValidity time.Duration
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(adminRepo *repository.AdminRepository, auditRepo *repository.AuditRepository, jwtSecret string, tokenValidity time.Duration) *AuthHandler {
	return &AuthHandler{
		adminRepo:     adminRepo,
		auditRepo:     auditRepo,
		jwtSecret:     jwtSecret,
		tokenValidity: tokenValidity,
	}
}

// LoginRequest represents an admin login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	TOTP     string `json:"totp" binding:"required"`
}

// LoginResponse represents an admin login response
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login authenticates an admin and issues a session token
// POST /v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	clientIP := respond.ClientIP(c)
	userAgent := c.GetHeader("User-Agent")

	user, err := h.adminRepo.GetByUsername(req.Username)
	if err != nil {
		h.logAuthFailure(req.Username, clientIP, userAgent, "User not found")
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}

	if !user.Enabled {
		h.logAuthFailure(req.Username, clientIP, userAgent, "Account disabled")
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}

	validPassword, err := auth.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !validPassword {
		h.logAuthFailure(req.Username, clientIP, userAgent, "Invalid password")
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid username or password")
		return
	}

	if !auth.ValidateTOTP(user.TOTPSecret, req.TOTP) {
		h.logAuthFailure(req.Username, clientIP, userAgent, "Invalid TOTP")
		respond.Error(c, http.StatusUnauthorized, "invalid_totp", "Invalid TOTP code")
		return
	}

	token, err := auth.GenerateToken(user.Username, h.jwtSecret, h.tokenValidity)
	if err != nil {
		log.Printf("Error generating session token: %v", err)
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to generate session token")
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(h.tokenValidity),
	})
}

func (h *AuthHandler) logAuthFailure(username, clientIP, userAgent, reason string) {
	if err := h.auditRepo.Create(&models.AuditLog{
		Action:    models.ActionAuthFailed,
		Username:  username,
		ClientIP:  clientIP,
		UserAgent: userAgent,
		Success:   false,
		ErrorMsg:  reason,
	}); err != nil {
		log.Printf("Failed to write audit log: %v", err)
	}
}
