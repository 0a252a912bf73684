package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/certledger/certledger/internal/api/respond"
	"github.com/certledger/certledger/internal/auth"
	"github.com/certledger/certledger/internal/db/repository"
	"github.com/certledger/certledger/internal/models"
)

// AdminHandler handles administrative operations
type AdminHandler struct {
	adminRepo *repository.AdminRepository
	auditRepo *repository.AuditRepository
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(adminRepo *repository.AdminRepository, auditRepo *repository.AuditRepository) *AdminHandler {
	return &AdminHandler{
		adminRepo: adminRepo,
		auditRepo: auditRepo,
	}
}

// CreateUserRequest represents an admin user creation request
type CreateUserRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required,min=12"`
}

// CreateUserResponse represents an admin user creation response
type CreateUserResponse struct {
	Status          string `json:"status"`
	UserID          int64  `json:"user_id"`
	ProvisioningURL string `json:"totp_provisioning_url"`
}

// CreateUser creates a new admin user with a generated TOTP secret
// POST /v1/admin/users
func (h *AdminHandler) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "Invalid request body")
		return
	}

	// Check if user already exists
	if existing, _ := h.adminRepo.GetByUsername(req.Username); existing != nil {
		respond.Error(c, http.StatusConflict, "user_exists", "User already exists")
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to hash password")
		return
	}

	totpSecret, err := auth.GenerateTOTPSecret(req.Username)
	if err != nil {
		log.Printf("Error generating TOTP secret: %v", err)
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Failed to generate TOTP secret")
		return
	}

	user := &models.AdminUser{
		Username:     req.Username,
		PasswordHash: passwordHash,
		TOTPSecret:   totpSecret,
		Enabled:      true,
	}

	if err := h.adminRepo.Create(user); err != nil {
		log.Printf("Error creating admin user: %v", err)
		respond.Error(c, http.StatusInternalServerError, "database_error", "Failed to create user")
		return
	}

	if err := h.auditRepo.Create(&models.AuditLog{
		Action:    models.ActionAdminCreateUser,
		Username:  req.Username,
		ClientIP:  respond.ClientIP(c),
		UserAgent: c.GetHeader("User-Agent"),
		Success:   true,
	}); err != nil {
		log.Printf("Failed to write audit log: %v", err)
	}

	c.JSON(http.StatusOK, CreateUserResponse{
		Status:          "ok",
		UserID:          user.ID,
		ProvisioningURL: auth.ProvisioningURL(totpSecret, req.Username),
	})
}

// ListAudit lists audit log entries
// GET /v1/admin/audit?action=&cert_id=&limit=
func (h *AdminHandler) ListAudit(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 1000 {
		limit = 100
	}

	entries, err := h.auditRepo.List(c.Query("action"), c.Query("cert_id"), limit)
	if err != nil {
		log.Printf("Error listing audit logs: %v", err)
		respond.Error(c, http.StatusInternalServerError, "database_error", "Failed to list audit logs")
		return
	}

	if entries == nil {
		entries = []*models.AuditLog{}
	}

	respond.Success(c, gin.H{"entries": entries})
}
