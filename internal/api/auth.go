package api

import (
	"net/http"
	"time"

	"license-server/internal/database"
	"license-server/internal/middleware"
	"license-server/internal/models"
	"license-server/internal/response"
	"license-server/pkg/logging"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// LoginRequest represents the admin login request
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates an admin account and issues a session token
func Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorJSON(c, http.StatusBadRequest, "Invalid request format: "+err.Error())
		return
	}

	var admin models.Admin
	err := database.GetDB().
		Where("username = ? AND enabled = ?", req.Username, true).
		First(&admin).Error
	if err != nil {
		response.ErrorJSON(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(req.Password)) != nil {
		logging.Warnf("Failed login attempt for %s from %s", req.Username, c.ClientIP())
		response.ErrorJSON(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	now := time.Now()
	database.GetDB().Model(&admin).Update("last_login", now)

	token, err := middleware.IssueAdminToken(admin.ID, admin.Username, admin.Role)
	if err != nil {
		response.ErrorJSON(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}

	response.SuccessJSON(c, gin.H{
		"token":    token,
		"username": admin.Username,
		"role":     admin.Role,
	})
}
