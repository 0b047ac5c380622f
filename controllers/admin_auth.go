package controllers

import (
	"errors"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smartkasa/kasapay/config"
	"github.com/smartkasa/kasapay/models"
	"github.com/smartkasa/kasapay/utils"
	"gorm.io/gorm"
)

// POST /admin/login
func AdminLogin(c *gin.Context) {
	utils.LogInfo("AdminLogin called")

	var req struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request. email and password are required", err.Error())
		return
	}

	var admin models.Admin
	if err := config.DB.Where("email = ?", req.Email).First(&admin).Error; err != nil {
		utils.LogError("Admin not found: %s", req.Email)
		utils.Unauthorized(c, "Invalid credentials")
		return
	}
	if !admin.IsActive {
		utils.Forbidden(c, "Admin account is disabled")
		return
	}
	if !utils.CheckPassword(req.Password, admin.Password) {
		utils.LogError("Invalid password for admin: %s", req.Email)
		utils.Unauthorized(c, "Invalid credentials")
		return
	}

	token, err := utils.GenerateAdminToken(admin.ID, admin.Email)
	if err != nil {
		utils.LogError("Failed to generate token for admin %d: %v", admin.ID, err)
		utils.InternalServerError(c, "Failed to generate token", nil)
		return
	}

	config.DB.Model(&admin).Update("last_login", time.Now())
	utils.LogInfo("Admin logged in: %s", admin.Email)

	utils.Success(c, "Login successful", gin.H{
		"token": token,
		"admin": gin.H{
			"id":    admin.ID,
			"email": admin.Email,
		},
	})
}

// EnsureDefaultAdmin seeds the admin account from ADMIN_EMAIL and
// ADMIN_PASSWORD on first start
func EnsureDefaultAdmin() error {
	email := os.Getenv("ADMIN_EMAIL")
	password := os.Getenv("ADMIN_PASSWORD")
	if email == "" || password == "" {
		utils.LogInfo("ADMIN_EMAIL/ADMIN_PASSWORD not set, skipping admin bootstrap")
		return nil
	}

	var admin models.Admin
	err := config.DB.Where("email = ?", email).First(&admin).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	admin = models.Admin{
		Email:    email,
		Password: hashed,
		IsActive: true,
	}
	if err := config.DB.Create(&admin).Error; err != nil {
		return err
	}
	utils.LogInfo("Default admin created: %s", email)
	return nil
}
