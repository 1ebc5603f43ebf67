package handlers

import (
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"writeflow/internal/db"
	"writeflow/internal/models"
	"writeflow/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type AuthHandler struct {
	jwtSecret string
}

func NewAuthHandler() *AuthHandler {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	return &AuthHandler{jwtSecret: secret}
}

type signupRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

func (h *AuthHandler) Signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Nickname = strings.TrimSpace(req.Nickname)
	if !strings.Contains(req.Email, "@") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "field": "email", "message": "invalid email"})
		return
	}
	if req.Nickname == "" || len([]rune(req.Nickname)) > 10 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "field": "nickname", "message": "must be 1-10 characters"})
		return
	}
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "field": "password", "message": "at least 6 characters"})
		return
	}

	var existing models.User
	if err := db.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		renderError(c, err)
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		renderError(c, err)
		return
	}

	user := models.User{
		Email:    req.Email,
		Nickname: req.Nickname,
		Password: hash,
	}
	if err := db.DB.Create(&user).Error; err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": user})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}

	var user models.User
	if err := db.DB.Where("email = ?", strings.TrimSpace(req.Email)).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if !utils.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	session := sessions.Default(c)
	session.Set("user_id", user.ID)
	if err := session.Save(); err != nil {
		renderError(c, err)
		return
	}

	token, err := utils.IssueToken(user.ID, h.jwtSecret, 24*time.Hour)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Delete("user_id")
	if err := session.Save(); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
