package handlers

import (
	"net/http"
	"strconv"

	"writeflow/internal/db"
	"writeflow/internal/middleware"
	"writeflow/internal/models"
	"writeflow/internal/store"

	"github.com/gin-gonic/gin"
)

type ModerationHandler struct {
	store *store.Store
}

func NewModerationHandler(s *store.Store) *ModerationHandler {
	return &ModerationHandler{store: s}
}

type reportRequest struct {
	TargetType string `json:"target_type"` // "post" or "comment"
	Cid        string `json:"cid"`
	Reason     string `json:"reason"`
	Detail     string `json:"detail"`
}

func (h *ModerationHandler) Report(c *gin.Context) {
	var req reportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}

	err := h.store.Report(req.TargetType, c.Param("pid"), req.Cid, middleware.Identity(c), req.Reason, req.Detail)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// checkAdmin resolves the request's registered user and verifies the
// admin role. Anonymous identities never pass.
func (h *ModerationHandler) checkAdmin(c *gin.Context) bool {
	identity := middleware.Identity(c)
	if identity.UserID == nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	var user models.User
	if err := db.DB.First(&user, *identity.UserID).Error; err != nil || user.Role != "admin" {
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return false
	}
	return true
}

type banRequest struct {
	Reason       string `json:"reason"`
	DurationDays int    `json:"duration_days"`
}

func (h *ModerationHandler) Ban(c *gin.Context) {
	if !h.checkAdmin(c) {
		return
	}

	identityID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "field": "id"})
		return
	}

	var req banRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}

	ban, err := h.store.BanIdentity(uint(identityID), req.Reason, req.DurationDays)
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ban": ban})
}

func (h *ModerationHandler) Unban(c *gin.Context) {
	if !h.checkAdmin(c) {
		return
	}

	identityID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "field": "id"})
		return
	}

	if err := h.store.Unban(uint(identityID)); err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *ModerationHandler) BanStatus(c *gin.Context) {
	if !h.checkAdmin(c) {
		return
	}

	identityID, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "field": "id"})
		return
	}

	status, err := h.store.IsBanned(uint(identityID))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"banned":       status.Banned,
		"reason":       status.Reason,
		"remaining_ms": status.Remaining.Milliseconds(),
	})
}
