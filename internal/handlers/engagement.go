package handlers

import (
	"net/http"

	"writeflow/internal/middleware"
	"writeflow/internal/store"

	"github.com/gin-gonic/gin"
)

type EngagementHandler struct {
	store *store.Store
}

func NewEngagementHandler(s *store.Store) *EngagementHandler {
	return &EngagementHandler{store: s}
}

func (h *EngagementHandler) Like(c *gin.Context) {
	result, err := h.store.Like(c.Param("pid"), middleware.Identity(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *EngagementHandler) ClickStamp(c *gin.Context) {
	result, err := h.store.ClickStamp(c.Param("pid"), c.Param("stamp"), middleware.Identity(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
