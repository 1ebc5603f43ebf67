package handlers

import (
	"net/http"

	"writeflow/internal/middleware"
	"writeflow/internal/store"
	"writeflow/internal/utils"

	"github.com/gin-gonic/gin"
)

type CommentHandler struct {
	store *store.Store
}

func NewCommentHandler(s *store.Store) *CommentHandler {
	return &CommentHandler{store: s}
}

type commentRequest struct {
	ParentCid string `json:"parent_cid"`
	Text      string `json:"text"`
	Nickname  string `json:"nickname"`
	Password  string `json:"password"`
}

func (h *CommentHandler) Create(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}

	pid := c.Param("pid")
	comment, err := h.store.AddComment(pid, middleware.Identity(c), req.ParentCid, req.Text, req.Nickname, req.Password)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"comment": comment, "content_html": utils.RenderMarkdown(comment.Content)})
}

// Delete reports authorization failure inside a 200 response with
// deleted:false, so the caller can show an inline error without losing
// its state.
func (h *CommentHandler) Delete(c *gin.Context) {
	pid := c.Param("pid")
	cid := c.Param("cid")
	password := c.Query("password")

	result, err := h.store.DeleteComment(pid, cid, middleware.Identity(c), password)
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *CommentHandler) Thread(c *gin.Context) {
	thread, err := h.store.BuildThread(c.Param("pid"), c.DefaultQuery("order", "oldest"))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": thread})
}
