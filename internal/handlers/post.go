package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"writeflow/internal/middleware"
	"writeflow/internal/store"
	"writeflow/internal/utils"

	"github.com/gin-gonic/gin"
)

type PostHandler struct {
	store *store.Store
}

func NewPostHandler(s *store.Store) *PostHandler {
	return &PostHandler{store: s}
}

type postRequest struct {
	BoardID  uint     `json:"board_id"`
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Nickname string   `json:"nickname"`
	Stamps   []string `json:"stamps"`
	Password string   `json:"password"`
}

func (r *postRequest) fields() store.PostFields {
	return store.PostFields{
		BoardID:  r.BoardID,
		Title:    r.Title,
		Content:  r.Content,
		Tags:     r.Tags,
		Nickname: r.Nickname,
		Stamps:   r.Stamps,
		Password: r.Password,
	}
}

func (h *PostHandler) Create(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}

	post, err := h.store.CreatePost(middleware.Identity(c), req.fields())
	if err != nil {
		renderError(c, err)
		return
	}

	invalidateListCache()
	c.JSON(http.StatusCreated, gin.H{"post": post})
}

func (h *PostHandler) Update(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": "malformed body"})
		return
	}

	pid := c.Param("pid")
	post, err := h.store.EditPost(pid, middleware.Identity(c), req.Password, req.fields())
	if err != nil {
		renderError(c, err)
		return
	}

	invalidateListCache()
	c.JSON(http.StatusOK, gin.H{"post": post})
}

func (h *PostHandler) Delete(c *gin.Context) {
	pid := c.Param("pid")
	password := c.Query("password")

	if err := h.store.DeletePost(pid, middleware.Identity(c), password); err != nil {
		renderError(c, err)
		return
	}

	invalidateListCache()
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Detail returns the post with rendered content and its comment thread.
// The view counter runs through the store's dedup window; a banned
// viewer's ban does not block reading, their view just does not count.
func (h *PostHandler) Detail(c *gin.Context) {
	pid := c.Param("pid")
	actor := middleware.Identity(c)

	if _, err := h.store.View(pid, actor); err != nil {
		var banned *store.BannedError
		if !errors.As(err, &banned) {
			renderError(c, err)
			return
		}
	}

	post, err := h.store.GetPost(pid)
	if err != nil {
		renderError(c, err)
		return
	}

	thread, err := h.store.BuildThread(pid, c.DefaultQuery("order", "oldest"))
	if err != nil {
		renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post":         post,
		"content_html": utils.RenderMarkdown(post.Content),
		"comments":     thread,
	})
}

func (h *PostHandler) List(c *gin.Context) {
	filter := store.ListFilter{
		Board:    c.Query("board"),
		Query:    c.Query("q"),
		Tag:      c.Query("tag"),
		Sort:     c.Query("sort"),
		Page:     pageParam(c),
	}
	if author := c.Query("author"); author != "" {
		if id, err := strconv.Atoi(author); err == nil {
			filter.AuthorID = uint(id)
		}
	}

	// Only the unfiltered hot pages go through the cache.
	cacheable := filter.Board == "" && filter.Query == "" && filter.Tag == "" && filter.AuthorID == 0
	cacheKey := fmt.Sprintf("posts:list:%s:page:%d", filter.Sort, filter.Page)
	if cacheable {
		if cached := utils.GetCache().Get(cacheKey); cached != nil {
			if page, ok := cached.(*store.Page); ok {
				c.JSON(http.StatusOK, page)
				return
			}
		}
	}

	page, err := h.store.ListPosts(filter)
	if err != nil {
		renderError(c, err)
		return
	}

	if cacheable {
		utils.GetCache().Set(cacheKey, page, 1*time.Minute)
	}
	c.JSON(http.StatusOK, page)
}

func (h *PostHandler) MyPosts(c *gin.Context) {
	page, err := h.store.ListMyPosts(middleware.Identity(c), pageParam(c))
	if err != nil {
		renderError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *PostHandler) BoardStats(c *gin.Context) {
	cacheKey := "boards:stats"
	if cached := utils.GetCache().Get(cacheKey); cached != nil {
		if stats, ok := cached.([]store.BoardStat); ok {
			c.JSON(http.StatusOK, gin.H{"stats": stats})
			return
		}
	}

	stats, err := h.store.BoardStats()
	if err != nil {
		renderError(c, err)
		return
	}

	utils.GetCache().Set(cacheKey, stats, 1*time.Minute)
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func pageParam(c *gin.Context) int {
	page := 1
	if p := c.Query("page"); p != "" {
		if pageNum, err := strconv.Atoi(p); err == nil && pageNum > 0 {
			page = pageNum
		}
	}
	return page
}

func invalidateListCache() {
	utils.GetCache().Delete("posts:list::page:1")
	utils.GetCache().Delete("posts:list:newest:page:1")
	utils.GetCache().Delete("posts:list:popular:page:1")
	utils.GetCache().Delete("boards:stats")
}
