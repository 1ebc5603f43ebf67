package handlers

import (
	"errors"
	"log"
	"net/http"

	"writeflow/internal/store"

	"github.com/gin-gonic/gin"
)

// renderError maps store error values onto HTTP responses in one place.
// Everything in the store's taxonomy carries enough detail for the UI to
// show a specific message; anything else is an infrastructure failure.
func renderError(c *gin.Context, err error) {
	var validation *store.ValidationError
	var banned *store.BannedError
	var limited *store.RateLimitedError

	switch {
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "validation",
			"field":   validation.Field,
			"message": validation.Reason,
		})
	case errors.As(err, &banned):
		c.JSON(http.StatusForbidden, gin.H{
			"error":        "banned",
			"reason":       banned.Reason,
			"remaining_ms": banned.Remaining.Milliseconds(),
		})
	case errors.As(err, &limited):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":        "rate_limited",
			"action":       limited.Action,
			"remaining_ms": limited.Remaining.Milliseconds(),
		})
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, store.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	case errors.Is(err, store.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, store.ErrAlreadyBanned):
		c.JSON(http.StatusConflict, gin.H{"error": "already_banned"})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
	}
}
