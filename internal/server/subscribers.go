package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	subscriberdomain "github.com/smallbiznis/subsync/internal/subscriber/domain"
)

// GetSubscriber returns the reconciled record for one contact email.
func (s *Server) GetSubscriber(c *gin.Context) {
	email := strings.TrimSpace(c.Param("email"))

	record, err := s.store.Get(c.Request.Context(), email)
	if err != nil {
		if errors.Is(err, subscriberdomain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"found": false})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"found":      true,
		"subscriber": record,
	})
}

// ListEvents returns the most recent journal entries, newest first.
func (s *Server) ListEvents(c *gin.Context) {
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			AbortWithError(c, newValidationError("limit", "invalid_limit", "limit must be a positive integer"))
			return
		}
		limit = parsed
	}

	entries, err := s.journal.List(c.Request.Context(), limit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"events": entries,
		"count":  len(entries),
	})
}
