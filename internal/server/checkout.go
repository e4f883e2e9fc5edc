package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	billingdomain "github.com/smallbiznis/subsync/internal/providers/billing/domain"
)

type createCheckoutRequest struct {
	LookupKey string `json:"lookup_key"`
	Quantity  int64  `json:"quantity"`
	Email     string `json:"email"`
}

// CreateCheckout starts a hosted checkout session for a subscription price.
func (s *Server) CreateCheckout(c *gin.Context) {
	var req createCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	req.LookupKey = strings.TrimSpace(req.LookupKey)
	req.Email = strings.TrimSpace(req.Email)
	if req.LookupKey == "" {
		AbortWithError(c, newValidationError("lookup_key", "required", "lookup key is required"))
		return
	}
	if req.Email == "" {
		AbortWithError(c, newValidationError("email", "required", "email is required"))
		return
	}
	if req.Quantity <= 0 {
		req.Quantity = 1
	}

	session, err := s.billing.CreateCheckoutSession(c.Request.Context(), billingdomain.CheckoutRequest{
		LookupKey: req.LookupKey,
		Quantity:  req.Quantity,
		Email:     req.Email,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": session.URL})
}

// GetCheckoutSession returns session details with customer and subscription
// references expanded.
func (s *Server) GetCheckoutSession(c *gin.Context) {
	sessionID := strings.TrimSpace(c.Query("session_id"))
	if sessionID == "" {
		AbortWithError(c, newValidationError("session_id", "required", "session id is required"))
		return
	}

	session, err := s.billing.GetCheckoutSession(c.Request.Context(), sessionID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, session)
}
