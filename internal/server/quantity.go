package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type adjustQuantityRequest struct {
	// Action is "add" or "decrease".
	Action string `json:"action"`
	// Interval selects the test-mode customer: "month" or "year".
	Interval string `json:"interval"`
	Quantity int64  `json:"quantity"`
}

// AdjustQuantity changes the seat count on the interval's active
// subscription. Additions bill the prorated difference immediately;
// decreases take effect at the next cycle.
func (s *Server) AdjustQuantity(c *gin.Context) {
	var req adjustQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("request", "invalid_request", "invalid request body"))
		return
	}
	if req.Quantity <= 0 {
		AbortWithError(c, newValidationError("quantity", "invalid_quantity", "quantity must be positive"))
		return
	}

	customerRef, err := s.customerForInterval(req.Interval)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "add":
		adjustment, err := s.billing.IncreaseQuantity(c.Request.Context(), customerRef, req.Quantity)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, adjustment)
	case "decrease":
		adjustment, err := s.billing.DecreaseQuantity(c.Request.Context(), customerRef, req.Quantity)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, adjustment)
	default:
		AbortWithError(c, newValidationError("action", "invalid_action", "action must be add or decrease"))
	}
}

func (s *Server) customerForInterval(interval string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case "month":
		if s.cfg.MonthlyCustomerRef == "" {
			return "", newValidationError("interval", "unconfigured_interval", "no monthly customer configured")
		}
		return s.cfg.MonthlyCustomerRef, nil
	case "year":
		if s.cfg.YearlyCustomerRef == "" {
			return "", newValidationError("interval", "unconfigured_interval", "no yearly customer configured")
		}
		return s.cfg.YearlyCustomerRef, nil
	default:
		return "", newValidationError("interval", "invalid_interval", "interval must be month or year")
	}
}
