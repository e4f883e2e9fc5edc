package server

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	reconcilestripe "github.com/smallbiznis/subsync/internal/reconcile/stripe"
)

// HandleBillingWebhook ingests one provider delivery. Events the reconciler
// drops are still acknowledged with 200 so the provider stops retrying;
// only signature and decode failures reject the delivery.
func (s *Server) HandleBillingWebhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, newValidationError("body", "invalid_request", "unreadable request body"))
		return
	}

	if err := s.normalizer.Verify(payload, c.Request.Header); err != nil {
		s.metrics.RecordSignatureFailure(reconcilestripe.Provider)
		s.log.Warn("webhook signature verification failed")
		AbortWithError(c, err)
		return
	}

	env, err := s.normalizer.Normalize(payload)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	outcome, err := s.reconciler.Process(c.Request.Context(), env)
	if err != nil {
		s.log.Error("webhook reconciliation failed",
			zap.String("provider_event_id", env.ProviderEventID),
			zap.String("event_type", env.ProviderType),
			zap.Error(err),
		)
		AbortWithError(c, ErrInternal)
		return
	}

	s.log.Info("webhook processed",
		zap.String("event_type", env.ProviderType),
		zap.String("outcome", string(outcome.Result)),
		zap.String("reason", outcome.Reason),
	)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
