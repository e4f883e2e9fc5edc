// Package server exposes the HTTP surface: the webhook intake, the
// subscriber and event-journal query facades, and the checkout and
// seat-quantity call-throughs.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/subsync/internal/config"
	eventlogdomain "github.com/smallbiznis/subsync/internal/eventlog/domain"
	"github.com/smallbiznis/subsync/internal/observability"
	billingdomain "github.com/smallbiznis/subsync/internal/providers/billing/domain"
	reconciledomain "github.com/smallbiznis/subsync/internal/reconcile/domain"
	reconcilestripe "github.com/smallbiznis/subsync/internal/reconcile/stripe"
	subscriberdomain "github.com/smallbiznis/subsync/internal/subscriber/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(metrics *observability.Metrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.TracingMiddleware())
	r.Use(metrics.HTTPMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(metrics *observability.Metrics) *gin.Engine {
	return NewEngine(metrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	normalizer *reconcilestripe.Normalizer
	reconciler reconciledomain.Service
	store      subscriberdomain.Store
	journal    eventlogdomain.Journal
	billing    billingdomain.Service
	metrics    *observability.Metrics
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	Normalizer *reconcilestripe.Normalizer
	Reconciler reconciledomain.Service
	Store      subscriberdomain.Store
	Journal    eventlogdomain.Journal
	Billing    billingdomain.Service
	Metrics    *observability.Metrics
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		normalizer: p.Normalizer,
		reconciler: p.Reconciler,
		store:      p.Store,
		journal:    p.Journal,
		billing:    p.Billing,
		metrics:    p.Metrics,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Webhook intake --------
	api.POST("/billing/webhooks/stripe", s.HandleBillingWebhook)

	// -------- Reconciled state --------
	api.GET("/subscribers/:email", s.GetSubscriber)
	api.GET("/events", s.ListEvents)

	// -------- Checkout --------
	api.POST("/checkout", s.CreateCheckout)
	api.GET("/checkout/session", s.GetCheckoutSession)

	// -------- Seat quantity --------
	api.POST("/subscriptions/quantity", s.AdjustQuantity)
}
