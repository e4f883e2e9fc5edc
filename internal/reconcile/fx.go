package reconcile

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/subsync/internal/config"
	"github.com/smallbiznis/subsync/internal/reconcile/domain"
	"github.com/smallbiznis/subsync/internal/reconcile/service"
	"github.com/smallbiznis/subsync/internal/reconcile/stripe"
)

func newNormalizer(cfg config.Config) (*stripe.Normalizer, error) {
	return stripe.NewNormalizer(cfg.StripeWebhookSecret)
}

func newService(p service.Params) domain.Service {
	return service.New(p)
}

// Module wires the webhook normalizer and the reconciliation engine.
var Module = fx.Module("reconcile",
	fx.Provide(
		newNormalizer,
		newService,
	),
)
