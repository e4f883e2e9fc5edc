package billing

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/subsync/internal/config"
	"github.com/smallbiznis/subsync/internal/providers/billing/domain"
	"github.com/smallbiznis/subsync/internal/providers/billing/stripe"
)

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

// NewService wires the Stripe-backed billing provider client.
func NewService(p Params) (domain.Service, error) {
	return stripe.New(stripe.Config{
		APIKey:     p.Config.StripeSecretKey,
		SuccessURL: p.Config.CheckoutSuccessURL,
		CancelURL:  p.Config.CheckoutCancelURL,
	}, p.Log)
}

// Module wires the outbound billing provider.
var Module = fx.Module("billing",
	fx.Provide(NewService),
)
