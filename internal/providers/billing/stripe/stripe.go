// Package stripe implements the outbound billing provider contract on the
// Stripe API.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	session "github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/invoice"
	"github.com/stripe/stripe-go/v82/paymentmethod"
	"github.com/stripe/stripe-go/v82/price"
	"github.com/stripe/stripe-go/v82/subscription"
	"go.uber.org/zap"

	"github.com/smallbiznis/subsync/internal/providers/billing/domain"
)

type Service struct {
	log        *zap.Logger
	successURL string
	cancelURL  string
}

type Config struct {
	APIKey     string
	SuccessURL string
	CancelURL  string
}

func New(cfg Config, log *zap.Logger) (*Service, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("stripe api key is required")
	}
	stripe.Key = key

	return &Service{
		log:        log.Named("billing.stripe"),
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}, nil
}

func (s *Service) CustomerEmail(ctx context.Context, customerRef string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx

	cust, err := customer.Get(customerRef, params)
	if err != nil {
		return "", fmt.Errorf("get customer %s: %w", customerRef, err)
	}
	return strings.TrimSpace(cust.Email), nil
}

func (s *Service) TagSubscription(ctx context.Context, subscriptionRef, email string) error {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	params.AddMetadata("email", email)

	if _, err := subscription.Update(subscriptionRef, params); err != nil {
		return fmt.Errorf("tag subscription %s: %w", subscriptionRef, err)
	}
	return nil
}

func (s *Service) CreateCheckoutSession(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutSession, error) {
	priceID, err := s.lookupPrice(ctx, req.LookupKey)
	if err != nil {
		return domain.CheckoutSession{}, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(req.Quantity),
			},
		},
		SuccessURL:    stripe.String(s.successURL),
		CancelURL:     stripe.String(s.cancelURL),
		CustomerEmail: stripe.String(req.Email),
	}
	params.Context = ctx
	params.AddMetadata("price_id", priceID)
	params.AddMetadata("email", req.Email)

	created, err := session.New(params)
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return fromSession(created), nil
}

func (s *Service) GetCheckoutSession(ctx context.Context, sessionID string) (domain.CheckoutSession, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	params.AddExpand("customer")
	params.AddExpand("subscription")

	found, err := session.Get(sessionID, params)
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("get checkout session %s: %w", sessionID, err)
	}
	return fromSession(found), nil
}

func (s *Service) IncreaseQuantity(ctx context.Context, customerRef string, add int64) (domain.QuantityAdjustment, error) {
	if add <= 0 {
		return domain.QuantityAdjustment{}, domain.ErrInvalidQuantity
	}

	if err := s.ensureDefaultPaymentMethod(ctx, customerRef); err != nil {
		return domain.QuantityAdjustment{}, err
	}

	sub, item, err := s.activeSubscription(ctx, customerRef)
	if err != nil {
		return domain.QuantityAdjustment{}, err
	}

	newQuantity := item.Quantity + add

	updateParams := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:       stripe.String(item.ID),
				Quantity: stripe.Int64(newQuantity),
			},
		},
		ProrationBehavior: stripe.String("create_prorations"),
	}
	updateParams.Context = ctx
	if _, err := subscription.Update(sub.ID, updateParams); err != nil {
		return domain.QuantityAdjustment{}, fmt.Errorf("update subscription %s: %w", sub.ID, err)
	}

	// Bill the proration now instead of waiting for the next cycle.
	invoiceParams := &stripe.InvoiceParams{
		Customer:         stripe.String(customerRef),
		Subscription:     stripe.String(sub.ID),
		CollectionMethod: stripe.String("charge_automatically"),
		Description:      stripe.String(fmt.Sprintf("Prorated invoice for %d added seat(s)", add)),
	}
	invoiceParams.Context = ctx
	created, err := invoice.New(invoiceParams)
	if err != nil {
		return domain.QuantityAdjustment{}, fmt.Errorf("create proration invoice: %w", err)
	}

	finalizeParams := &stripe.InvoiceFinalizeInvoiceParams{}
	finalizeParams.Context = ctx
	if _, err := invoice.FinalizeInvoice(created.ID, finalizeParams); err != nil {
		return domain.QuantityAdjustment{}, fmt.Errorf("finalize invoice %s: %w", created.ID, err)
	}

	payParams := &stripe.InvoicePayParams{}
	payParams.Context = ctx
	paid, err := invoice.Pay(created.ID, payParams)
	if err != nil {
		return domain.QuantityAdjustment{}, fmt.Errorf("pay invoice %s: %w", created.ID, err)
	}

	s.log.Info("subscription quantity increased",
		zap.String("subscription_id", sub.ID),
		zap.Int64("quantity", newQuantity),
		zap.String("invoice_id", paid.ID),
	)
	return domain.QuantityAdjustment{
		NewQuantity:      newQuantity,
		InvoiceRef:       paid.ID,
		InvoiceStatus:    string(paid.Status),
		AmountPaid:       paid.AmountPaid,
		HostedInvoiceURL: paid.HostedInvoiceURL,
	}, nil
}

func (s *Service) DecreaseQuantity(ctx context.Context, customerRef string, remove int64) (domain.QuantityAdjustment, error) {
	if remove <= 0 {
		return domain.QuantityAdjustment{}, domain.ErrInvalidQuantity
	}

	sub, item, err := s.activeSubscription(ctx, customerRef)
	if err != nil {
		return domain.QuantityAdjustment{}, err
	}

	newQuantity := item.Quantity - remove
	if newQuantity < 1 {
		return domain.QuantityAdjustment{}, domain.ErrQuantityTooLow
	}

	updateParams := &stripe.SubscriptionParams{
		Items: []*stripe.SubscriptionItemsParams{
			{
				ID:       stripe.String(item.ID),
				Quantity: stripe.Int64(newQuantity),
			},
		},
		ProrationBehavior: stripe.String("none"),
	}
	updateParams.Context = ctx
	if _, err := subscription.Update(sub.ID, updateParams); err != nil {
		return domain.QuantityAdjustment{}, fmt.Errorf("update subscription %s: %w", sub.ID, err)
	}

	s.log.Info("subscription quantity decreased",
		zap.String("subscription_id", sub.ID),
		zap.Int64("quantity_next_cycle", newQuantity),
	)
	return domain.QuantityAdjustment{
		NewQuantity:      newQuantity,
		EffectiveAtCycle: true,
	}, nil
}

func (s *Service) lookupPrice(ctx context.Context, lookupKey string) (string, error) {
	params := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{lookupKey}),
	}
	params.Context = ctx
	params.AddExpand("data.product")

	iter := price.List(params)
	for iter.Next() {
		return iter.Price().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("list prices: %w", err)
	}
	return "", domain.ErrPriceNotFound
}

func (s *Service) ensureDefaultPaymentMethod(ctx context.Context, customerRef string) error {
	listParams := &stripe.PaymentMethodListParams{
		Customer: stripe.String(customerRef),
		Type:     stripe.String("card"),
	}
	listParams.Context = ctx

	iter := paymentmethod.List(listParams)
	if !iter.Next() {
		if err := iter.Err(); err != nil {
			return fmt.Errorf("list payment methods: %w", err)
		}
		return domain.ErrNoPaymentMethod
	}
	method := iter.PaymentMethod()

	updateParams := &stripe.CustomerParams{
		InvoiceSettings: &stripe.CustomerInvoiceSettingsParams{
			DefaultPaymentMethod: stripe.String(method.ID),
		},
	}
	updateParams.Context = ctx
	if _, err := customer.Update(customerRef, updateParams); err != nil {
		return fmt.Errorf("set default payment method: %w", err)
	}
	return nil
}

func (s *Service) activeSubscription(ctx context.Context, customerRef string) (*stripe.Subscription, *stripe.SubscriptionItem, error) {
	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerRef),
		Status:   stripe.String(string(stripe.SubscriptionStatusActive)),
	}
	params.Context = ctx
	params.Limit = stripe.Int64(1)

	iter := subscription.List(params)
	if !iter.Next() {
		if err := iter.Err(); err != nil {
			return nil, nil, fmt.Errorf("list subscriptions: %w", err)
		}
		return nil, nil, domain.ErrNoActiveSubscription
	}
	sub := iter.Subscription()
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, nil, domain.ErrNoActiveSubscription
	}
	return sub, sub.Items.Data[0], nil
}

func fromSession(s *stripe.CheckoutSession) domain.CheckoutSession {
	out := domain.CheckoutSession{
		ID:          s.ID,
		URL:         s.URL,
		Email:       s.CustomerEmail,
		AmountTotal: s.AmountTotal,
		Metadata:    s.Metadata,
		Status:      string(s.Status),
	}
	if s.Customer != nil {
		out.CustomerRef = s.Customer.ID
	}
	if s.Subscription != nil {
		out.SubscriptionRef = s.Subscription.ID
	}
	return out
}
