// Package service implements the reconciliation engine: it dispatches
// normalized webhook events to per-variant handlers, merges the resulting
// partial updates into subscriber records, and journals every delivery.
package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/smallbiznis/subsync/internal/billingperiod"
	"github.com/smallbiznis/subsync/internal/clock"
	"github.com/smallbiznis/subsync/internal/config"
	eventlogdomain "github.com/smallbiznis/subsync/internal/eventlog/domain"
	"github.com/smallbiznis/subsync/internal/observability"
	billingdomain "github.com/smallbiznis/subsync/internal/providers/billing/domain"
	"github.com/smallbiznis/subsync/internal/reconcile/domain"
	subscriberdomain "github.com/smallbiznis/subsync/internal/subscriber/domain"
)

// Drop reasons recorded on journal entries and metrics labels.
const (
	reasonMissingReferences  = "missing_references"
	reasonUnresolvedIdentity = "unresolved_identity"
	reasonExternalLookup     = "external_lookup_failed"
	reasonUnrecognizedType   = "unrecognized_type"
)

type Params struct {
	fx.In

	Store   subscriberdomain.Store
	Billing billingdomain.Service
	Policy  *config.PolicyHolder
	Clock   clock.Clock
	Journal eventlogdomain.Journal
	Metrics *observability.Metrics
	Node    *snowflake.Node
	Log     *zap.Logger
}

type Service struct {
	store   subscriberdomain.Store
	billing billingdomain.Service
	policy  *config.PolicyHolder
	clk     clock.Clock
	journal eventlogdomain.Journal
	metrics *observability.Metrics
	node    *snowflake.Node
	log     *zap.Logger
}

func New(p Params) *Service {
	return &Service{
		store:   p.Store,
		billing: p.Billing,
		policy:  p.Policy,
		clk:     p.Clock,
		journal: p.Journal,
		metrics: p.Metrics,
		node:    p.Node,
		log:     p.Log.Named("reconcile"),
	}
}

var _ domain.Service = (*Service)(nil)

// Process applies one normalized event. Events the engine cannot attribute to
// a subscriber are dropped and acknowledged; only store faults return an
// error.
func (s *Service) Process(ctx context.Context, env domain.Envelope) (domain.Outcome, error) {
	s.metrics.RecordEventReceived(env.Provider, env.ProviderType)

	var (
		outcome domain.Outcome
		err     error
	)
	switch event := env.Event.(type) {
	case domain.SessionCompleted:
		outcome, err = s.handleSessionCompleted(ctx, event)
	case domain.InvoicePaid:
		outcome, err = s.handleInvoicePaid(ctx, event)
	case domain.InvoicePaymentFailed:
		outcome, err = s.handleInvoicePaymentFailed(ctx, event)
	case domain.SubscriptionCreated:
		outcome, err = s.handleSubscriptionCreated(ctx, event)
	case domain.SubscriptionUpdated:
		outcome, err = s.handleSubscriptionUpdated(ctx, event)
	case domain.SubscriptionDeleted:
		outcome, err = s.handleSubscriptionDeleted(ctx, event)
	case domain.InvoiceUpcoming:
		outcome, err = s.handleInvoiceUpcoming(ctx, event)
	case domain.Unrecognized:
		s.log.Info("ignoring unrecognized event type", zap.String("event_type", event.ProviderType))
		outcome = domain.Outcome{Result: domain.ResultUnrecognized, Reason: reasonUnrecognizedType}
	default:
		outcome = domain.Outcome{Result: domain.ResultUnrecognized, Reason: reasonUnrecognizedType}
	}

	s.record(ctx, env, outcome, err)
	if err != nil {
		return domain.Outcome{}, err
	}
	return outcome, nil
}

func (s *Service) handleSessionCompleted(ctx context.Context, event domain.SessionCompleted) (domain.Outcome, error) {
	if event.CustomerRef == "" || event.SubscriptionRef == "" || event.PriceRef == "" {
		s.log.Warn("checkout session missing references",
			zap.String("customer_id", event.CustomerRef),
			zap.String("subscription_id", event.SubscriptionRef),
		)
		return dropped("", reasonMissingReferences), nil
	}
	if event.Email == "" {
		return dropped("", reasonUnresolvedIdentity), nil
	}

	partial := subscriberdomain.Partial{
		CustomerRef:     subscriberdomain.String(event.CustomerRef),
		SubscriptionRef: subscriberdomain.String(event.SubscriptionRef),
		PriceRef:        subscriberdomain.String(event.PriceRef),
		Status:          subscriberdomain.StatusOf(subscriberdomain.StatusIncomplete),
		// Checkout replaces any payment method left over from a previous
		// enrollment under the same email.
		ClearPaymentMethod: true,
	}
	if event.LatestInvoiceRef != "" {
		partial.LatestInvoiceRef = subscriberdomain.String(event.LatestInvoiceRef)
	}

	return s.apply(ctx, event.Email, partial)
}

func (s *Service) handleInvoicePaid(ctx context.Context, event domain.InvoicePaid) (domain.Outcome, error) {
	if event.Email == "" {
		s.log.Warn("invoice without customer email", zap.String("invoice_id", event.InvoiceRef))
		return dropped("", reasonUnresolvedIdentity), nil
	}

	partial := subscriberdomain.Partial{
		Status:          subscriberdomain.StatusOf(subscriberdomain.StatusActive),
		ClearSuspension: true,
	}
	if event.InvoiceRef != "" {
		partial.LatestInvoiceRef = subscriberdomain.String(event.InvoiceRef)
	}

	return s.apply(ctx, event.Email, partial)
}

func (s *Service) handleInvoicePaymentFailed(ctx context.Context, event domain.InvoicePaymentFailed) (domain.Outcome, error) {
	if event.Email == "" {
		s.log.Warn("failed invoice without customer email", zap.String("invoice_id", event.InvoiceRef))
		return dropped("", reasonUnresolvedIdentity), nil
	}

	// Every failure restarts the grace window from now.
	suspensionAt := s.clk.Now().Add(s.policy.Get().GracePeriod())
	partial := subscriberdomain.Partial{
		Status:       subscriberdomain.StatusOf(subscriberdomain.StatusPastDue),
		SuspensionAt: &suspensionAt,
	}

	s.log.Info("payment failed, suspension scheduled",
		zap.String("email", event.Email),
		zap.Time("suspension_effective_at", suspensionAt),
	)
	return s.apply(ctx, event.Email, partial)
}

func (s *Service) handleSubscriptionCreated(ctx context.Context, event domain.SubscriptionCreated) (domain.Outcome, error) {
	if event.CustomerRef == "" {
		return dropped("", reasonUnresolvedIdentity), nil
	}

	partial := subscriberdomain.Partial{
		CustomerRef:     subscriberdomain.String(event.CustomerRef),
		SubscriptionRef: subscriberdomain.String(event.SubscriptionRef),
	}
	if event.PriceRef != "" {
		partial.PriceRef = subscriberdomain.String(event.PriceRef)
	}
	if event.PaymentMethodRef != "" {
		partial.PaymentMethodRef = subscriberdomain.String(event.PaymentMethodRef)
	}
	if event.LatestInvoiceRef != "" {
		partial.LatestInvoiceRef = subscriberdomain.String(event.LatestInvoiceRef)
	}
	if event.Status != "" {
		partial.Status = subscriberdomain.StatusOf(subscriberdomain.Status(event.Status))
	}

	if interval, err := billingperiod.ParseInterval(event.Interval); err != nil {
		// The record still updates; only the period boundary stays unknown.
		s.log.Warn("unsupported billing interval",
			zap.String("interval", event.Interval),
			zap.String("subscription_id", event.SubscriptionRef),
		)
	} else {
		end, err := billingperiod.NextPeriodEnd(event.StartAt, interval)
		if err == nil {
			partial.PeriodEnd = &end
		}
	}

	email, lookupErr := s.resolveCustomerEmail(ctx, event.CustomerRef)
	if lookupErr != nil {
		s.log.Warn("customer email lookup failed",
			zap.String("customer_id", event.CustomerRef),
			zap.Error(lookupErr),
		)
		return dropped("", reasonExternalLookup), nil
	}
	if email == "" {
		s.log.Warn("customer has no email", zap.String("customer_id", event.CustomerRef))
		return dropped("", reasonUnresolvedIdentity), nil
	}

	// Tag the subscription so later lifecycle events carry their own
	// identity. Best effort: the local record still updates on failure.
	if event.SubscriptionRef != "" {
		if err := s.billing.TagSubscription(ctx, event.SubscriptionRef, email); err != nil {
			s.log.Warn("subscription metadata tag failed",
				zap.String("subscription_id", event.SubscriptionRef),
				zap.Error(err),
			)
		}
	}

	return s.apply(ctx, email, partial)
}

func (s *Service) handleSubscriptionUpdated(ctx context.Context, event domain.SubscriptionUpdated) (domain.Outcome, error) {
	// Identity comes from subscription metadata only; an untagged
	// subscription cannot be attributed.
	if event.Email == "" {
		s.log.Warn("subscription update without metadata email",
			zap.String("subscription_id", event.SubscriptionRef),
		)
		return dropped("", reasonUnresolvedIdentity), nil
	}

	partial := subscriberdomain.Partial{}
	if event.Status != "" {
		partial.Status = subscriberdomain.StatusOf(subscriberdomain.Status(event.Status))
	}

	return s.apply(ctx, event.Email, partial)
}

func (s *Service) handleSubscriptionDeleted(ctx context.Context, event domain.SubscriptionDeleted) (domain.Outcome, error) {
	email := event.Email
	if email == "" && event.CustomerRef != "" {
		resolved, err := s.resolveCustomerEmail(ctx, event.CustomerRef)
		if err != nil {
			s.log.Warn("customer email lookup failed",
				zap.String("customer_id", event.CustomerRef),
				zap.Error(err),
			)
			return dropped("", reasonExternalLookup), nil
		}
		email = resolved
	}
	if email == "" {
		s.log.Warn("cancellation without resolvable identity",
			zap.String("subscription_id", event.SubscriptionRef),
		)
		return dropped("", reasonUnresolvedIdentity), nil
	}

	partial := subscriberdomain.Partial{
		Status: subscriberdomain.StatusOf(subscriberdomain.StatusCanceled),
	}
	return s.apply(ctx, email, partial)
}

func (s *Service) handleInvoiceUpcoming(ctx context.Context, event domain.InvoiceUpcoming) (domain.Outcome, error) {
	if event.Email == "" {
		s.log.Warn("upcoming invoice without customer email", zap.String("invoice_id", event.InvoiceRef))
		return dropped("", reasonUnresolvedIdentity), nil
	}

	partial := subscriberdomain.Partial{}
	if event.InvoiceRef != "" {
		partial.LatestInvoiceRef = subscriberdomain.String(event.InvoiceRef)
	}
	return s.apply(ctx, event.Email, partial)
}

func (s *Service) apply(ctx context.Context, email string, partial subscriberdomain.Partial) (domain.Outcome, error) {
	record, err := s.store.UpsertMerge(ctx, email, partial)
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.Outcome{
		Result:      domain.ResultApplied,
		IdentityKey: record.IdentityKey,
	}, nil
}

// resolveCustomerEmail looks up the contact email behind a customer reference
// under the policy's outbound deadline.
func (s *Service) resolveCustomerEmail(ctx context.Context, customerRef string) (string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, s.policy.Get().LookupTimeout())
	defer cancel()

	email, err := s.billing.CustomerEmail(lookupCtx, customerRef)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(email), nil
}

func (s *Service) record(ctx context.Context, env domain.Envelope, outcome domain.Outcome, procErr error) {
	entry := eventlogdomain.Entry{
		ID:              s.node.Generate(),
		Provider:        env.Provider,
		ProviderEventID: env.ProviderEventID,
		EventType:       env.ProviderType,
		IdentityKey:     outcome.IdentityKey,
		Outcome:         string(outcome.Result),
		Reason:          outcome.Reason,
		Payload:         datatypes.JSON(env.Payload),
		ReceivedAt:      s.clk.Now(),
	}
	if procErr != nil {
		entry.Outcome = "error"
		entry.Reason = "store_failure"
	}

	switch {
	case procErr != nil:
	case outcome.Result == domain.ResultApplied:
		s.metrics.RecordEventApplied(env.Provider, env.ProviderType)
	default:
		s.metrics.RecordEventDropped(env.Provider, env.ProviderType, outcome.Reason)
	}

	// Journal failures never block acknowledgement.
	if err := s.journal.Append(ctx, entry); err != nil {
		s.log.Warn("event journal append failed",
			zap.String("provider_event_id", env.ProviderEventID),
			zap.Error(err),
		)
	}
}

func dropped(identityKey, reason string) domain.Outcome {
	return domain.Outcome{
		Result:      domain.ResultDropped,
		IdentityKey: identityKey,
		Reason:      reason,
	}
}
