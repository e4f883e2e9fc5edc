// Package domain defines the outbound billing provider contract: customer
// lookups used during reconciliation plus the checkout and quantity
// call-throughs the HTTP API exposes.
package domain

import (
	"context"
	"errors"
)

var (
	ErrPriceNotFound        = errors.New("price_not_found")
	ErrNoPaymentMethod      = errors.New("no_payment_method")
	ErrNoActiveSubscription = errors.New("no_active_subscription")
	ErrInvalidQuantity      = errors.New("invalid_quantity")
	ErrQuantityTooLow       = errors.New("quantity_too_low")
)

// CheckoutRequest starts a hosted checkout for a subscription price looked up
// by its lookup key.
type CheckoutRequest struct {
	LookupKey string
	Quantity  int64
	Email     string
}

// CheckoutSession is the provider's session view returned to API callers.
type CheckoutSession struct {
	ID              string            `json:"id"`
	URL             string            `json:"url,omitempty"`
	Email           string            `json:"email,omitempty"`
	CustomerRef     string            `json:"customer_id,omitempty"`
	SubscriptionRef string            `json:"subscription_id,omitempty"`
	AmountTotal     int64             `json:"amount_total"`
	Metadata        map[string]string `json:"metadata,omitempty"`
	Status          string            `json:"status,omitempty"`
}

// QuantityAdjustment reports the result of a seat count change. Increases
// bill the prorated difference immediately; decreases take effect at the next
// cycle and leave the invoice fields empty.
type QuantityAdjustment struct {
	NewQuantity      int64  `json:"quantity"`
	EffectiveAtCycle bool   `json:"effective_next_cycle"`
	InvoiceRef       string `json:"invoice_id,omitempty"`
	InvoiceStatus    string `json:"invoice_status,omitempty"`
	AmountPaid       int64  `json:"amount_paid,omitempty"`
	HostedInvoiceURL string `json:"hosted_invoice_url,omitempty"`
}

// Service is the outbound surface against the billing provider.
type Service interface {
	// CustomerEmail resolves the contact email behind a provider customer
	// reference.
	CustomerEmail(ctx context.Context, customerRef string) (string, error)
	// TagSubscription writes the resolved email into the subscription's
	// metadata so later lifecycle events carry their own identity.
	TagSubscription(ctx context.Context, subscriptionRef, email string) error
	// CreateCheckoutSession starts a hosted checkout and returns its URL.
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	// GetCheckoutSession fetches a session with customer and subscription
	// references expanded.
	GetCheckoutSession(ctx context.Context, sessionID string) (CheckoutSession, error)
	// IncreaseQuantity raises the seat count on the customer's active
	// subscription and charges the prorated difference immediately.
	IncreaseQuantity(ctx context.Context, customerRef string, add int64) (QuantityAdjustment, error)
	// DecreaseQuantity lowers the seat count effective next cycle. The count
	// never drops below one.
	DecreaseQuantity(ctx context.Context, customerRef string, remove int64) (QuantityAdjustment, error)
}
