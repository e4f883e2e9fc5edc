// Package domain defines the normalized webhook event variants and the
// reconciliation service contract. The variant set is closed: the normalizer
// maps every recognized provider event type onto exactly one struct here, and
// anything else becomes Unrecognized.
package domain

import "time"

// Event is one normalized webhook occurrence. Implementations are the closed
// set of variant structs in this package.
type Event interface {
	eventVariant()
}

// SessionCompleted reports a finished checkout. The reconciler treats it as
// the enrollment event: it seeds the record with the provider references and
// parks the subscription in incomplete until the first payment confirms.
type SessionCompleted struct {
	Email            string
	CustomerRef      string
	SubscriptionRef  string
	PriceRef         string
	LatestInvoiceRef string
}

// InvoicePaid confirms a successful payment for the period.
type InvoicePaid struct {
	Email      string
	InvoiceRef string
}

// InvoicePaymentFailed reports a failed charge attempt.
type InvoicePaymentFailed struct {
	Email      string
	InvoiceRef string
}

// SubscriptionCreated carries the subscription object itself. It has no email
// of its own; identity is resolved through the customer reference.
type SubscriptionCreated struct {
	CustomerRef      string
	SubscriptionRef  string
	PriceRef         string
	PaymentMethodRef string
	LatestInvoiceRef string
	Status           string
	StartAt          time.Time
	// Interval is the provider's raw billing interval string ("month", "year").
	Interval string
}

// SubscriptionUpdated reports a lifecycle status change. Identity comes from
// subscription metadata only.
type SubscriptionUpdated struct {
	Email           string
	SubscriptionRef string
	Status          string
}

// SubscriptionDeleted reports a cancellation.
type SubscriptionDeleted struct {
	Email           string
	CustomerRef     string
	SubscriptionRef string
}

// InvoiceUpcoming is the advance notice before a renewal charge.
type InvoiceUpcoming struct {
	Email      string
	InvoiceRef string
}

// Unrecognized is any provider event type outside the handled set. It is
// journaled and acknowledged without touching subscriber state.
type Unrecognized struct {
	ProviderType string
}

func (SessionCompleted) eventVariant()     {}
func (InvoicePaid) eventVariant()          {}
func (InvoicePaymentFailed) eventVariant() {}
func (SubscriptionCreated) eventVariant()  {}
func (SubscriptionUpdated) eventVariant()  {}
func (SubscriptionDeleted) eventVariant()  {}
func (InvoiceUpcoming) eventVariant()      {}
func (Unrecognized) eventVariant()         {}

// Envelope pairs a normalized event with its provider bookkeeping, used for
// journaling and tracing.
type Envelope struct {
	Provider        string
	ProviderEventID string
	ProviderType    string
	Payload         []byte
	Event           Event
}
