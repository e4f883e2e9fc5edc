// Package domain contains the subscriber record model and the store contract
// that webhook reconciliation merges into.
package domain

import (
	"time"
)

// Status is the authoritative subscription lifecycle flag. The closed values
// below are the ones reconciliation assigns; provider-defined statuses pass
// through verbatim on subscription events.
type Status string

const (
	StatusIncomplete Status = "incomplete"
	StatusActive     Status = "active"
	StatusPastDue    Status = "past_due"
	StatusCanceled   Status = "canceled"
)

// Record is the reconciled per-subscriber view of billing state. Records are
// keyed by the subscriber's contact email. A production deployment re-keys on
// CustomerRef and demotes the email to a display field; the email key mirrors
// the provider's correlation field available on every invoice event.
type Record struct {
	IdentityKey           string     `gorm:"primaryKey;column:identity_key" json:"email"`
	CustomerRef           string     `gorm:"column:customer_ref;index" json:"customer_id"`
	SubscriptionRef       string     `gorm:"column:subscription_ref" json:"subscription_id"`
	PriceRef              string     `gorm:"column:price_ref" json:"price_id"`
	PaymentMethodRef      string     `gorm:"column:payment_method_ref" json:"payment_method_id,omitempty"`
	LatestInvoiceRef      string     `gorm:"column:latest_invoice_ref" json:"latest_invoice_id,omitempty"`
	Status                Status     `gorm:"type:text;column:status" json:"status"`
	PeriodEnd             *time.Time `gorm:"column:period_end" json:"current_period_end,omitempty"`
	SuspensionEffectiveAt *time.Time `gorm:"column:suspension_effective_at" json:"suspension_effective_at,omitempty"`
	LastUpdatedAt         time.Time  `gorm:"column:last_updated_at;not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Record) TableName() string { return "subscriber_records" }

// Partial is a field-wise update. Nil fields leave the existing value
// untouched; the explicit Clear flags are the only way to unset a value, so
// an event that simply lacks a field can never erase state.
type Partial struct {
	CustomerRef      *string
	SubscriptionRef  *string
	PriceRef         *string
	PaymentMethodRef *string
	LatestInvoiceRef *string
	Status           *Status
	PeriodEnd        *time.Time
	SuspensionAt     *time.Time

	ClearPaymentMethod bool
	ClearSuspension    bool
}

// Merge applies a partial update over an existing record and stamps the merge
// time. It never mutates its input.
func Merge(existing Record, key string, partial Partial, now time.Time) Record {
	merged := existing
	merged.IdentityKey = key

	if partial.CustomerRef != nil {
		merged.CustomerRef = *partial.CustomerRef
	}
	if partial.SubscriptionRef != nil {
		merged.SubscriptionRef = *partial.SubscriptionRef
	}
	if partial.PriceRef != nil {
		merged.PriceRef = *partial.PriceRef
	}
	if partial.PaymentMethodRef != nil {
		merged.PaymentMethodRef = *partial.PaymentMethodRef
	}
	if partial.ClearPaymentMethod {
		merged.PaymentMethodRef = ""
	}
	if partial.LatestInvoiceRef != nil {
		merged.LatestInvoiceRef = *partial.LatestInvoiceRef
	}
	if partial.Status != nil {
		merged.Status = *partial.Status
	}
	if partial.PeriodEnd != nil {
		end := *partial.PeriodEnd
		merged.PeriodEnd = &end
	}
	if partial.SuspensionAt != nil {
		at := *partial.SuspensionAt
		merged.SuspensionEffectiveAt = &at
	}
	if partial.ClearSuspension {
		merged.SuspensionEffectiveAt = nil
	}

	merged.LastUpdatedAt = now.UTC()
	return merged
}

// String builds a *string for Partial fields.
func String(v string) *string { return &v }

// StatusOf builds a *Status for Partial fields.
func StatusOf(v Status) *Status { return &v }
