package domain

import (
	"context"
	"errors"
)

var (
	// ErrInvalidSignature rejects a webhook delivery whose signature header
	// does not verify. The only reconciliation error surfaced as HTTP 400.
	ErrInvalidSignature = errors.New("invalid_webhook_signature")
	// ErrMalformedEvent rejects a payload that verified but cannot be decoded.
	ErrMalformedEvent = errors.New("malformed_event")
	// ErrUnresolvedIdentity marks an event whose subscriber could not be
	// determined by any resolution strategy. The event is dropped, not failed.
	ErrUnresolvedIdentity = errors.New("unresolved_identity")
	// ErrExternalLookup marks a failed outbound call to the billing provider.
	ErrExternalLookup = errors.New("external_lookup_failed")
)

// Result classifies what reconciliation did with an event.
type Result string

const (
	ResultApplied      Result = "applied"
	ResultDropped      Result = "dropped"
	ResultUnrecognized Result = "unrecognized"
)

// Outcome reports the disposition of one event. Dropped and unrecognized
// events still acknowledge the delivery; Reason records why no state changed.
type Outcome struct {
	Result      Result
	IdentityKey string
	Reason      string
}

// Service applies normalized webhook events to subscriber state.
//
// Process returns a non-nil error only for internal faults (store failures)
// that warrant a retried delivery. Events the engine chooses not to apply
// come back as a dropped or unrecognized Outcome with a nil error.
type Service interface {
	Process(ctx context.Context, env Envelope) (Outcome, error)
}
