// Package stripe verifies Stripe webhook deliveries and normalizes their
// payloads into the closed event variants the reconciler consumes.
package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/smallbiznis/subsync/internal/reconcile/domain"
)

// Provider is the provider tag recorded on journal entries.
const Provider = "stripe"

// SignatureHeader carries the webhook signature on Stripe deliveries.
const SignatureHeader = "Stripe-Signature"

type Normalizer struct {
	webhookSecret string
}

func NewNormalizer(webhookSecret string) (*Normalizer, error) {
	webhookSecret = strings.TrimSpace(webhookSecret)
	if webhookSecret == "" {
		return nil, errors.New("stripe webhook secret is required")
	}
	return &Normalizer{webhookSecret: webhookSecret}, nil
}

// Verify checks the delivery signature against the raw request body. The
// scheme is HMAC-SHA256 over "<timestamp>.<payload>" with the endpoint
// secret, carried as "t=<ts>,v1=<hex>" in the signature header.
func (n *Normalizer) Verify(payload []byte, headers http.Header) error {
	sigHeader := strings.TrimSpace(headers.Get(SignatureHeader))
	if sigHeader == "" {
		return domain.ErrInvalidSignature
	}

	timestamp, signatures, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return domain.ErrInvalidSignature
	}

	signedPayload := fmt.Sprintf("%s.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(n.webhookSecret))
	_, _ = mac.Write([]byte(signedPayload))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			return nil
		}
	}

	return domain.ErrInvalidSignature
}

// Normalize decodes a verified payload into its event variant. Event types
// outside the handled set come back as Unrecognized, not as an error;
// undecodable payloads fail with ErrMalformedEvent.
func (n *Normalizer) Normalize(payload []byte) (domain.Envelope, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return domain.Envelope{}, domain.ErrMalformedEvent
	}
	if strings.TrimSpace(event.ID) == "" {
		return domain.Envelope{}, domain.ErrMalformedEvent
	}

	env := domain.Envelope{
		Provider:        Provider,
		ProviderEventID: event.ID,
		ProviderType:    strings.TrimSpace(event.Type),
		Payload:         payload,
	}

	var err error
	switch env.ProviderType {
	case "checkout.session.completed":
		env.Event, err = parseCheckoutSession(event)
	case "invoice.paid":
		env.Event, err = parseInvoice(event, func(inv stripeInvoice) domain.Event {
			return domain.InvoicePaid{Email: inv.CustomerEmail, InvoiceRef: inv.ID}
		})
	case "invoice.payment_failed":
		env.Event, err = parseInvoice(event, func(inv stripeInvoice) domain.Event {
			return domain.InvoicePaymentFailed{Email: inv.CustomerEmail, InvoiceRef: inv.ID}
		})
	case "invoice.upcoming":
		env.Event, err = parseInvoice(event, func(inv stripeInvoice) domain.Event {
			return domain.InvoiceUpcoming{Email: inv.CustomerEmail, InvoiceRef: inv.ID}
		})
	case "customer.subscription.created":
		env.Event, err = parseSubscriptionCreated(event)
	case "customer.subscription.updated":
		env.Event, err = parseSubscriptionUpdated(event)
	case "customer.subscription.deleted":
		env.Event, err = parseSubscriptionDeleted(event)
	default:
		env.Event = domain.Unrecognized{ProviderType: env.ProviderType}
	}
	if err != nil {
		return domain.Envelope{}, err
	}
	return env, nil
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

// ref accepts the two shapes Stripe uses for object references: a bare id
// string, or the expanded object with an "id" field.
type ref struct {
	ID string
}

func (r *ref) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		r.ID = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	r.ID = obj.ID
	return nil
}

type stripeCheckoutSession struct {
	CustomerEmail string            `json:"customer_email"`
	Customer      ref               `json:"customer"`
	Subscription  ref               `json:"subscription"`
	Invoice       ref               `json:"invoice"`
	Metadata      map[string]string `json:"metadata"`
}

type stripeInvoice struct {
	ID            string `json:"id"`
	CustomerEmail string `json:"customer_email"`
}

type stripeSubscription struct {
	ID                   string            `json:"id"`
	Customer             ref               `json:"customer"`
	Status               string            `json:"status"`
	StartDate            int64             `json:"start_date"`
	Created              int64             `json:"created"`
	DefaultPaymentMethod ref               `json:"default_payment_method"`
	LatestInvoice        ref               `json:"latest_invoice"`
	Metadata             map[string]string `json:"metadata"`
	Items                struct {
		Data []stripeSubscriptionItem `json:"data"`
	} `json:"items"`
}

type stripeSubscriptionItem struct {
	Plan struct {
		Interval string `json:"interval"`
	} `json:"plan"`
	Price struct {
		ID string `json:"id"`
	} `json:"price"`
}

func parseCheckoutSession(event stripeEvent) (domain.Event, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, domain.ErrMalformedEvent
	}
	return domain.SessionCompleted{
		Email:            strings.TrimSpace(session.CustomerEmail),
		CustomerRef:      session.Customer.ID,
		SubscriptionRef:  session.Subscription.ID,
		PriceRef:         strings.TrimSpace(session.Metadata["price_id"]),
		LatestInvoiceRef: session.Invoice.ID,
	}, nil
}

func parseInvoice(event stripeEvent, build func(stripeInvoice) domain.Event) (domain.Event, error) {
	var invoice stripeInvoice
	if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
		return nil, domain.ErrMalformedEvent
	}
	invoice.CustomerEmail = strings.TrimSpace(invoice.CustomerEmail)
	return build(invoice), nil
}

func parseSubscriptionCreated(event stripeEvent) (domain.Event, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, domain.ErrMalformedEvent
	}

	var interval, priceRef string
	if len(sub.Items.Data) > 0 {
		interval = strings.TrimSpace(sub.Items.Data[0].Plan.Interval)
		priceRef = sub.Items.Data[0].Price.ID
	}

	return domain.SubscriptionCreated{
		CustomerRef:      sub.Customer.ID,
		SubscriptionRef:  sub.ID,
		PriceRef:         priceRef,
		PaymentMethodRef: sub.DefaultPaymentMethod.ID,
		LatestInvoiceRef: sub.LatestInvoice.ID,
		Status:           strings.TrimSpace(sub.Status),
		StartAt:          startTimestamp(sub.StartDate, sub.Created, event.Created),
		Interval:         interval,
	}, nil
}

func parseSubscriptionUpdated(event stripeEvent) (domain.Event, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, domain.ErrMalformedEvent
	}
	return domain.SubscriptionUpdated{
		Email:           strings.TrimSpace(sub.Metadata["email"]),
		SubscriptionRef: sub.ID,
		Status:          strings.TrimSpace(sub.Status),
	}, nil
}

func parseSubscriptionDeleted(event stripeEvent) (domain.Event, error) {
	var sub stripeSubscription
	if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
		return nil, domain.ErrMalformedEvent
	}
	return domain.SubscriptionDeleted{
		Email:           strings.TrimSpace(sub.Metadata["email"]),
		CustomerRef:     sub.Customer.ID,
		SubscriptionRef: sub.ID,
	}, nil
}

func parseSignatureHeader(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

func startTimestamp(startDate, created, eventCreated int64) time.Time {
	value := startDate
	if value == 0 {
		value = created
	}
	if value == 0 {
		value = eventCreated
	}
	if value == 0 {
		return time.Now().UTC()
	}
	return time.Unix(value, 0).UTC()
}
