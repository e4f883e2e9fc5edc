package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/smallbiznis/subsync/internal/reconcile/domain"
)

func TestVerifySignature(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"invoice.paid","data":{"object":{}}}`)
	timestamp := time.Now().Unix()

	header := buildStripeSignatureHeader(secret, payload, timestamp)
	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", header)

	normalizer := &Normalizer{webhookSecret: secret}
	if err := normalizer.Verify(payload, reqHeader); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("wrong", payload, timestamp))
	if err := normalizer.Verify(payload, reqHeader); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}

	reqHeader.Del("Stripe-Signature")
	if err := normalizer.Verify(payload, reqHeader); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error on missing header, got %v", err)
	}
}

func TestVerifyTamperedPayload(t *testing.T) {
	secret := "whsec_test"
	payload := []byte(`{"id":"evt_123","type":"invoice.paid"}`)
	timestamp := time.Now().Unix()

	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader(secret, payload, timestamp))

	normalizer := &Normalizer{webhookSecret: secret}
	tampered := []byte(`{"id":"evt_999","type":"invoice.paid"}`)
	if err := normalizer.Verify(tampered, reqHeader); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}
}

func TestNormalizeCheckoutSession(t *testing.T) {
	tests := []struct {
		name   string
		object map[string]any
		want   domain.SessionCompleted
	}{{
		name: "string references",
		object: map[string]any{
			"customer_email": "jane@example.com",
			"customer":       "cus_123",
			"subscription":   "sub_456",
			"invoice":        "in_789",
			"metadata":       map[string]any{"price_id": "price_abc"},
		},
		want: domain.SessionCompleted{
			Email:            "jane@example.com",
			CustomerRef:      "cus_123",
			SubscriptionRef:  "sub_456",
			PriceRef:         "price_abc",
			LatestInvoiceRef: "in_789",
		},
	}, {
		name: "expanded references",
		object: map[string]any{
			"customer_email": "jane@example.com",
			"customer":       map[string]any{"id": "cus_123"},
			"subscription":   map[string]any{"id": "sub_456"},
			"invoice":        map[string]any{"id": "in_789"},
			"metadata":       map[string]any{"price_id": "price_abc"},
		},
		want: domain.SessionCompleted{
			Email:            "jane@example.com",
			CustomerRef:      "cus_123",
			SubscriptionRef:  "sub_456",
			PriceRef:         "price_abc",
			LatestInvoiceRef: "in_789",
		},
	}, {
		name: "null references stay empty",
		object: map[string]any{
			"customer_email": "jane@example.com",
			"customer":       nil,
			"subscription":   "sub_456",
			"metadata":       map[string]any{"price_id": "price_abc"},
		},
		want: domain.SessionCompleted{
			Email:           "jane@example.com",
			SubscriptionRef: "sub_456",
			PriceRef:        "price_abc",
		},
	}}

	normalizer := &Normalizer{webhookSecret: "whsec_test"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := normalizer.Normalize(marshalEvent(t, "evt_1", "checkout.session.completed", tt.object))
			if err != nil {
				t.Fatalf("normalize: %v", err)
			}
			got, ok := env.Event.(domain.SessionCompleted)
			if !ok {
				t.Fatalf("expected SessionCompleted, got %T", env.Event)
			}
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestNormalizeInvoiceEvents(t *testing.T) {
	object := map[string]any{
		"id":             "in_123",
		"customer_email": "jane@example.com",
	}

	normalizer := &Normalizer{webhookSecret: "whsec_test"}

	env, err := normalizer.Normalize(marshalEvent(t, "evt_1", "invoice.paid", object))
	if err != nil {
		t.Fatalf("normalize invoice.paid: %v", err)
	}
	paid, ok := env.Event.(domain.InvoicePaid)
	if !ok || paid.Email != "jane@example.com" || paid.InvoiceRef != "in_123" {
		t.Fatalf("unexpected invoice.paid event: %+v", env.Event)
	}

	env, err = normalizer.Normalize(marshalEvent(t, "evt_2", "invoice.payment_failed", object))
	if err != nil {
		t.Fatalf("normalize invoice.payment_failed: %v", err)
	}
	if _, ok := env.Event.(domain.InvoicePaymentFailed); !ok {
		t.Fatalf("expected InvoicePaymentFailed, got %T", env.Event)
	}

	env, err = normalizer.Normalize(marshalEvent(t, "evt_3", "invoice.upcoming", object))
	if err != nil {
		t.Fatalf("normalize invoice.upcoming: %v", err)
	}
	if _, ok := env.Event.(domain.InvoiceUpcoming); !ok {
		t.Fatalf("expected InvoiceUpcoming, got %T", env.Event)
	}
}

func TestNormalizeSubscriptionCreated(t *testing.T) {
	start := time.Date(2024, time.January, 31, 10, 0, 0, 0, time.UTC)
	object := map[string]any{
		"id":                     "sub_456",
		"customer":               "cus_123",
		"status":                 "active",
		"start_date":             start.Unix(),
		"default_payment_method": "pm_789",
		"latest_invoice":         map[string]any{"id": "in_001"},
		"items": map[string]any{
			"data": []map[string]any{{
				"plan":  map[string]any{"interval": "month"},
				"price": map[string]any{"id": "price_abc"},
			}},
		},
	}

	normalizer := &Normalizer{webhookSecret: "whsec_test"}
	env, err := normalizer.Normalize(marshalEvent(t, "evt_1", "customer.subscription.created", object))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	got, ok := env.Event.(domain.SubscriptionCreated)
	if !ok {
		t.Fatalf("expected SubscriptionCreated, got %T", env.Event)
	}
	if got.CustomerRef != "cus_123" || got.SubscriptionRef != "sub_456" {
		t.Fatalf("unexpected references: %+v", got)
	}
	if got.PriceRef != "price_abc" || got.Interval != "month" {
		t.Fatalf("unexpected item fields: %+v", got)
	}
	if got.PaymentMethodRef != "pm_789" || got.LatestInvoiceRef != "in_001" {
		t.Fatalf("unexpected refs: %+v", got)
	}
	if !got.StartAt.Equal(start) {
		t.Fatalf("expected start %v, got %v", start, got.StartAt)
	}
}

func TestNormalizeSubscriptionUpdatedAndDeleted(t *testing.T) {
	normalizer := &Normalizer{webhookSecret: "whsec_test"}

	env, err := normalizer.Normalize(marshalEvent(t, "evt_1", "customer.subscription.updated", map[string]any{
		"id":       "sub_456",
		"status":   "unpaid",
		"metadata": map[string]any{"email": "jane@example.com"},
	}))
	if err != nil {
		t.Fatalf("normalize updated: %v", err)
	}
	updated, ok := env.Event.(domain.SubscriptionUpdated)
	if !ok || updated.Email != "jane@example.com" || updated.Status != "unpaid" {
		t.Fatalf("unexpected updated event: %+v", env.Event)
	}

	env, err = normalizer.Normalize(marshalEvent(t, "evt_2", "customer.subscription.deleted", map[string]any{
		"id":       "sub_456",
		"customer": "cus_123",
	}))
	if err != nil {
		t.Fatalf("normalize deleted: %v", err)
	}
	deleted, ok := env.Event.(domain.SubscriptionDeleted)
	if !ok || deleted.CustomerRef != "cus_123" || deleted.Email != "" {
		t.Fatalf("unexpected deleted event: %+v", env.Event)
	}
}

func TestNormalizeUnrecognizedType(t *testing.T) {
	normalizer := &Normalizer{webhookSecret: "whsec_test"}
	env, err := normalizer.Normalize(marshalEvent(t, "evt_1", "customer.updated", map[string]any{}))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	got, ok := env.Event.(domain.Unrecognized)
	if !ok || got.ProviderType != "customer.updated" {
		t.Fatalf("expected Unrecognized, got %+v", env.Event)
	}
}

func TestNormalizeMalformedPayload(t *testing.T) {
	normalizer := &Normalizer{webhookSecret: "whsec_test"}

	if _, err := normalizer.Normalize([]byte("{not json")); !errors.Is(err, domain.ErrMalformedEvent) {
		t.Fatalf("expected malformed event error, got %v", err)
	}

	if _, err := normalizer.Normalize([]byte(`{"type":"invoice.paid"}`)); !errors.Is(err, domain.ErrMalformedEvent) {
		t.Fatalf("expected malformed event error for missing id, got %v", err)
	}

	payload := []byte(`{"id":"evt_1","type":"invoice.paid","data":{"object":[1,2]}}`)
	if _, err := normalizer.Normalize(payload); !errors.Is(err, domain.ErrMalformedEvent) {
		t.Fatalf("expected malformed event error for bad object, got %v", err)
	}
}

func marshalEvent(t *testing.T, id, eventType string, object map[string]any) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":      id,
		"type":    eventType,
		"created": time.Now().Unix(),
		"data":    map[string]any{"object": object},
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return payload
}

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}
