// AngelaMos | 2026
// provider_test.go

package purchase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/carterperez-dev/paywall-blog/internal/config"
	"github.com/carterperez-dev/paywall-blog/internal/content"
)

const testWebhookSecret = "whsec_test_secret"

func newTestProvider(baseURL string) *StripeProvider {
	return NewStripeProvider(config.PurchaseConfig{
		APIKey:             "sk_test_key",
		APIBaseURL:         baseURL,
		WebhookSecret:      testWebhookSecret,
		SignatureTolerance: 5 * time.Minute,
	}, nil)
}

// signPayload builds the Stripe-Signature header Stripe would send for
// payload at timestamp.
func signPayload(secret string, timestamp time.Time, payload []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: timestamp,
	}).Header
}

func completedPayload(t *testing.T, eventID string, ref Reference, paymentStatus string) []byte {
	t.Helper()

	payload, err := json.Marshal(map[string]any{
		"id":   eventID,
		"type": EventCheckoutCompleted,
		"data": map[string]any{
			"object": map[string]any{
				"client_reference_id": ref.Encode(),
				"amount_total":        499,
				"currency":            "usd",
				"payment_status":      paymentStatus,
			},
		},
	})
	require.NoError(t, err)
	return payload
}

func TestReferenceRoundTrip(t *testing.T) {
	t.Parallel()

	ref := Reference{UserID: 42, ArticleID: "deep-dive"}
	got, err := DecodeReference(ref.Encode())
	require.NoError(t, err)
	assert.Equal(t, ref, got)

	for _, bad := range []string{"", "!!!", "bm90LWpzb24", "e30"} {
		_, err := DecodeReference(bad)
		assert.ErrorIs(t, err, ErrInvalidReference, bad)
	}
}

func TestCreateCheckout(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_key", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "usd", r.PostForm.Get("line_items[0][price_data][currency]"))
		assert.Equal(t, "499", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "Deep Dive", r.PostForm.Get("line_items[0][price_data][product_data][name]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "deep-dive", r.PostForm.Get("metadata[article_id]"))
		assert.Equal(t, "https://blog.test/deep.html?success=1", r.PostForm.Get("success_url"))

		ref, err := DecodeReference(r.PostForm.Get("client_reference_id"))
		assert.NoError(t, err)
		assert.Equal(t, uint64(3), ref.UserID)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_1","object":"checkout.session","url":"https://checkout.test/cs_1"}`))
	}))
	defer srv.Close()

	url, err := newTestProvider(srv.URL).CreateCheckout(context.Background(), CheckoutRequest{
		Reference:  Reference{UserID: 3, ArticleID: "deep-dive"},
		Title:      "Deep Dive",
		Price:      content.Price{Amount: 499, Currency: content.USD},
		SuccessURL: "https://blog.test/deep.html?success=1",
		CancelURL:  "https://blog.test/deep.html?success=0",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/cs_1", url)
}

func TestCreateCheckoutProviderError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such price"}}`))
	}))
	defer srv.Close()

	_, err := newTestProvider(srv.URL).CreateCheckout(context.Background(), CheckoutRequest{
		Reference: Reference{UserID: 1, ArticleID: "a"},
		Price:     content.Price{Amount: 100, Currency: content.EUR},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such price")
	assert.Equal(t, int32(1), calls.Load(), "client errors are not retried")
}

func TestParseEventSignature(t *testing.T) {
	t.Parallel()

	p := newTestProvider("")
	ref := Reference{UserID: 1, ArticleID: "deep-dive"}
	payload := completedPayload(t, "evt_1", ref, "paid")
	now := time.Now()

	ev, err := p.ParseEvent(payload, signPayload(testWebhookSecret, now, payload))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", ev.ID)
	assert.Equal(t, EventCheckoutCompleted, ev.Type)
	assert.Equal(t, ref.Encode(), ev.Reference)
	assert.Equal(t, int64(499), ev.Amount)
	assert.Equal(t, "USD", ev.Currency)

	tests := map[string]string{
		"missing header": "",
		"wrong secret":   signPayload("whsec_other", now, payload),
		"stale":          signPayload(testWebhookSecret, now.Add(-time.Hour), payload),
		"no v1":          "t=12345",
		"garbage":        "t=abc,v1=zz",
	}
	for name, header := range tests {
		_, err := p.ParseEvent(payload, header)
		assert.ErrorIs(t, err, ErrInvalidSignature, name)
	}

	unsigned := NewStripeProvider(config.PurchaseConfig{}, nil)
	_, err = unsigned.ParseEvent(payload, signPayload("", now, payload))
	assert.ErrorIs(t, err, ErrInvalidSignature, "no secret configured")

	tampered := append([]byte{}, payload...)
	tampered[len(tampered)-2] = ' '
	_, err = p.ParseEvent(tampered, signPayload(testWebhookSecret, now, payload))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestParseEventShape(t *testing.T) {
	t.Parallel()

	p := newTestProvider("")
	now := time.Now()

	bad := []byte(`{"type":"checkout.session.completed"}`)
	_, err := p.ParseEvent(bad, signPayload(testWebhookSecret, now, bad))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	notJSON := []byte(`not json`)
	_, err = p.ParseEvent(notJSON, signPayload(testWebhookSecret, now, notJSON))
	assert.ErrorIs(t, err, ErrMalformedEvent)

	unpaid := completedPayload(t, "evt_2", Reference{UserID: 1, ArticleID: "a"}, "unpaid")
	ev, err := p.ParseEvent(unpaid, signPayload(testWebhookSecret, now, unpaid))
	require.NoError(t, err)
	assert.Empty(t, ev.Reference)
}
