package controllers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/delacruzbakes/bakeshop-backend/pkg/db/models"
)

type recordingReconciler struct {
	sourceID string
	verified bool
	calls    int
	err      error
}

func (r *recordingReconciler) Reconcile(ctx context.Context, sourceID string, verified bool) (*models.PaymentIntent, error) {
	r.sourceID = sourceID
	r.verified = verified
	r.calls++
	return &models.PaymentIntent{ProviderSourceID: sourceID}, r.err
}

func signPayload(secret, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

const chargeableEvent = `{"data":{"attributes":{"type":"source.chargeable","data":{"id":"src_test_1"}}}}`

func TestPayMongoWebhookTrustsSignedEvents(t *testing.T) {
	secret := "whsk_test"
	reconciler := &recordingReconciler{}
	handler := PayMongoWebhook(reconciler, secret, nil)

	payload := []byte(chargeableEvent)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymongo", strings.NewReader(chargeableEvent))
	req.Header.Set("Paymongo-Signature", fmt.Sprintf("t=12345,li=%s", signPayload(secret, "12345", payload)))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if reconciler.sourceID != "src_test_1" {
		t.Fatalf("unexpected source id: %s", reconciler.sourceID)
	}
	if !reconciler.verified {
		t.Fatal("signed event must be reconciled as verified")
	}
}

func TestPayMongoWebhookFallsBackToPollOnBadSignature(t *testing.T) {
	reconciler := &recordingReconciler{}
	handler := PayMongoWebhook(reconciler, "whsk_test", nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymongo", strings.NewReader(chargeableEvent))
	req.Header.Set("Paymongo-Signature", "t=12345,li=deadbeef")

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if reconciler.verified {
		t.Fatal("unsigned event must not be trusted")
	}
	if reconciler.calls != 1 {
		t.Fatalf("expected one reconcile call, got %d", reconciler.calls)
	}
}

func TestPayMongoWebhookNeverTrustsFailureEvents(t *testing.T) {
	secret := "whsk_test"
	for _, eventType := range []string{"payment.failed", "source.cancelled", "source.expired"} {
		reconciler := &recordingReconciler{}
		handler := PayMongoWebhook(reconciler, secret, nil)

		event := fmt.Sprintf(`{"data":{"attributes":{"type":"%s","data":{"id":"src_test_5"}}}}`, eventType)
		payload := []byte(event)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymongo", strings.NewReader(event))
		req.Header.Set("Paymongo-Signature", fmt.Sprintf("t=12345,li=%s", signPayload(secret, "12345", payload)))

		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)

		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d: %s", eventType, resp.Code, resp.Body.String())
		}
		if reconciler.calls != 1 {
			t.Fatalf("%s: expected one reconcile call, got %d", eventType, reconciler.calls)
		}
		if reconciler.verified {
			t.Fatalf("%s: a signed failure event must not take the trusted-paid path", eventType)
		}
	}
}

func TestPayMongoWebhookExtractsSourceFromPaymentEvents(t *testing.T) {
	reconciler := &recordingReconciler{}
	handler := PayMongoWebhook(reconciler, "", nil)

	event := `{"data":{"attributes":{"type":"payment.paid","data":{"id":"pay_1","attributes":{"source":{"id":"src_test_9"}}}}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymongo", strings.NewReader(event))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if reconciler.sourceID != "src_test_9" {
		t.Fatalf("unexpected source id: %s", reconciler.sourceID)
	}
}

func TestPayMongoWebhookIgnoresUnknownEvents(t *testing.T) {
	reconciler := &recordingReconciler{}
	handler := PayMongoWebhook(reconciler, "", nil)

	event := `{"data":{"attributes":{"type":"link.archived","data":{"id":"src_test_2"}}}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paymongo", strings.NewReader(event))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if reconciler.calls != 0 {
		t.Fatal("unknown events must not reach the reconciler")
	}
}
