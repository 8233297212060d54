package paymongo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
)

func TestClientCreateSourceRequest(t *testing.T) {
	const expectedURL = "http://paymongo.test/v1/sources"
	respBody := `{"data":{"id":"src_abc123","attributes":{"amount":250000,"status":"pending","redirect":{"checkout_url":"https://checkout.test/src_abc123"}}}}`

	var capturedURL string
	var capturedAuthUser string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		capturedAuthUser, _, _ = req.BasicAuth()

		bodyBytes, err := io.ReadAll(req.Body)
		if err != nil {
			t.Fatalf("read request body: %v", err)
		}
		var payload struct {
			Data struct {
				Attributes map[string]any `json:"attributes"`
			} `json:"data"`
		}
		if err := json.Unmarshal(bodyBytes, &payload); err != nil {
			t.Fatalf("unmarshal request body: %v", err)
		}
		if payload.Data.Attributes["amount"] != float64(250000) {
			t.Fatalf("unexpected amount %v", payload.Data.Attributes["amount"])
		}
		if payload.Data.Attributes["currency"] != "PHP" {
			t.Fatalf("unexpected currency %v", payload.Data.Attributes["currency"])
		}
		if payload.Data.Attributes["type"] != "gcash" {
			t.Fatalf("unexpected type %v", payload.Data.Attributes["type"])
		}

		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	httpClient := &http.Client{Transport: rt}
	client, err := NewClient("sk_test_key", WithBaseURL("http://paymongo.test/v1"), WithHTTPClient(httpClient))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	source, err := client.CreateSource(context.Background(), CreateSourceRequest{
		AmountCents: 250000,
		SuccessURL:  "https://shop.test/checkout/done",
		FailedURL:   "https://shop.test/checkout/failed",
	})
	if err != nil {
		t.Fatalf("create source: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if capturedAuthUser != "sk_test_key" {
		t.Fatalf("unexpected basic auth user %q", capturedAuthUser)
	}
	if source.ID != "src_abc123" {
		t.Fatalf("unexpected source ID %q", source.ID)
	}
	if source.CheckoutURL != "https://checkout.test/src_abc123" {
		t.Fatalf("unexpected checkout URL %q", source.CheckoutURL)
	}
	if source.Status != SourceStatusPending {
		t.Fatalf("unexpected status %q", source.Status)
	}
}

func TestClientCreateSourceRejectsZeroAmount(t *testing.T) {
	client, err := NewClient("sk_test_key")
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.CreateSource(context.Background(), CreateSourceRequest{AmountCents: 0})
	if err == nil {
		t.Fatal("expected error for zero amount")
	}
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestClientGetSourceRequest(t *testing.T) {
	const expectedURL = "http://paymongo.test/v1/sources/src_abc123"
	respBody := `{"data":{"id":"src_abc123","attributes":{"amount":250000,"status":"chargeable","redirect":{"checkout_url":"https://checkout.test/src_abc123"}}}}`

	var capturedURL string

	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		capturedURL = req.URL.String()
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(respBody)),
			Header:     http.Header{},
		}, nil
	})

	httpClient := &http.Client{Transport: rt}
	client, err := NewClient("sk_test_key", WithBaseURL("http://paymongo.test/v1"), WithHTTPClient(httpClient))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	source, err := client.GetSource(context.Background(), "src_abc123")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if capturedURL != expectedURL {
		t.Fatalf("unexpected URL %q", capturedURL)
	}
	if source.Status != SourceStatusChargeable {
		t.Fatalf("unexpected status %q", source.Status)
	}
}

func TestClientGetSourceNotFound(t *testing.T) {
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Body:       io.NopCloser(strings.NewReader(`{"errors":[{"detail":"No such source"}]}`)),
			Header:     http.Header{},
		}, nil
	})

	client, err := NewClient("sk_test_key", WithBaseURL("http://paymongo.test/v1"), WithHTTPClient(&http.Client{Transport: rt}))
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetSource(context.Background(), "src_missing")
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestNewClientRequiresSecretKey(t *testing.T) {
	if _, err := NewClient("  "); err == nil {
		t.Fatal("expected error for blank secret key")
	}
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}
