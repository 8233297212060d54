package paymongo

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://api.paymongo.com/v1"
	responseBodyReadLimit int64 = 2048
)

// Source statuses returned by the provider.
const (
	SourceStatusPending    = "pending"
	SourceStatusChargeable = "chargeable"
	SourceStatusPaid       = "paid"
	SourceStatusCancelled  = "cancelled"
	SourceStatusExpired    = "expired"
)

var errSecretKeyRequired = errors.New("paymongo secret key is required")

// Client calls the PayMongo sources API used for hosted checkout.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretKey  string
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds the PayMongo client given a secret key.
func NewClient(secretKey string, opts ...Option) (*Client, error) {
	trimmedKey := strings.TrimSpace(secretKey)
	if trimmedKey == "" {
		return nil, errSecretKeyRequired
	}

	client := &Client{
		secretKey:  trimmedKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// CreateSourceRequest describes a hosted-checkout source to create.
type CreateSourceRequest struct {
	AmountCents int64
	Currency    string
	Type        string
	SuccessURL  string
	FailedURL   string
	Description string
}

// Source is the normalized source payload returned by the API.
type Source struct {
	ID          string
	Status      string
	AmountCents int64
	CheckoutURL string
}

type sourceEnvelope struct {
	Data struct {
		ID         string `json:"id"`
		Attributes struct {
			Amount      int64  `json:"amount"`
			Status      string `json:"status"`
			Description string `json:"description"`
			Redirect    struct {
				CheckoutURL string `json:"checkout_url"`
				Success     string `json:"success"`
				Failed      string `json:"failed"`
			} `json:"redirect"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateSource creates a gcash/grab_pay source and returns its checkout URL.
func (c *Client) CreateSource(ctx context.Context, req CreateSourceRequest) (*Source, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paymongo client not configured")
	}
	if req.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source amount must be positive")
	}
	if strings.TrimSpace(req.Type) == "" {
		req.Type = "gcash"
	}
	if strings.TrimSpace(req.Currency) == "" {
		req.Currency = "PHP"
	}

	body := map[string]any{
		"data": map[string]any{
			"attributes": map[string]any{
				"amount":      req.AmountCents,
				"currency":    req.Currency,
				"type":        req.Type,
				"description": req.Description,
				"redirect": map[string]any{
					"success": req.SuccessURL,
					"failed":  req.FailedURL,
				},
			},
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal source request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.buildURL("sources"), bytes.NewReader(payload))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build source request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.SetBasicAuth(c.secretKey, "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute source request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "create source failed")
	}

	var envelope sourceEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode source response")
	}

	return &Source{
		ID:          envelope.Data.ID,
		Status:      envelope.Data.Attributes.Status,
		AmountCents: envelope.Data.Attributes.Amount,
		CheckoutURL: envelope.Data.Attributes.Redirect.CheckoutURL,
	}, nil
}

// GetSource fetches the current state of a source by its provider ID.
func (c *Client) GetSource(ctx context.Context, sourceID string) (*Source, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "paymongo client not configured")
	}
	trimmed := strings.TrimSpace(sourceID)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "source ID is required")
	}

	endpoint := fmt.Sprintf("%s/sources/%s", strings.TrimRight(c.baseURL, "/"), url.PathEscape(trimmed))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build source lookup")
	}
	httpReq.SetBasicAuth(c.secretKey, "")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute source lookup")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment source not found")
	}
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))), "source lookup failed")
	}

	var envelope sourceEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode source lookup response")
	}

	return &Source{
		ID:          envelope.Data.ID,
		Status:      envelope.Data.Attributes.Status,
		AmountCents: envelope.Data.Attributes.Amount,
		CheckoutURL: envelope.Data.Attributes.Redirect.CheckoutURL,
	}, nil
}

func (c *Client) buildURL(path string) string {
	trimmed := strings.TrimRight(c.baseURL, "/")
	path = strings.TrimLeft(path, "/")
	return fmt.Sprintf("%s/%s", trimmed, path)
}
