package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// stripeAPIBase is the default Stripe API base URL. Overridable in tests.
const stripeAPIBase = "https://api.stripe.com"

// ProviderSubscription is the provider-side view of a subscription, fetched
// on renewal events. CurrentPeriodEnd is unix seconds, zero when the
// provider sent none.
type ProviderSubscription struct {
	ID               string
	CustomerID       string
	Status           string
	UserID           string
	Tier             string
	CurrentPeriodEnd int64
}

// ProviderClient reads subscription state from the payment provider.
type ProviderClient interface {
	GetSubscription(ctx context.Context, id string) (*ProviderSubscription, error)
}

// StripeClient implements ProviderClient against the Stripe REST API with a
// minimal payload shape, keeping the client stable across provider API
// versions.
type StripeClient struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

// NewStripeClient creates a Stripe-backed provider client.
func NewStripeClient(apiKey string) *StripeClient {
	return NewStripeClientWithBaseURL(apiKey, stripeAPIBase, &http.Client{Timeout: 20 * time.Second})
}

// NewStripeClientWithBaseURL allows overriding the API base URL and HTTP
// client, primarily for tests against httptest servers.
func NewStripeClientWithBaseURL(apiKey, baseURL string, httpClient *http.Client) *StripeClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &StripeClient{
		httpClient: httpClient,
		apiKey:     apiKey,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
	}
}

func (c *StripeClient) GetSubscription(ctx context.Context, id string) (*ProviderSubscription, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("subscription id is required")
	}

	endpoint := c.baseURL + "/v1/subscriptions/" + url.PathEscape(id)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build subscription request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch subscription %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("subscription %s not found", id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stripe: unexpected status %d fetching subscription %s", resp.StatusCode, id)
	}

	var data subscriptionData
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode subscription %s: %w", id, err)
	}

	return &ProviderSubscription{
		ID:               data.ID,
		CustomerID:       data.Customer,
		Status:           data.Status,
		UserID:           data.Metadata["user_id"],
		Tier:             data.Metadata["tier"],
		CurrentPeriodEnd: data.CurrentPeriodEnd,
	}, nil
}
