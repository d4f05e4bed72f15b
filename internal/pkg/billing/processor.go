package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProcessorClient retrieves objects from the payment processor's REST API.
type ProcessorClient struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// NewProcessorClient builds a processor client.
func NewProcessorClient(baseURL, apiKey string) *ProcessorClient {
	return &ProcessorClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// GetSubscription fetches a subscription object by its external id.
func (c *ProcessorClient) GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionObject, error) {
	id := strings.TrimSpace(subscriptionID)
	if id == "" {
		return nil, errors.New("billing: subscription id is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/subscriptions/"+id, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("billing: subscription lookup failed: status=%d body=%s", resp.StatusCode, string(body))
	}

	var sub SubscriptionObject
	if err := json.Unmarshal(body, &sub); err != nil {
		return nil, fmt.Errorf("billing: decoding subscription %s: %w", id, err)
	}
	if strings.TrimSpace(sub.ID) == "" {
		return nil, fmt.Errorf("billing: subscription lookup for %s returned no id", id)
	}
	return &sub, nil
}
