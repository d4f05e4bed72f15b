package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultMaxRetries       = 3
	defaultRateLimitWait    = 10 * time.Second
	defaultNetworkWait      = 2 * time.Second
	defaultChannelScanLimit = 10
	defaultMessageScanLimit = 50
)

// ErrRetriesExhausted is returned once a call has been rate limited or has
// hit network errors more times than the retry ceiling allows.
var ErrRetriesExhausted = errors.New("directory: retries exhausted")

// Client talks to the workspace directory API. Every endpoint goes through
// the same callAPI helper so rate-limit backoff and network retry behavior
// is uniform instead of being reimplemented per call.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	// MaxRetries is the retry ceiling shared by rate-limit and network
	// failures. RateLimitWait applies when the server sends no Retry-After
	// hint; NetworkWait is the shorter fixed backoff for transport errors.
	MaxRetries    int
	RateLimitWait time.Duration
	NetworkWait   time.Duration

	// Bounds for the recent-message scan, the most expensive signal.
	ChannelScanLimit int
	MessageScanLimit int
}

// NewClient builds a directory client with production defaults.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL:          strings.TrimRight(baseURL, "/"),
		HTTPClient:       &http.Client{Timeout: 15 * time.Second},
		MaxRetries:       defaultMaxRetries,
		RateLimitWait:    defaultRateLimitWait,
		NetworkWait:      defaultNetworkWait,
		ChannelScanLimit: defaultChannelScanLimit,
		MessageScanLimit: defaultMessageScanLimit,
	}
}

// apiEnvelope is embedded in every directory API response.
type apiEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func (e apiEnvelope) envelope() apiEnvelope { return e }

type enveloped interface {
	envelope() apiEnvelope
}

// callAPI performs one directory API call with the shared retry policy:
// HTTP 429 waits for the server-supplied Retry-After hint (or the default)
// and retries; transport errors wait the shorter fixed backoff and retry;
// both share one retry ceiling, after which the failure propagates.
func (c *Client) callAPI(ctx context.Context, method, path, token string, query url.Values, body, out any) error {
	endpoint := c.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	maxRetries := c.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	for attempt := 0; ; attempt++ {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json; charset=utf-8")
		}

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			if attempt >= maxRetries {
				return fmt.Errorf("%w: %v", ErrRetriesExhausted, err)
			}
			if err := sleepCtx(ctx, c.networkWait()); err != nil {
				return err
			}
			continue
		}

		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt >= maxRetries {
				return fmt.Errorf("%w: rate limited", ErrRetriesExhausted)
			}
			if err := sleepCtx(ctx, c.rateLimitWait(resp.Header.Get("Retry-After"))); err != nil {
				return err
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("directory: %s returned status %d: %s", path, resp.StatusCode, string(respBody))
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("directory: decoding %s response: %w", path, err)
		}
		if env, ok := out.(enveloped); ok && !env.envelope().OK {
			return fmt.Errorf("directory: %s returned error %q", path, env.envelope().Error)
		}
		return nil
	}
}

func (c *Client) rateLimitWait(retryAfter string) time.Duration {
	if secs, err := strconv.Atoi(strings.TrimSpace(retryAfter)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if c.RateLimitWait > 0 {
		return c.RateLimitWait
	}
	return defaultRateLimitWait
}

func (c *Client) networkWait() time.Duration {
	if c.NetworkWait > 0 {
		return c.NetworkWait
	}
	return defaultNetworkWait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
