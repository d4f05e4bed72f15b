package directory

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const listPageSize = 200

// Guest is a transient directory record for one guest-tier account. Guests
// are not stored locally; they are fetched fresh on every audit pass.
type Guest struct {
	ID               string
	Name             string
	ProfileUpdatedAt time.Time
}

type memberRecord struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Deleted           bool   `json:"deleted"`
	IsBot             bool   `json:"is_bot"`
	IsRestricted      bool   `json:"is_restricted"`
	IsUltraRestricted bool   `json:"is_ultra_restricted"`
	Updated           int64  `json:"updated"`
}

type listUsersResponse struct {
	apiEnvelope
	Members          []memberRecord `json:"members"`
	ResponseMetadata struct {
		NextCursor string `json:"next_cursor"`
	} `json:"response_metadata"`
}

// ListGuestAccounts pages through the full roster and returns every
// guest-tier account. Pagination runs until the server stops returning a
// continuation cursor; there is deliberately no page cap, since large
// workspaces span many pages and a truncated roster would silently skip
// guests.
func (c *Client) ListGuestAccounts(ctx context.Context, token string) ([]Guest, error) {
	var guests []Guest
	cursor := ""
	for {
		query := url.Values{}
		query.Set("limit", strconv.Itoa(listPageSize))
		if cursor != "" {
			query.Set("cursor", cursor)
		}

		var resp listUsersResponse
		if err := c.callAPI(ctx, http.MethodGet, "/users.list", token, query, nil, &resp); err != nil {
			return nil, err
		}

		for _, m := range resp.Members {
			if m.Deleted || m.IsBot {
				continue
			}
			if !m.IsRestricted && !m.IsUltraRestricted {
				continue
			}
			guests = append(guests, Guest{
				ID:               m.ID,
				Name:             m.Name,
				ProfileUpdatedAt: time.Unix(m.Updated, 0),
			})
		}

		cursor = strings.TrimSpace(resp.ResponseMetadata.NextCursor)
		if cursor == "" {
			return guests, nil
		}
	}
}

type presenceResponse struct {
	apiEnvelope
	Presence string `json:"presence"`
}

// GetPresence returns "active" or "away". Presence is a weak, optional
// signal, so any upstream failure degrades to "away" instead of
// propagating.
func (c *Client) GetPresence(ctx context.Context, token, userID string) string {
	query := url.Values{}
	query.Set("user", userID)

	var resp presenceResponse
	if err := c.callAPI(ctx, http.MethodGet, "/users.getPresence", token, query, nil, &resp); err != nil {
		return "away"
	}
	if resp.Presence == "active" {
		return "active"
	}
	return "away"
}

type listChannelsResponse struct {
	apiEnvelope
	Channels []struct {
		ID string `json:"id"`
	} `json:"channels"`
}

type historyResponse struct {
	apiEnvelope
	Messages []struct {
		User string `json:"user"`
		TS   string `json:"ts"`
	} `json:"messages"`
}

// RecentMessageTimestamp scans a bounded number of channels, each with a
// bounded message window, and returns the timestamp of the first message
// authored by the given user. It stops at the first hit. This is the most
// expensive signal and callers must only reach for it after the cheaper
// signals have failed to classify a guest.
func (c *Client) RecentMessageTimestamp(ctx context.Context, token, userID string) (*time.Time, error) {
	channelLimit := c.ChannelScanLimit
	if channelLimit <= 0 {
		channelLimit = defaultChannelScanLimit
	}
	messageLimit := c.MessageScanLimit
	if messageLimit <= 0 {
		messageLimit = defaultMessageScanLimit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(channelLimit))
	query.Set("exclude_archived", "true")

	var channels listChannelsResponse
	if err := c.callAPI(ctx, http.MethodGet, "/conversations.list", token, query, nil, &channels); err != nil {
		return nil, err
	}

	for _, ch := range channels.Channels {
		hq := url.Values{}
		hq.Set("channel", ch.ID)
		hq.Set("limit", strconv.Itoa(messageLimit))

		var history historyResponse
		if err := c.callAPI(ctx, http.MethodGet, "/conversations.history", token, hq, nil, &history); err != nil {
			return nil, err
		}
		for _, msg := range history.Messages {
			if msg.User != userID {
				continue
			}
			if ts, ok := parseMessageTS(msg.TS); ok {
				return &ts, nil
			}
		}
	}
	return nil, nil
}

// parseMessageTS converts a "seconds.fraction" wire timestamp.
func parseMessageTS(raw string) (time.Time, bool) {
	secs := raw
	if i := strings.IndexByte(raw, '.'); i >= 0 {
		secs = raw[:i]
	}
	n, err := strconv.ParseInt(secs, 10, 64)
	if err != nil || n <= 0 {
		return time.Time{}, false
	}
	return time.Unix(n, 0), true
}
