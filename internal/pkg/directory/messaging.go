package directory

import (
	"context"
	"errors"
	"net/http"
)

type openDMResponse struct {
	apiEnvelope
	Channel struct {
		ID string `json:"id"`
	} `json:"channel"`
}

// OpenDM opens (or resumes) a direct-message conversation with a user and
// returns its channel id.
func (c *Client) OpenDM(ctx context.Context, token, userID string) (string, error) {
	body := map[string]any{"users": []string{userID}}

	var resp openDMResponse
	if err := c.callAPI(ctx, http.MethodPost, "/conversations.open", token, nil, body, &resp); err != nil {
		return "", err
	}
	if resp.Channel.ID == "" {
		return "", errors.New("directory: conversations.open returned no channel id")
	}
	return resp.Channel.ID, nil
}

type postMessageResponse struct {
	apiEnvelope
}

// PostMessage posts a structured message to a channel. Blocks carry the
// interactive payload built by the notify package.
func (c *Client) PostMessage(ctx context.Context, token, channelID, text string, blocks any) error {
	body := map[string]any{
		"channel": channelID,
		"text":    text,
	}
	if blocks != nil {
		body["blocks"] = blocks
	}

	var resp postMessageResponse
	return c.callAPI(ctx, http.MethodPost, "/chat.postMessage", token, nil, body, &resp)
}
