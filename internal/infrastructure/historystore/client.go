// Package historystore provides the conversation/message store
// collaborators: an HTTP client for the remote document store and an
// in-memory implementation for tests and local runs.
package historystore

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/domain/chaterrors"
	"tutorchat/internal/domain/message"
)

// Client talks to the remote message store over HTTP.
type Client struct {
	client  *resty.Client
	baseURL string
	logger  zerolog.Logger
}

// NewClient creates a history store client.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{
		client:  client,
		baseURL: baseURL,
		logger:  logger,
	}
}

type sendMessagePayload struct {
	UserID  string       `json:"user_id"`
	Role    message.Role `json:"role"`
	Content string       `json:"content"`
}

// GetConversationMessages fetches one page of a conversation's history.
func (c *Client) GetConversationMessages(ctx context.Context, conversationID string, limit int, cursor string) (*chat.MessagePage, error) {
	var page chat.MessagePage

	req := c.client.R().
		SetContext(ctx).
		SetResult(&page).
		SetQueryParam("limit", strconv.Itoa(limit))
	if cursor != "" {
		req.SetQueryParam("cursor", cursor)
	}

	resp, err := req.Get(fmt.Sprintf("%s/conversations/%s/messages", c.baseURL, conversationID))
	if err != nil {
		return nil, chaterrors.TransientNetwork("fetch conversation messages", err)
	}
	if resp.IsError() {
		return nil, chaterrors.FromHTTPStatus(resp.StatusCode(), resp.String())
	}
	return &page, nil
}

// SendMessage persists one message to the store.
func (c *Client) SendMessage(ctx context.Context, conversationID, userID string, role message.Role, content string) (*message.Message, error) {
	var stored message.Message

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(sendMessagePayload{UserID: userID, Role: role, Content: content}).
		SetResult(&stored).
		Post(fmt.Sprintf("%s/conversations/%s/messages", c.baseURL, conversationID))
	if err != nil {
		return nil, chaterrors.TransientNetwork("persist message", err)
	}
	if resp.IsError() {
		return nil, chaterrors.FromHTTPStatus(resp.StatusCode(), resp.String())
	}
	return &stored, nil
}
