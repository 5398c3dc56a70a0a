// Package prediction implements the HTTP client for the hosted AI
// prediction endpoint.
package prediction

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"resty.dev/v3"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/domain/chaterrors"
	"tutorchat/internal/infrastructure/observability"
)

// Client posts prediction requests over HTTPS. Failures are classified
// through the chaterrors taxonomy so the retry executor can tell transient
// faults from rejections.
type Client struct {
	client *resty.Client
	url    string
	logger zerolog.Logger
}

// NewClient creates a prediction client. timeout bounds the transport;
// per-attempt deadlines arrive via the request context.
func NewClient(predictionURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	return &Client{
		client: client,
		url:    predictionURL,
		logger: logger,
	}
}

// Predict dispatches one prediction call.
func (c *Client) Predict(ctx context.Context, req chat.PredictionRequest) (*chat.PredictionResponse, error) {
	ctx, span := observability.StartSpan(ctx, "prediction", "prediction.predict")
	defer span.End()
	observability.AddSpanAttributes(ctx,
		attribute.String("conversation.id", req.ConversationID),
	)

	var result chat.PredictionResponse

	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post(c.url)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		wrapped := chaterrors.TransientNetwork("prediction call failed", err)
		observability.RecordError(ctx, wrapped)
		return nil, wrapped
	}

	if resp.IsError() {
		c.logger.Warn().
			Int("status", resp.StatusCode()).
			Str("conversation_id", req.ConversationID).
			Msg("prediction endpoint returned error")
		wrapped := chaterrors.FromHTTPStatus(resp.StatusCode(), resp.String())
		observability.RecordError(ctx, wrapped)
		return nil, wrapped
	}

	// A 2xx with no text is a data-shape bug, not a transient fault;
	// retrying would only mask it.
	if result.Text == "" {
		return nil, chaterrors.RequestRejected("prediction response missing text", nil)
	}

	return &result, nil
}
