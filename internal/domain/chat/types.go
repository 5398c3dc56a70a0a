// Package chat orchestrates the send-message pipeline: cached context
// assembly, coalesced and retried dispatch to the AI prediction endpoint,
// and incremental delivery of the answer.
package chat

import (
	"context"
	"fmt"

	"tutorchat/internal/domain/contextwindow"
	"tutorchat/internal/domain/message"
)

// PredictionRequest is the JSON payload sent to the AI prediction endpoint.
type PredictionRequest struct {
	Question       string                             `json:"question"`
	ConversationID string                             `json:"conversationId"`
	UserID         string                             `json:"userId"`
	Context        *contextwindow.ConversationContext `json:"context,omitempty"`
}

// SourceDocument is a reference the model grounded its answer on.
type SourceDocument struct {
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`
	Source  string `json:"source,omitempty"`
}

// PredictionResponse is the JSON payload returned by the AI prediction
// endpoint.
type PredictionResponse struct {
	Text            string            `json:"text"`
	SourceDocuments []SourceDocument  `json:"sourceDocuments,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// PredictionClient dispatches one prediction call. Implementations must
// honor context cancellation and classify failures through the chaterrors
// taxonomy.
type PredictionClient interface {
	Predict(ctx context.Context, req PredictionRequest) (*PredictionResponse, error)
}

// MessagePage is one page of conversation history from the store.
type MessagePage struct {
	Data    []message.Message `json:"data"`
	HasMore bool              `json:"has_more"`
	Cursor  string            `json:"cursor,omitempty"`
}

// HistoryStore is the conversation/message store collaborator. The engine
// only ever reads the Data field of a page; pagination state belongs to
// the caller.
type HistoryStore interface {
	GetConversationMessages(ctx context.Context, conversationID string, limit int, cursor string) (*MessagePage, error)
	SendMessage(ctx context.Context, conversationID, userID string, role message.Role, content string) (*message.Message, error)
}

// SendRequest is one user turn to forward to the assistant. Content is
// assumed already sanitized upstream.
type SendRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Question       string `json:"question"`
}

// Key derives the coalescing key for the request: identical questions from
// the same user in the same conversation share one in-flight call.
func (r SendRequest) Key() string {
	return fmt.Sprintf("%s|%s|%s", r.Question, r.ConversationID, r.UserID)
}

// Reply is the settled outcome of a send. Text holds the full answer, or
// the committed partial when the stream was stopped mid-flight.
type Reply struct {
	MessageID       string           `json:"message_id"`
	ConversationID  string           `json:"conversation_id"`
	Text            string           `json:"text"`
	SourceDocuments []SourceDocument `json:"source_documents,omitempty"`
	Stopped         bool             `json:"stopped"`
	Coalesced       bool             `json:"coalesced"`
}
