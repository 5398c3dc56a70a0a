// Package contextwindow turns an unbounded conversation history into the
// bounded, ranked working set handed to the AI prediction endpoint.
package contextwindow

import (
	"time"

	"tutorchat/internal/domain/message"
)

// ContextMessage is a read-only projection of a stored message, used only
// for AI calls. It is recomputed on every context build and never persisted.
type ContextMessage struct {
	ID             string       `json:"id"`
	Role           message.Role `json:"role"`
	Content        string       `json:"content"`
	Timestamp      time.Time    `json:"timestamp"`
	RelevanceScore float64      `json:"relevance_score"`
	Tokens         int          `json:"tokens"`
}

// ContextMetadata describes how a context was assembled.
type ContextMetadata struct {
	MessageCount          int     `json:"message_count"`
	AverageRelevanceScore float64 `json:"average_relevance_score"`
	ContextWindowSize     int     `json:"context_window_size"`
}

// ConversationContext is the bounded working set for one AI call. Messages
// are always in chronological ascending order and the token total never
// exceeds the configured budget. Contexts are rebuilt wholesale, never
// patched in place.
type ConversationContext struct {
	ConversationID string           `json:"conversation_id"`
	Messages       []ContextMessage `json:"messages"`
	TotalTokens    int              `json:"total_tokens"`
	Summary        string           `json:"summary,omitempty"`
	LastUpdated    time.Time        `json:"last_updated"`
	Metadata       ContextMetadata  `json:"metadata"`
}

// EmptyContext returns the degraded context used when history enrichment
// fails: the send still proceeds, just without prior turns.
func EmptyContext(conversationID string) *ConversationContext {
	return &ConversationContext{
		ConversationID: conversationID,
		Messages:       []ContextMessage{},
		LastUpdated:    time.Now().UTC(),
	}
}
