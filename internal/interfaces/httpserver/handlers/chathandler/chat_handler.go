// Package chathandler exposes the conversation engine over HTTP.
package chathandler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/domain/chaterrors"
	"tutorchat/internal/interfaces/httpserver/middlewares"
)

const doneMarker = "[DONE]"

// ChatHandler serves the send-message endpoints.
type ChatHandler struct {
	service *chat.Service
	logger  zerolog.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(service *chat.Service, logger zerolog.Logger) *ChatHandler {
	return &ChatHandler{service: service, logger: logger}
}

type sendMessageRequest struct {
	ConversationID string `json:"conversation_id" binding:"required"`
	UserID         string `json:"user_id" binding:"required"`
	Question       string `json:"question" binding:"required"`
}

func (r sendMessageRequest) toDomain() chat.SendRequest {
	return chat.SendRequest{
		ConversationID: r.ConversationID,
		UserID:         r.UserID,
		Question:       r.Question,
	}
}

// SendMessage handles POST /v1/chat/messages: blocks until the complete
// answer is available and returns it as one JSON reply.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reply, err := h.service.SendMessage(c.Request.Context(), req.toDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, reply)
}

// StreamMessage handles POST /v1/chat/messages/stream: delivers the answer
// as SSE chunks. A dropped client connection stops the stream; whatever
// was delivered by then is committed as the assistant turn.
func (h *ChatHandler) StreamMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stream, err := h.service.StreamMessage(c.Request.Context(), req.toDomain())
	if err != nil {
		h.respondError(c, err)
		return
	}

	flusher, ok := middlewares.PrepareSSE(c)
	if !ok {
		stream.Stop()
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming unsupported"})
		return
	}

	clientGone := c.Request.Context().Done()
	for chunk := range stream.Chunks {
		select {
		case <-clientGone:
			stream.Stop()
		default:
		}
		payload, err := json.Marshal(chunk)
		if err != nil {
			h.logger.Error().Err(err).Msg("marshal stream chunk")
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		flusher.Flush()
	}

	reply := stream.Reply()
	payload, err := json.Marshal(reply)
	if err == nil {
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", doneMarker)
	flusher.Flush()
}

// InvalidateContext handles DELETE /v1/conversations/:id/context.
func (h *ChatHandler) InvalidateContext(c *gin.Context) {
	conversationID := c.Param("id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation id required"})
		return
	}
	h.service.InvalidateContext(conversationID)
	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}

// respondError maps the engine's error taxonomy onto HTTP statuses. The
// caller sees a single terminal failure, never the individual retry
// attempts behind it.
func (h *ChatHandler) respondError(c *gin.Context, err error) {
	var chatErr *chaterrors.ChatError
	if errors.As(err, &chatErr) {
		switch chatErr.Kind {
		case chaterrors.KindRequestRejected:
			c.JSON(http.StatusBadRequest, gin.H{"error": chatErr.Message})
			return
		case chaterrors.KindTransientNetwork:
			c.JSON(http.StatusBadGateway, gin.H{"error": "assistant is unavailable, please try again"})
			return
		}
	}
	h.logger.Error().Err(err).Msg("send message failed")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}
