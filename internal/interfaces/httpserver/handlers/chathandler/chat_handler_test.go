package chathandler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/domain/chaterrors"
	"tutorchat/internal/domain/contextwindow"
	"tutorchat/internal/domain/retry"
	"tutorchat/internal/infrastructure/historystore"
)

type stubPrediction struct {
	text string
	err  error
}

func (s *stubPrediction) Predict(ctx context.Context, req chat.PredictionRequest) (*chat.PredictionResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &chat.PredictionResponse{Text: s.text}, nil
}

func testRouter(prediction chat.PredictionClient) *gin.Engine {
	gin.SetMode(gin.TestMode)

	scorer := contextwindow.NewScorer(contextwindow.DefaultWeights())
	builder := contextwindow.NewBuilder(scorer, contextwindow.NewDigestSummarizer(0), zerolog.Nop())
	service := chat.NewService(chat.ServiceParams{
		Builder:      builder,
		BuildOptions: contextwindow.DefaultOptions(),
		Prediction:   prediction,
		History:      historystore.NewMemoryStore(),
		Streamer:     chat.NewStreamer(time.Millisecond),
		RetryPolicy:  retry.NoRetryPolicy(),
		Logger:       zerolog.Nop(),
	})
	handler := NewChatHandler(service, zerolog.Nop())

	router := gin.New()
	router.POST("/v1/chat/messages", handler.SendMessage)
	router.POST("/v1/chat/messages/stream", handler.StreamMessage)
	router.DELETE("/v1/conversations/:id/context", handler.InvalidateContext)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func TestSendMessageEndpoint(t *testing.T) {
	router := testRouter(&stubPrediction{text: "Constructivism centers the learner."})

	rec := postJSON(router, "/v1/chat/messages",
		`{"conversation_id":"conv_1","user_id":"user_1","question":"What is constructivism?"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var reply chat.Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if reply.Text != "Constructivism centers the learner." {
		t.Errorf("reply text = %q", reply.Text)
	}
	if reply.ConversationID != "conv_1" {
		t.Errorf("conversation id = %q", reply.ConversationID)
	}
}

func TestSendMessageEndpointValidation(t *testing.T) {
	router := testRouter(&stubPrediction{text: "unused"})

	tests := []struct {
		name string
		body string
	}{
		{name: "empty body", body: `{}`},
		{name: "missing question", body: `{"conversation_id":"c","user_id":"u"}`},
		{name: "not json", body: `question=hi`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postJSON(router, "/v1/chat/messages", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestSendMessageEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "rejection maps to 400",
			err:      chaterrors.RequestRejected("bad payload", nil),
			expected: http.StatusBadRequest,
		},
		{
			name:     "transient maps to 502",
			err:      chaterrors.TransientNetwork("upstream down", nil),
			expected: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := testRouter(&stubPrediction{err: tt.err})
			rec := postJSON(router, "/v1/chat/messages",
				`{"conversation_id":"conv_1","user_id":"user_1","question":"hi"}`)
			if rec.Code != tt.expected {
				t.Errorf("status = %d, want %d", rec.Code, tt.expected)
			}
		})
	}
}

func TestStreamMessageEndpoint(t *testing.T) {
	router := testRouter(&stubPrediction{text: "alpha beta gamma"})

	rec := postJSON(router, "/v1/chat/messages/stream",
		`{"conversation_id":"conv_1","user_id":"user_1","question":"stream it"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q, want text/event-stream", ct)
	}

	body := rec.Body.String()
	if !strings.HasSuffix(strings.TrimSpace(body), "data: [DONE]") {
		t.Errorf("stream should end with the done marker, got %q", body)
	}

	// Three chunk events, one reply event, one done marker.
	events := strings.Split(strings.TrimSpace(body), "\n\n")
	if len(events) != 5 {
		t.Fatalf("got %d SSE events, want 5: %q", len(events), body)
	}

	var first chat.Chunk
	if err := json.Unmarshal([]byte(strings.TrimPrefix(events[0], "data: ")), &first); err != nil {
		t.Fatalf("unmarshal first chunk: %v", err)
	}
	if first.Index != 0 || first.Text != "alpha" {
		t.Errorf("first chunk = %+v", first)
	}

	var reply chat.Reply
	if err := json.Unmarshal([]byte(strings.TrimPrefix(events[3], "data: ")), &reply); err != nil {
		t.Fatalf("unmarshal reply event: %v", err)
	}
	if reply.Text != "alpha beta gamma" || reply.Stopped {
		t.Errorf("reply event = %+v", reply)
	}
}

func TestInvalidateContextEndpoint(t *testing.T) {
	router := testRouter(&stubPrediction{text: "unused"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/conversations/conv_1/context", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
