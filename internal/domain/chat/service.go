package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tutorchat/internal/domain/chaterrors"
	"tutorchat/internal/domain/contextwindow"
	"tutorchat/internal/domain/message"
	"tutorchat/internal/domain/retry"
	"tutorchat/internal/domain/status"
	"tutorchat/internal/infrastructure/metrics"
	"tutorchat/internal/utils/ttlcache"
)

const (
	// DefaultHistoryFetchLimit bounds how much history one context build
	// pulls from the store.
	DefaultHistoryFetchLimit = 200

	// persistTimeout bounds the post-stream persistence handoff, which
	// runs detached from the (possibly cancelled) stream context.
	persistTimeout = 5 * time.Second
)

// ServiceParams carries the constructor-injected collaborators of the
// chat service. There is no process-wide state: tests build a fresh
// service with fresh cache and coalescer instances.
type ServiceParams struct {
	Builder           *contextwindow.Builder
	BuildOptions      contextwindow.Options
	ContextCache      *ttlcache.Cache[string, *contextwindow.ConversationContext]
	Prediction        PredictionClient
	History           HistoryStore
	Streamer          *Streamer
	RetryPolicy       retry.Policy
	HistoryFetchLimit int
	Logger            zerolog.Logger
}

// Service owns the send-message pipeline.
type Service struct {
	builder           *contextwindow.Builder
	buildOpts         contextwindow.Options
	contextCache      *ttlcache.Cache[string, *contextwindow.ConversationContext]
	coalescer         *Coalescer[*PredictionResponse]
	prediction        PredictionClient
	history           HistoryStore
	streamer          *Streamer
	retryPolicy       retry.Policy
	historyFetchLimit int
	logger            zerolog.Logger
}

// NewService wires the pipeline together.
func NewService(p ServiceParams) *Service {
	if p.HistoryFetchLimit <= 0 {
		p.HistoryFetchLimit = DefaultHistoryFetchLimit
	}
	if p.ContextCache == nil {
		p.ContextCache = ttlcache.New[string, *contextwindow.ConversationContext]()
	}
	if p.Streamer == nil {
		p.Streamer = NewStreamer(DefaultChunkDelay)
	}
	return &Service{
		builder:           p.Builder,
		buildOpts:         p.BuildOptions,
		contextCache:      p.ContextCache,
		coalescer:         NewCoalescer[*PredictionResponse](),
		prediction:        p.Prediction,
		history:           p.History,
		streamer:          p.Streamer,
		retryPolicy:       p.RetryPolicy,
		historyFetchLimit: p.HistoryFetchLimit,
		logger:            p.Logger,
	}
}

// ConversationContext returns the bounded context for a conversation,
// serving from the TTL cache within the freshness window. A history-store
// failure degrades to an empty context so the send can still proceed;
// degraded contexts are not cached.
func (s *Service) ConversationContext(ctx context.Context, conversationID string) *contextwindow.ConversationContext {
	if cached, ok := s.contextCache.Get(conversationID); ok {
		metrics.ContextCacheHitsTotal.Inc()
		return cached
	}
	metrics.ContextCacheMissesTotal.Inc()

	page, err := s.history.GetConversationMessages(ctx, conversationID, s.historyFetchLimit, "")
	if err != nil {
		wrapped := chaterrors.ContextUnavailable("fetch conversation history", err)
		s.logger.Warn().
			Err(wrapped).
			Str("conversation_id", conversationID).
			Msg("context assembly degraded to empty context")
		return contextwindow.EmptyContext(conversationID)
	}

	built := s.builder.BuildContext(conversationID, page.Data, s.buildOpts)
	metrics.ContextsBuiltTotal.Inc()
	s.contextCache.Set(conversationID, built)
	return built
}

// InvalidateContext drops the cached context for a conversation. Called
// whenever history changes underneath it.
func (s *Service) InvalidateContext(conversationID string) {
	s.contextCache.Delete(conversationID)
}

// SendMessage runs the full pipeline and blocks until the complete answer
// is available. The assistant turn is persisted before returning.
func (s *Service) SendMessage(ctx context.Context, req SendRequest) (*Reply, error) {
	lc, err := s.begin(req)
	if err != nil {
		return nil, err
	}

	s.persistUserTurn(ctx, req)
	convCtx := s.ConversationContext(ctx, req.ConversationID)

	resp, shared, err := s.dispatch(ctx, req, convCtx, lc)
	if err != nil {
		lc.to(status.StatusFailed)
		return nil, err
	}

	lc.to(status.StatusStreaming)
	reply := s.commit(ctx, req, resp.Text, resp.SourceDocuments, false, shared)
	lc.to(status.StatusCompleted)
	return reply, nil
}

// StreamMessage runs the pipeline and returns once the prediction call has
// settled; the answer is then delivered incrementally on Stream.Chunks.
func (s *Service) StreamMessage(ctx context.Context, req SendRequest) (*Stream, error) {
	lc, err := s.begin(req)
	if err != nil {
		return nil, err
	}

	s.persistUserTurn(ctx, req)
	convCtx := s.ConversationContext(ctx, req.ConversationID)

	resp, shared, err := s.dispatch(ctx, req, convCtx, lc)
	if err != nil {
		lc.to(status.StatusFailed)
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)
	out := make(chan Chunk)
	st := &Stream{
		Chunks:  out,
		cancel:  cancel,
		settled: make(chan struct{}),
		lc:      lc,
	}

	lc.to(status.StatusStreaming)
	metrics.StreamsTotal.Inc()
	go s.pump(streamCtx, st, out, req, resp, shared)
	return st, nil
}

// begin validates the request and opens its lifecycle.
func (s *Service) begin(req SendRequest) (*lifecycle, error) {
	if strings.TrimSpace(req.Question) == "" ||
		req.ConversationID == "" || req.UserID == "" {
		return nil, chaterrors.RequestRejected("question, conversation_id and user_id are required", nil)
	}
	lc := newLifecycle(s.logger, req.ConversationID)
	lc.to(status.StatusDispatching)
	return lc, nil
}

// dispatch issues the prediction call through the coalescer and the retry
// executor. Identical concurrent requests share one underlying call.
func (s *Service) dispatch(ctx context.Context, req SendRequest, convCtx *contextwindow.ConversationContext, lc *lifecycle) (*PredictionResponse, bool, error) {
	payload := PredictionRequest{
		Question:       req.Question,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Context:        convCtx,
	}

	resp, shared, err := s.coalescer.Dispatch(ctx, req.Key(), func(ctx context.Context) (*PredictionResponse, error) {
		lc.to(status.StatusRetrying)
		return retry.ExecuteWithResult(ctx, s.retryPolicy, func(ctx context.Context, attempt int) (*PredictionResponse, error) {
			if attempt > 0 {
				metrics.PredictionRetriesTotal.Inc()
				s.logger.Info().
					Int("attempt", attempt).
					Str("conversation_id", req.ConversationID).
					Msg("retrying prediction call")
			}
			return s.prediction.Predict(ctx, payload)
		})
	})
	if shared {
		lc.to(status.StatusCoalesced)
		metrics.CoalescedRequestsTotal.Inc()
	}
	if err != nil {
		metrics.PredictionRequestsTotal.WithLabelValues("error").Inc()
		return nil, shared, err
	}
	metrics.PredictionRequestsTotal.WithLabelValues("ok").Inc()
	return resp, shared, nil
}

// pump forwards streamer chunks to the caller, then settles the stream:
// whatever was delivered is committed as the assistant turn, whether the
// stream ran to completion or was stopped mid-flight.
func (s *Service) pump(streamCtx context.Context, st *Stream, out chan<- Chunk, req SendRequest, resp *PredictionResponse, shared bool) {
	var delivered []Chunk
	for chunk := range s.streamer.Stream(streamCtx, resp.Text) {
		select {
		case out <- chunk:
			delivered = append(delivered, chunk)
		case <-streamCtx.Done():
		}
	}

	stopped := streamCtx.Err() != nil && len(delivered) < len(strings.Fields(resp.Text))
	text := Reassemble(delivered)
	if stopped {
		metrics.StreamsStoppedTotal.Inc()
	}

	// Persistence runs detached: the stream context may already be dead.
	persistCtx, cancelPersist := context.WithTimeout(context.Background(), persistTimeout)
	defer cancelPersist()

	st.reply = s.commit(persistCtx, req, text, resp.SourceDocuments, stopped, shared)
	if stopped {
		st.lc.to(status.StatusStopped)
	} else {
		st.lc.to(status.StatusCompleted)
	}
	close(st.settled)
	close(out)
}

// commit persists the assistant turn and invalidates the cached context.
func (s *Service) commit(ctx context.Context, req SendRequest, text string, docs []SourceDocument, stopped, shared bool) *Reply {
	reply := &Reply{
		ConversationID:  req.ConversationID,
		Text:            text,
		SourceDocuments: docs,
		Stopped:         stopped,
		Coalesced:       shared,
	}

	if text != "" {
		msg, err := s.history.SendMessage(ctx, req.ConversationID, req.UserID, message.RoleAssistant, text)
		if err != nil {
			s.logger.Error().
				Err(err).
				Str("conversation_id", req.ConversationID).
				Msg("failed to persist assistant turn")
		} else {
			reply.MessageID = msg.ID
		}
	}

	s.InvalidateContext(req.ConversationID)
	return reply
}

// persistUserTurn stores the incoming user message. Store failures are
// absorbed: the turn still goes to the model even if bookkeeping lags.
func (s *Service) persistUserTurn(ctx context.Context, req SendRequest) {
	if _, err := s.history.SendMessage(ctx, req.ConversationID, req.UserID, message.RoleUser, req.Question); err != nil {
		s.logger.Warn().
			Err(err).
			Str("conversation_id", req.ConversationID).
			Msg("failed to persist user turn")
	}
}

// ===============================================
// Stream handle
// ===============================================

// Stream is the caller's handle on one in-flight streamed reply.
type Stream struct {
	// Chunks delivers the answer incrementally. It closes when delivery
	// completes or the stream is stopped.
	Chunks <-chan Chunk

	cancel  context.CancelFunc
	settled chan struct{}
	reply   *Reply
	lc      *lifecycle
}

// Stop cancels further chunk delivery. The chunks delivered so far stand
// as the committed partial reply.
func (st *Stream) Stop() {
	st.cancel()
}

// Reply blocks until the stream has settled and returns the committed
// reply.
func (st *Stream) Reply() *Reply {
	<-st.settled
	return st.reply
}

// Status returns the stream's current lifecycle state.
func (st *Stream) Status() status.RequestStatus {
	return st.lc.current()
}

// ===============================================
// Request lifecycle tracking
// ===============================================

type lifecycle struct {
	mu             sync.Mutex
	state          status.RequestStatus
	requestID      string
	conversationID string
	logger         zerolog.Logger
}

func newLifecycle(logger zerolog.Logger, conversationID string) *lifecycle {
	return &lifecycle{
		state:          status.StatusIdle,
		requestID:      uuid.NewString(),
		conversationID: conversationID,
		logger:         logger,
	}
}

// to advances the state machine, ignoring transitions the machine forbids
// (a coalesced follower may observe states out of order with the leader).
func (l *lifecycle) to(target status.RequestStatus) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next, err := l.state.TransitionTo(target)
	if err != nil {
		l.logger.Debug().
			Str("request_id", l.requestID).
			Str("from", l.state.String()).
			Str("to", target.String()).
			Msg("skipping invalid status transition")
		return
	}
	l.state = next
	l.logger.Debug().
		Str("request_id", l.requestID).
		Str("conversation_id", l.conversationID).
		Str("status", next.String()).
		Msg("request status changed")
}

func (l *lifecycle) current() status.RequestStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
