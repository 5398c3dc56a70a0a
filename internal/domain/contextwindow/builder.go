package contextwindow

import (
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tutorchat/internal/domain/message"
)

// Options bound a single context build.
type Options struct {
	MaxTokens             int
	MaxMessages           int
	RelevanceThreshold    float64
	IncludeSystemMessages bool
}

// DefaultOptions returns the budgets the engine ships with.
func DefaultOptions() Options {
	return Options{
		MaxTokens:             4000,
		MaxMessages:           20,
		RelevanceThreshold:    0.3,
		IncludeSystemMessages: false,
	}
}

// Builder selects and orders a subset of history under token and count
// budgets.
type Builder struct {
	scorer     *Scorer
	summarizer Summarizer
	logger     zerolog.Logger
}

// NewBuilder creates a builder. summarizer may be nil, in which case no
// summary is ever attached.
func NewBuilder(scorer *Scorer, summarizer Summarizer, logger zerolog.Logger) *Builder {
	return &Builder{
		scorer:     scorer,
		summarizer: summarizer,
		logger:     logger,
	}
}

// Build returns the selected context messages in chronological ascending
// order, plus their total estimated token cost.
//
// Selection runs in relevance order (ties broken newer-first so equal
// scores order deterministically) and stops entirely at the first
// candidate below the threshold: the window holds the best messages only,
// not every qualifying one.
func (b *Builder) Build(messages []message.Message, opts Options) ([]ContextMessage, int) {
	candidates := b.collectCandidates(messages, opts)

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].RelevanceScore != candidates[j].RelevanceScore {
			return candidates[i].RelevanceScore > candidates[j].RelevanceScore
		}
		return candidates[i].Timestamp.After(candidates[j].Timestamp)
	})

	selected := make([]ContextMessage, 0, opts.MaxMessages)
	totalTokens := 0
	for _, cand := range candidates {
		if cand.RelevanceScore < opts.RelevanceThreshold {
			break
		}
		if len(selected) >= opts.MaxMessages {
			break
		}
		if totalTokens+cand.Tokens > opts.MaxTokens {
			break
		}
		selected = append(selected, cand)
		totalTokens += cand.Tokens
	}

	// Chronological order is the only externally visible one.
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Timestamp.Before(selected[j].Timestamp)
	})

	return selected, totalTokens
}

// BuildContext assembles the full conversation context, attaching metadata
// and, when the history is long enough, a summary. Summary generation
// failing is never fatal; a placeholder is attached instead.
func (b *Builder) BuildContext(conversationID string, messages []message.Message, opts Options) *ConversationContext {
	selected, totalTokens := b.Build(messages, opts)

	ctx := &ConversationContext{
		ConversationID: conversationID,
		Messages:       selected,
		TotalTokens:    totalTokens,
		LastUpdated:    time.Now().UTC(),
		Metadata: ContextMetadata{
			MessageCount:          len(selected),
			AverageRelevanceScore: averageScore(selected),
			ContextWindowSize:     opts.MaxMessages,
		},
	}

	if b.summarizer != nil {
		summary, err := b.summarizer.Summarize(conversationID, messages)
		if err != nil {
			b.logger.Warn().
				Err(err).
				Str("conversation_id", conversationID).
				Msg("summary generation failed, attaching placeholder")
			summary = SummaryPlaceholder
		}
		ctx.Summary = summary
	}

	b.logger.Debug().
		Str("conversation_id", conversationID).
		Int("history_size", len(messages)).
		Int("selected", len(selected)).
		Int("total_tokens", totalTokens).
		Msg("conversation context built")

	return ctx
}

// collectCandidates filters out soft-deleted messages, system messages
// (unless included) and unknown roles, then scores and prices the rest.
func (b *Builder) collectCandidates(messages []message.Message, opts Options) []ContextMessage {
	candidates := make([]ContextMessage, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		if msg.IsDeleted() {
			continue
		}
		if !msg.Role.Known() {
			b.logger.Warn().
				Str("message_id", msg.ID).
				Str("role", string(msg.Role)).
				Msg("skipping message with unknown role")
			continue
		}
		if msg.Role == message.RoleSystem && !opts.IncludeSystemMessages {
			continue
		}
		candidates = append(candidates, ContextMessage{
			ID:             msg.ID,
			Role:           msg.Role,
			Content:        msg.Content,
			Timestamp:      msg.CreatedAt,
			RelevanceScore: b.scorer.Score(msg, messages),
			Tokens:         EstimateTokens(msg.Content),
		})
	}
	return candidates
}

func averageScore(selected []ContextMessage) float64 {
	if len(selected) == 0 {
		return 0
	}
	sum := 0.0
	for _, m := range selected {
		sum += m.RelevanceScore
	}
	return math.Round(sum/float64(len(selected))*100) / 100
}
