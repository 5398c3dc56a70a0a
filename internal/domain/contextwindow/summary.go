package contextwindow

import (
	"fmt"

	"tutorchat/internal/domain/message"
)

const (
	// DefaultSummaryThreshold is the history size above which a summary
	// is generated.
	DefaultSummaryThreshold = 50

	// SummaryPlaceholder is attached when summary generation fails.
	SummaryPlaceholder = "Conversation summary unavailable"

	// excerptLimit caps the excerpt of the latest user message.
	excerptLimit = 120
)

// Summarizer produces a short textual digest of a conversation. An empty
// string means the history is below the threshold and no summary applies.
type Summarizer interface {
	Summarize(conversationID string, messages []message.Message) (string, error)
}

// DigestSummarizer is the shipped Summarizer: a deterministic count-based
// digest, not a model-generated summary.
type DigestSummarizer struct {
	threshold int
}

// NewDigestSummarizer creates a summarizer with the given trigger
// threshold. Non-positive thresholds fall back to the default.
func NewDigestSummarizer(threshold int) *DigestSummarizer {
	if threshold <= 0 {
		threshold = DefaultSummaryThreshold
	}
	return &DigestSummarizer{threshold: threshold}
}

// Summarize returns a digest once the history exceeds the threshold:
// user/assistant turn counts plus an excerpt of the latest user message.
func (s *DigestSummarizer) Summarize(conversationID string, messages []message.Message) (string, error) {
	if len(messages) <= s.threshold {
		return "", nil
	}

	userTurns := 0
	assistantTurns := 0
	latestUserContent := ""
	for i := range messages {
		msg := &messages[i]
		if msg.IsDeleted() {
			continue
		}
		switch msg.Role {
		case message.RoleUser:
			userTurns++
			latestUserContent = msg.Content
		case message.RoleAssistant:
			assistantTurns++
		}
	}

	digest := fmt.Sprintf("Conversation with %d user and %d assistant turns.", userTurns, assistantTurns)
	if latestUserContent != "" {
		digest += fmt.Sprintf(" Latest question: %s", excerpt(latestUserContent))
	}
	return digest, nil
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= excerptLimit {
		return content
	}
	return string(runes[:excerptLimit]) + "..."
}
