package contextwindow

import (
	"fmt"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tutorchat/internal/domain/message"
)

func testBuilder(now time.Time) *Builder {
	scorer := fixedScorer(DefaultWeights(), now)
	return NewBuilder(scorer, NewDigestSummarizer(DefaultSummaryThreshold), zerolog.Nop())
}

func makeMessage(id string, role message.Role, content string, createdAt time.Time) message.Message {
	return message.Message{
		ID:             id,
		ConversationID: "conv_1",
		Role:           role,
		Content:        content,
		CreatedAt:      createdAt,
		Status:         message.StatusSent,
	}
}

func TestBuildRespectsBudgets(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	b := testBuilder(now)

	var msgs []message.Message
	for i := 0; i < 30; i++ {
		msgs = append(msgs, makeMessage(
			fmt.Sprintf("msg_%02d", i),
			message.RoleUser,
			strings.Repeat("x", 400),
			now.Add(time.Duration(-30+i)*time.Minute),
		))
	}

	opts := Options{MaxTokens: 450, MaxMessages: 10, RelevanceThreshold: 0}
	selected, total := b.Build(msgs, opts)

	if total > opts.MaxTokens {
		t.Errorf("total tokens %d exceeds budget %d", total, opts.MaxTokens)
	}
	if len(selected) > opts.MaxMessages {
		t.Errorf("selected %d messages, max is %d", len(selected), opts.MaxMessages)
	}
	// 400 chars = 100 tokens each, so only four fit in 450.
	if len(selected) != 4 {
		t.Errorf("selected %d messages, want 4", len(selected))
	}
}

func TestBuildOutputIsChronological(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	b := testBuilder(now)

	// Shuffle creation order relative to slice order.
	offsets := []int{-7, -2, -9, -1, -5, -3, -8, -4, -6, -10}
	var msgs []message.Message
	for i, off := range offsets {
		role := message.RoleUser
		if i%2 == 0 {
			role = message.RoleAssistant
		}
		msgs = append(msgs, makeMessage(
			fmt.Sprintf("msg_%02d", i),
			role,
			strings.Repeat("y", 100+i*30),
			now.Add(time.Duration(off)*time.Minute),
		))
	}

	selected, _ := b.Build(msgs, Options{MaxTokens: 4000, MaxMessages: 20, RelevanceThreshold: 0})

	if !sort.SliceIsSorted(selected, func(i, j int) bool {
		return selected[i].Timestamp.Before(selected[j].Timestamp)
	}) {
		t.Error("output not sorted ascending by timestamp")
	}
}

func TestBuildFilters(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	b := testBuilder(now)

	deleted := makeMessage("msg_del", message.RoleUser, "gone", now)
	deleted.Status = message.StatusDeleted
	unknown := makeMessage("msg_unk", message.Role("tool"), "???", now)
	system := makeMessage("msg_sys", message.RoleSystem, "You are a tutor", now)
	user := makeMessage("msg_usr", message.RoleUser, "What is pedagogy?", now)

	msgs := []message.Message{deleted, unknown, system, user}

	t.Run("system excluded by default", func(t *testing.T) {
		selected, _ := b.Build(msgs, Options{MaxTokens: 4000, MaxMessages: 20, RelevanceThreshold: 0})
		if len(selected) != 1 || selected[0].ID != "msg_usr" {
			t.Errorf("expected only the user message, got %+v", selected)
		}
	})

	t.Run("system included when requested", func(t *testing.T) {
		selected, _ := b.Build(msgs, Options{MaxTokens: 4000, MaxMessages: 20, RelevanceThreshold: 0, IncludeSystemMessages: true})
		if len(selected) != 2 {
			t.Errorf("expected system and user messages, got %d", len(selected))
		}
		for _, m := range selected {
			if m.ID == "msg_del" || m.ID == "msg_unk" {
				t.Errorf("message %s should have been filtered", m.ID)
			}
		}
	})
}

func TestBuildTieBreakPrefersNewer(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	// Zero recency weight so two same-shape messages score identically.
	scorer := fixedScorer(Weights{Length: 0.2, Role: 0.3}, now)
	b := NewBuilder(scorer, nil, zerolog.Nop())

	older := makeMessage("msg_older", message.RoleUser, "same content here", now.Add(-2*time.Hour))
	newer := makeMessage("msg_newer", message.RoleUser, "same content here", now.Add(-1*time.Hour))

	selected, _ := b.Build([]message.Message{older, newer}, Options{MaxTokens: 4000, MaxMessages: 1, RelevanceThreshold: 0})
	if len(selected) != 1 || selected[0].ID != "msg_newer" {
		t.Errorf("equal scores should keep the newer message, got %+v", selected)
	}
}

func TestBuildStopsAtFirstOverflowingCandidate(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	b := testBuilder(now)

	// The highest-scoring candidate alone blows the token budget; smaller
	// lower-scored ones would fit, but selection stops rather than skips.
	big := makeMessage("msg_big", message.RoleAssistant, strings.Repeat("x", 2000), now)
	small := makeMessage("msg_small", message.RoleUser, "short question", now.Add(-time.Minute))

	selected, total := b.Build([]message.Message{big, small}, Options{MaxTokens: 100, MaxMessages: 10, RelevanceThreshold: 0})
	if len(selected) != 0 || total != 0 {
		t.Errorf("expected empty selection, got %d messages / %d tokens", len(selected), total)
	}
}

func TestBuildEmptyInput(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	b := testBuilder(now)

	selected, total := b.Build(nil, DefaultOptions())
	if len(selected) != 0 {
		t.Errorf("expected empty result, got %d messages", len(selected))
	}
	if total != 0 {
		t.Errorf("expected zero tokens, got %d", total)
	}
}

// Sixty recent substantial messages, tight budgets, a high threshold: the
// window holds at most twenty messages, all scoring at least 0.7 before
// the chronological re-sort, within the token budget, and the context
// carries a summary because the history is past the 50-message threshold.
func TestBuildContextLongHistory(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	b := testBuilder(now)

	var msgs []message.Message
	for i := 0; i < 60; i++ {
		role := message.RoleUser
		if i%3 == 2 { // 40 user, 20 assistant
			role = message.RoleAssistant
		}
		msgs = append(msgs, makeMessage(
			fmt.Sprintf("msg_%02d", i),
			role,
			strings.Repeat("z", 500),
			now.Add(time.Duration(-60+i)*time.Minute),
		))
	}

	opts := Options{MaxTokens: 4000, MaxMessages: 20, RelevanceThreshold: 0.7}
	ctx := b.BuildContext("conv_1", msgs, opts)

	if len(ctx.Messages) == 0 || len(ctx.Messages) > 20 {
		t.Fatalf("expected 1..20 messages, got %d", len(ctx.Messages))
	}
	if ctx.TotalTokens > 4000 {
		t.Errorf("total tokens %d exceeds budget", ctx.TotalTokens)
	}
	for _, m := range ctx.Messages {
		if m.RelevanceScore < 0.7 {
			t.Errorf("message %s selected with score %v below threshold", m.ID, m.RelevanceScore)
		}
	}
	if !sort.SliceIsSorted(ctx.Messages, func(i, j int) bool {
		return ctx.Messages[i].Timestamp.Before(ctx.Messages[j].Timestamp)
	}) {
		t.Error("context messages not chronological")
	}
	if ctx.Summary == "" {
		t.Error("expected a summary for a 60-message history")
	}
	if ctx.Metadata.MessageCount != len(ctx.Messages) {
		t.Errorf("metadata message count %d != %d", ctx.Metadata.MessageCount, len(ctx.Messages))
	}
	if ctx.Metadata.AverageRelevanceScore < 0.7 {
		t.Errorf("average relevance %v below threshold", ctx.Metadata.AverageRelevanceScore)
	}
}
