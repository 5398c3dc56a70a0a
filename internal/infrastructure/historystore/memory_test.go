package historystore

import (
	"context"
	"testing"
	"time"

	"tutorchat/internal/domain/message"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	sent, err := store.SendMessage(ctx, "conv_1", "user_1", message.RoleUser, "What is andragogy?")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if sent.ID == "" || sent.Status != message.StatusSent {
		t.Errorf("sent message = %+v", sent)
	}

	page, err := store.GetConversationMessages(ctx, "conv_1", 10, "")
	if err != nil {
		t.Fatalf("GetConversationMessages() error = %v", err)
	}
	if len(page.Data) != 1 || page.Data[0].Content != "What is andragogy?" {
		t.Errorf("page = %+v", page)
	}
	if page.HasMore {
		t.Error("single message should not report more pages")
	}
}

func TestMemoryStoreLimitKeepsNewestWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		store.SendMessage(ctx, "conv_1", "user_1", message.RoleUser, string(rune('a'+i)))
	}

	page, err := store.GetConversationMessages(ctx, "conv_1", 3, "")
	if err != nil {
		t.Fatalf("GetConversationMessages() error = %v", err)
	}
	if len(page.Data) != 3 {
		t.Fatalf("page size = %d, want 3", len(page.Data))
	}
	if !page.HasMore {
		t.Error("truncated page should report more")
	}
	if page.Data[0].Content != "c" || page.Data[2].Content != "e" {
		t.Errorf("expected the newest window, got %q..%q", page.Data[0].Content, page.Data[2].Content)
	}
}

func TestMemoryStoreMonotonicTimestamps(t *testing.T) {
	store := NewMemoryStore()

	seeded := message.Message{
		ID:             "msg_seeded",
		ConversationID: "conv_1",
		Role:           message.RoleUser,
		Content:        "from the future",
		CreatedAt:      time.Now().Add(time.Hour).UTC(),
		Status:         message.StatusSent,
	}
	store.Seed(seeded)

	appended, err := store.SendMessage(context.Background(), "conv_1", "user_1", message.RoleUser, "now")
	if err != nil {
		t.Fatalf("SendMessage() error = %v", err)
	}
	if appended.CreatedAt.Before(seeded.CreatedAt) {
		t.Errorf("CreatedAt went backwards: %v < %v", appended.CreatedAt, seeded.CreatedAt)
	}
}

func TestMemoryStoreConversationsAreIsolated(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	store.SendMessage(ctx, "conv_1", "user_1", message.RoleUser, "first")
	store.SendMessage(ctx, "conv_2", "user_1", message.RoleUser, "second")

	if store.Count("conv_1") != 1 || store.Count("conv_2") != 1 {
		t.Errorf("counts = %d, %d; want 1, 1", store.Count("conv_1"), store.Count("conv_2"))
	}

	page, _ := store.GetConversationMessages(ctx, "conv_missing", 10, "")
	if len(page.Data) != 0 {
		t.Errorf("unknown conversation returned %d messages", len(page.Data))
	}
}
