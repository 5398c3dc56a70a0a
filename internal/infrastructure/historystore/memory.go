package historystore

import (
	"context"
	"sync"
	"time"

	"tutorchat/internal/domain/chat"
	"tutorchat/internal/domain/message"
)

// MemoryStore is an in-memory HistoryStore used by tests and local runs
// without a remote document store.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string][]message.Message
	lastCreatedAt time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{conversations: make(map[string][]message.Message)}
}

// GetConversationMessages returns up to limit messages in creation order.
func (s *MemoryStore) GetConversationMessages(_ context.Context, conversationID string, limit int, _ string) (*chat.MessagePage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.conversations[conversationID]
	hasMore := false
	if limit > 0 && len(all) > limit {
		// Newest window of the history
		all = all[len(all)-limit:]
		hasMore = true
	}
	data := make([]message.Message, len(all))
	copy(data, all)
	return &chat.MessagePage{Data: data, HasMore: hasMore}, nil
}

// SendMessage appends a message, keeping CreatedAt monotonically
// non-decreasing within the store.
func (s *MemoryStore) SendMessage(_ context.Context, conversationID, _ string, role message.Role, content string) (*message.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := message.New(conversationID, role, content)
	if msg.CreatedAt.Before(s.lastCreatedAt) {
		msg.CreatedAt = s.lastCreatedAt
	}
	s.lastCreatedAt = msg.CreatedAt

	s.conversations[conversationID] = append(s.conversations[conversationID], *msg)
	return msg, nil
}

// Seed inserts a prepared message directly, for tests that need full
// control over timestamps and status.
func (s *MemoryStore) Seed(msg message.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversations[msg.ConversationID] = append(s.conversations[msg.ConversationID], msg)
	if msg.CreatedAt.After(s.lastCreatedAt) {
		s.lastCreatedAt = msg.CreatedAt
	}
}

// Count returns the number of stored messages in a conversation.
func (s *MemoryStore) Count(conversationID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conversations[conversationID])
}
