package session

import (
	"sync"

	"github.com/Veraticus/expensesbot/internal/llm"
)

// MaxHistory is the number of messages kept per user.
const MaxHistory = 50

// History is per-user conversation memory for the assistant. It lives only
// in process memory.
type History struct {
	messages map[string][]llm.Message
	limit    int
	mu       sync.Mutex
}

// NewHistory creates an empty history keeping MaxHistory messages per user.
func NewHistory() *History {
	return &History{
		messages: make(map[string][]llm.Message),
		limit:    MaxHistory,
	}
}

// Get returns a copy of the user's messages, oldest first.
func (h *History) Get(userID string) []llm.Message {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := h.messages[userID]
	out := make([]llm.Message, len(msgs))
	copy(out, msgs)
	return out
}

// Append adds one exchange and drops the oldest messages beyond the cap.
func (h *History) Append(userID, question, answer string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msgs := append(h.messages[userID],
		llm.Message{Role: llm.RoleUser, Content: question},
		llm.Message{Role: llm.RoleAssistant, Content: answer},
	)
	if len(msgs) > h.limit {
		msgs = append([]llm.Message(nil), msgs[len(msgs)-h.limit:]...)
	}
	h.messages[userID] = msgs
}

// Clear forgets the user's messages.
func (h *History) Clear(userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.messages, userID)
}
