package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expensesbot/internal/llm"
)

func TestHistory_AppendAndCap(t *testing.T) {
	h := NewHistory()

	for i := 0; i < 30; i++ {
		h.Append("u1", fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	msgs := h.Get("u1")
	require.Len(t, msgs, MaxHistory)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "q5"}, msgs[0])
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "a29"}, msgs[len(msgs)-1])
}

func TestHistory_GetReturnsCopy(t *testing.T) {
	h := NewHistory()
	h.Append("u1", "q", "a")

	msgs := h.Get("u1")
	msgs[0].Content = "changed"

	assert.Equal(t, "q", h.Get("u1")[0].Content)
	assert.Empty(t, h.Get("u2"))

	h.Clear("u1")
	assert.Empty(t, h.Get("u1"))
}
