package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Veraticus/expensesbot/internal/common"
)

// ExtractJSON returns the first balanced JSON object or array embedded in
// text. Brackets inside string literals are ignored. When an opening bracket
// never closes, scanning resumes at the next one.
func ExtractJSON(text string) (string, bool) {
	start := 0
	for {
		idx := strings.IndexAny(text[start:], "{[")
		if idx < 0 {
			return "", false
		}
		begin := start + idx
		if end, ok := matchBrackets(text, begin); ok {
			return text[begin : end+1], true
		}
		start = begin + 1
	}
}

// matchBrackets returns the index of the bracket closing the one at begin.
func matchBrackets(text string, begin int) (int, bool) {
	var (
		stack    []byte
		inString bool
		escaped  bool
	)
	for i := begin; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return 0, false
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true
			}
		}
	}
	return 0, false
}

// DecodeJSON extracts the first JSON value from text and unmarshals it into v.
func DecodeJSON(text string, v any) error {
	raw, ok := ExtractJSON(text)
	if !ok {
		return fmt.Errorf("%w: no JSON in reply", common.ErrRemote)
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("%w: failed to decode reply: %v", common.ErrRemote, err)
	}
	return nil
}
