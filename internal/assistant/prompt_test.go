package assistant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsExpenseQuery(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{text: "How much did I spend on coffee?", want: true},
		{text: "what did I spend last week", want: true},
		{text: "total spent in March", want: true},
		{text: "my spending on groceries", want: true},
		{text: "compare my grocery spending", want: true},
		{text: "average receipt", want: true},
		{text: "most expensive item", want: true},
		{text: "category breakdown please", want: true},
		{text: "any trends?", want: true},
		{text: "give me insights", want: true},
		{text: "hello there", want: false},
		{text: "coffee", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsExpenseQuery(tt.text))
		})
	}
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bold", in: "you spent **12 EUR**", want: "you spent 12 EUR"},
		{name: "italic", in: "*roughly* 5", want: "roughly 5"},
		{name: "code", in: "item `leite`", want: "item leite"},
		{name: "headings", in: "## Summary\ntext", want: "Summary\ntext"},
		{name: "bullets", in: "*   one\n-  two", want: "- one\n- two"},
		{name: "plain", in: "nothing to do", want: "nothing to do"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripMarkdown(tt.in))
		})
	}
}
