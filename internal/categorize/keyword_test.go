package categorize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyword(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{label: "LIDL supermarket", want: "Groceries"},
		{label: "Pizza Hut", want: "Restaurants"},
		{label: "taxi to airport", want: "Transportation"},
		{label: "Netflix", want: "Entertainment"},
		{label: "pharmacy", want: "Health"},
		{label: "Amazon order", want: "Shopping"},
		{label: "haircut", want: "Personal"},
		{label: "Electric company", want: "Bills"},
		{label: "coffee", want: "Other"},
		{label: "", want: "Other"},
		// Table order decides ties: "food" (Restaurants) before "shop" (Shopping).
		{label: "food shop", want: "Restaurants"},
		// Substring matching: "bus" inside "business".
		{label: "business lunch", want: "Transportation"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			assert.Equal(t, tt.want, Keyword(tt.label))
		})
	}
}

func TestKeywordAll(t *testing.T) {
	got := KeywordAll([]string{"aldi", "cinema"})
	assert.Equal(t, "aldi", got[0].ItemLabel)
	assert.Equal(t, "Groceries", got[0].Category)
	assert.Equal(t, "Entertainment", got[1].Category)
}
