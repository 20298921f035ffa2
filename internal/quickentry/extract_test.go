package quickentry

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/expensesbot/internal/model"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		want   model.ParsedEntry
		wantOK bool
	}{
		{
			name:   "integer amount",
			input:  "20 coffee",
			want:   model.ParsedEntry{AmountMinorUnits: 2000, Currency: "EUR", Description: "coffee"},
			wantOK: true,
		},
		{
			name:   "dot decimal",
			input:  "15.50 gas",
			want:   model.ParsedEntry{AmountMinorUnits: 1550, Currency: "EUR", Description: "gas"},
			wantOK: true,
		},
		{
			name:   "comma decimal",
			input:  "3,5 bread",
			want:   model.ParsedEntry{AmountMinorUnits: 350, Currency: "EUR", Description: "bread"},
			wantOK: true,
		},
		{
			name:   "euro symbol",
			input:  "€12 lunch at work",
			want:   model.ParsedEntry{AmountMinorUnits: 1200, Currency: "EUR", Description: "lunch at work"},
			wantOK: true,
		},
		{
			name:   "dollar suffix",
			input:  "9.99$ ebook",
			want:   model.ParsedEntry{AmountMinorUnits: 999, Currency: "USD", Description: "ebook"},
			wantOK: true,
		},
		{
			name:   "pound symbol",
			input:  "£7 taxi",
			want:   model.ParsedEntry{AmountMinorUnits: 700, Currency: "GBP", Description: "taxi"},
			wantOK: true,
		},
		{
			name:   "leading iso code",
			input:  "usd 5 tip",
			want:   model.ParsedEntry{AmountMinorUnits: 500, Currency: "USD", Description: "tip"},
			wantOK: true,
		},
		{
			name:   "iso code",
			input:  "1500 jpy ramen",
			want:   model.ParsedEntry{AmountMinorUnits: 150000, Currency: "JPY", Description: "ramen"},
			wantOK: true,
		},
		{
			name:   "extra whitespace",
			input:  "  42   new   shoes  ",
			want:   model.ParsedEntry{AmountMinorUnits: 4200, Currency: "EUR", Description: "new shoes"},
			wantOK: true,
		},
		{name: "zero amount", input: "0 coffee"},
		{name: "negative amount", input: "-5 coffee"},
		{name: "no number", input: "coffee"},
		{name: "no description", input: "20"},
		{name: "only currency left", input: "20 EUR"},
		{name: "above maximum", input: "1000000 house"},
		{name: "trailing amount", input: "taxi £7"},
		{name: "amount after description", input: "coffee 20"},
		{name: "number inside question", input: "how much did I spend in the last 30 days?"},
		{name: "three decimals", input: "1234.567 lamp"},
		{name: "digits run into word", input: "20coffee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(tt.input, "EUR")
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_RoundsHalfUp(t *testing.T) {
	for _, input := range []string{"1 a", "1.5 a", "1.05 a", "99.99 a", "123.4 a"} {
		got, ok := Extract(input, "EUR")
		assert.True(t, ok, input)
		assert.Equal(t, "a", got.Description)
	}
	got, _ := Extract("1.05 a", "EUR")
	assert.Equal(t, int64(105), got.AmountMinorUnits)
	got, _ = Extract("123.4 a", "EUR")
	assert.Equal(t, int64(12340), got.AmountMinorUnits)
}
