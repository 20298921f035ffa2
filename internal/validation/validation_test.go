package validation

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
)

func TestBudgetAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantMsg string
		want    int64
	}{
		{name: "whole", input: "100", want: 10000},
		{name: "cents", input: "99.99", want: 9999},
		{name: "one decimal", input: " 12.5 ", want: 1250},
		{name: "maximum", input: "999999", want: 99999900},
		{name: "zero", input: "0", wantMsg: "Amount must be greater than 0"},
		{name: "too large", input: "1000000", wantMsg: "Amount too large (max 999999)"},
		{name: "negative", input: "-5", wantMsg: "Must be a valid amount (e.g., 100 or 99.99)"},
		{name: "three decimals", input: "1.234", wantMsg: "Must be a valid amount (e.g., 100 or 99.99)"},
		{name: "text", input: "abc", wantMsg: "Must be a valid amount (e.g., 100 or 99.99)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BudgetAmount(tt.input)
			if tt.wantMsg != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrValidation)
				assert.Equal(t, tt.wantMsg, Message(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecurringAmount(t *testing.T) {
	got, err := RecurringAmount("9,99")
	require.NoError(t, err)
	assert.Equal(t, int64(999), got)
}

func TestCategory(t *testing.T) {
	got, err := Category("  Groceries ")
	require.NoError(t, err)
	assert.Equal(t, "groceries", got)

	_, err = Category("   ")
	assert.Equal(t, "Category name required", Message(err))

	_, err = Category(strings.Repeat("a", 51))
	assert.Equal(t, "Category name too long", Message(err))

	_, err = Category("food & drink")
	assert.Equal(t, "Invalid characters in category name", Message(err))
}

func TestFrequency(t *testing.T) {
	got, err := Frequency("Monthly")
	require.NoError(t, err)
	assert.Equal(t, model.FrequencyMonthly, got)

	got, err = Frequency("yearly")
	require.NoError(t, err)
	assert.Equal(t, model.FrequencyAnnual, got)

	_, err = Frequency("hourly")
	assert.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, Message(err), "daily, weekly, biweekly")
}

func TestAIQuery(t *testing.T) {
	got, err := AIQuery("  how much on coffee? ")
	require.NoError(t, err)
	assert.Equal(t, "how much on coffee?", got)

	_, err = AIQuery("hi")
	assert.Equal(t, "Query too short", Message(err))

	_, err = AIQuery(strings.Repeat("x", 501))
	assert.Equal(t, "Query too long", Message(err))
}

func TestRecurringName(t *testing.T) {
	got, err := RecurringName(" Netflix ")
	require.NoError(t, err)
	assert.Equal(t, "Netflix", got)

	_, err = RecurringName("N")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestTimezoneInput(t *testing.T) {
	for _, ok := range []string{"UTC+1", "UTC-3.5", "+5", "-8", "14:30", "Tokyo", "New York", "Europe/Lisbon"} {
		_, err := TimezoneInput(ok)
		assert.NoError(t, err, ok)
	}
	for _, bad := range []string{"", "14h30", "UTC+100", "tokyo!"} {
		_, err := TimezoneInput(bad)
		assert.Equal(t, "Invalid timezone format", Message(err), bad)
	}
}

func TestDateRange(t *testing.T) {
	from, to, err := DateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), to)

	from, to, err = DateRange("", "")
	require.NoError(t, err)
	assert.True(t, from.IsZero())
	assert.True(t, to.IsZero())

	_, _, err = DateRange("01/02/2024", "")
	assert.Equal(t, "Invalid date format (YYYY-MM-DD)", Message(err))

	_, _, err = DateRange("2024-02-30", "")
	assert.Error(t, err)

	_, _, err = DateRange("2024-02-01", "2024-01-01")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestMessage_NotValidation(t *testing.T) {
	assert.Empty(t, Message(fmt.Errorf("boom")))
}
