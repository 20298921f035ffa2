package recurring

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/testutil"
)

func TestNextDueDate(t *testing.T) {
	from := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		frequency model.Frequency
		want      string
	}{
		{frequency: model.FrequencyDaily, want: "2024-02-01"},
		{frequency: model.FrequencyWeekly, want: "2024-02-07"},
		{frequency: model.FrequencyBiweekly, want: "2024-02-14"},
		// AddDate normalizes Feb 31 to Mar 2.
		{frequency: model.FrequencyMonthly, want: "2024-03-02"},
		{frequency: model.FrequencyQuarterly, want: "2024-05-01"},
		{frequency: model.FrequencyAnnual, want: "2025-01-31"},
		{frequency: model.FrequencyYearly, want: "2025-01-31"},
		{frequency: "fortnightly", want: "2024-03-02"},
	}

	for _, tt := range tests {
		t.Run(string(tt.frequency), func(t *testing.T) {
			assert.Equal(t, tt.want, NextDueDate(from, tt.frequency).Format(model.DateLayout))
		})
	}
}

func TestService_Lifecycle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db.Storage, nil)
	ctx := context.Background()
	now := time.Date(2024, 1, 10, 18, 30, 0, 0, time.UTC)

	netflix, err := svc.Add(ctx, "7", "Netflix", 1299, model.FrequencyMonthly, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-02-10", netflix.NextDueDate.Format(model.DateLayout))
	assert.True(t, netflix.IsActive)

	_, err = svc.Add(ctx, "7", "Coffee club", 500, model.FrequencyWeekly, now)
	require.NoError(t, err)

	active, err := svc.Active(ctx, "7")
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Coffee club", active[0].Name)

	due, err := svc.Due(ctx, db.Date("2024-02-10"))
	require.NoError(t, err)
	require.Len(t, due, 2)

	next, err := svc.Advance(ctx, due[1])
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", next.Format(model.DateLayout))

	require.NoError(t, svc.SetActive(ctx, active[0].ID, false))
	active, err = svc.Active(ctx, "7")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Netflix", active[0].Name)

	assert.ErrorIs(t, svc.SetActive(ctx, "nope", true), common.ErrNotFound)
}

func TestMonthlyEquivalent(t *testing.T) {
	assert.Equal(t, int64(1200), MonthlyEquivalent(1200, model.FrequencyMonthly))
	assert.Equal(t, int64(100), MonthlyEquivalent(1200, model.FrequencyAnnual))
	assert.Equal(t, int64(400), MonthlyEquivalent(1200, model.FrequencyQuarterly))
	assert.Equal(t, int64(4333), MonthlyEquivalent(1000, model.FrequencyWeekly))
}
