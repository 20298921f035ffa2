// Package recurring tracks bills and subscriptions that repeat on a schedule.
package recurring

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/service"
)

// NextDueDate moves from by one period of the frequency. Unknown
// frequencies advance by a month.
func NextDueDate(from time.Time, frequency model.Frequency) time.Time {
	switch frequency {
	case model.FrequencyDaily:
		return from.AddDate(0, 0, 1)
	case model.FrequencyWeekly:
		return from.AddDate(0, 0, 7)
	case model.FrequencyBiweekly:
		return from.AddDate(0, 0, 14)
	case model.FrequencyMonthly:
		return from.AddDate(0, 1, 0)
	case model.FrequencyQuarterly:
		return from.AddDate(0, 3, 0)
	case model.FrequencyAnnual, model.FrequencyYearly:
		return from.AddDate(1, 0, 0)
	default:
		return from.AddDate(0, 1, 0)
	}
}

// Service manages recurring expenses.
type Service struct {
	store  service.RecurringStore
	logger *slog.Logger
}

// New creates a recurring expense service.
func New(store service.RecurringStore, logger *slog.Logger) *Service {
	return &Service{store: store, logger: common.OrDefault(logger)}
}

// Add registers a recurring expense whose first due date is one period after now.
func (s *Service) Add(ctx context.Context, userID, name string, amount int64, frequency model.Frequency, now time.Time) (*model.RecurringExpense, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	r := &model.RecurringExpense{
		UserID:      userID,
		Name:        name,
		Amount:      amount,
		Frequency:   frequency,
		NextDueDate: NextDueDate(today, frequency),
		IsActive:    true,
	}
	if err := s.store.SaveRecurring(ctx, r); err != nil {
		return nil, fmt.Errorf("failed to save recurring expense: %w", err)
	}

	s.logger.Info("Recurring expense added",
		"user_id", userID,
		"name", name,
		"frequency", frequency,
		"next_due", r.NextDueDate.Format(model.DateLayout))
	return r, nil
}

// Active lists the user's active recurring expenses, soonest due first.
func (s *Service) Active(ctx context.Context, userID string) ([]model.RecurringExpense, error) {
	return s.store.ActiveRecurring(ctx, userID)
}

// Due lists active recurring expenses of all users due on or before asOf.
func (s *Service) Due(ctx context.Context, asOf time.Time) ([]model.RecurringExpense, error) {
	return s.store.DueRecurring(ctx, asOf)
}

// Advance moves r to its next due date and returns the new date.
func (s *Service) Advance(ctx context.Context, r model.RecurringExpense) (time.Time, error) {
	next := NextDueDate(r.NextDueDate, r.Frequency)
	if err := s.store.UpdateRecurringDueDate(ctx, r.ID, next); err != nil {
		return time.Time{}, fmt.Errorf("failed to advance %s: %w", r.Name, err)
	}
	return next, nil
}

// SetActive pauses or resumes a recurring expense.
func (s *Service) SetActive(ctx context.Context, id string, active bool) error {
	return s.store.SetRecurringActive(ctx, id, active)
}

// MonthlyEquivalent converts an amount at the given frequency to an
// approximate monthly cost, for summaries.
func MonthlyEquivalent(amount int64, frequency model.Frequency) int64 {
	switch frequency {
	case model.FrequencyDaily:
		return amount * 365 / 12
	case model.FrequencyWeekly:
		return amount * 52 / 12
	case model.FrequencyBiweekly:
		return amount * 26 / 12
	case model.FrequencyQuarterly:
		return amount / 3
	case model.FrequencyAnnual, model.FrequencyYearly:
		return amount / 12
	default:
		return amount
	}
}
