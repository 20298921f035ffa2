// Package budget manages monthly category budgets and the alerts raised when
// spending approaches them.
package budget

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/service"
)

// Store is the persistence the budget service needs.
type Store interface {
	service.BudgetStore
	service.CategoryStore
}

// Service sets limits and computes budget status.
type Service struct {
	store  Store
	logger *slog.Logger
}

// New creates a budget service.
func New(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: common.OrDefault(logger)}
}

// SetLimit creates or replaces the monthly limit of a category. A zero
// threshold means model.DefaultAlertThreshold. Unknown categories return
// common.ErrNotFound.
func (s *Service) SetLimit(ctx context.Context, userID, category string, limit int64, threshold float64) (*model.BudgetLimit, error) {
	cat, err := s.store.CategoryByName(ctx, userID, category)
	if err != nil {
		return nil, err
	}
	if threshold == 0 {
		threshold = model.DefaultAlertThreshold
	}

	b := &model.BudgetLimit{
		UserID:         userID,
		CategoryID:     cat.ID,
		CategoryName:   cat.Name,
		MonthlyLimit:   limit,
		AlertThreshold: threshold,
	}
	if err := s.store.UpsertBudget(ctx, b); err != nil {
		return nil, fmt.Errorf("failed to save budget: %w", err)
	}

	s.logger.Info("Budget set", "user_id", userID, "category", cat.Name, "limit", limit)
	return b, nil
}

// Limits returns the user's budgets ordered by category name.
func (s *Service) Limits(ctx context.Context, userID string) ([]model.BudgetLimit, error) {
	return s.store.Budgets(ctx, userID)
}

// Delete removes the budget of a category and reports whether there was one.
func (s *Service) Delete(ctx context.Context, userID, category string) (bool, error) {
	cat, err := s.store.CategoryByName(ctx, userID, category)
	if err != nil {
		return false, err
	}
	return s.store.DeleteBudget(ctx, userID, cat.ID)
}

// Status compares the category's spend in the month containing now with
// its limit. Categories without a budget return common.ErrNotFound.
func (s *Service) Status(ctx context.Context, userID, categoryID string, now time.Time) (*model.BudgetStatus, error) {
	b, err := s.store.BudgetForCategory(ctx, userID, categoryID)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, b, now)
}

func (s *Service) status(ctx context.Context, b *model.BudgetLimit, now time.Time) (*model.BudgetStatus, error) {
	month := service.MonthRange(now)
	spent, err := s.store.CategorySpend(ctx, b.UserID, b.CategoryID, month)
	if err != nil {
		return nil, fmt.Errorf("failed to compute spend: %w", err)
	}

	var percentage int64
	if b.MonthlyLimit > 0 {
		percentage = spent * 100 / b.MonthlyLimit
	}

	return &model.BudgetStatus{
		CategoryID:           b.CategoryID,
		CategoryName:         b.CategoryName,
		Limit:                b.MonthlyLimit,
		Spent:                spent,
		Percentage:           percentage,
		IsAlertTriggered:     float64(percentage) >= b.AlertThreshold*100,
		DaysRemainingInMonth: max(0, month.End.Day()-now.Day()),
	}, nil
}

// Statuses returns the status of every budget the user has.
func (s *Service) Statuses(ctx context.Context, userID string, now time.Time) ([]model.BudgetStatus, error) {
	budgets, err := s.store.Budgets(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make([]model.BudgetStatus, 0, len(budgets))
	for i := range budgets {
		st, err := s.status(ctx, &budgets[i], now)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, nil
}

// Alerts returns the budgets at or above their alert threshold, highest
// percentage first.
func (s *Service) Alerts(ctx context.Context, userID string, now time.Time) ([]model.BudgetStatus, error) {
	statuses, err := s.Statuses(ctx, userID, now)
	if err != nil {
		return nil, err
	}

	alerts := statuses[:0]
	for _, st := range statuses {
		if st.IsAlertTriggered {
			alerts = append(alerts, st)
		}
	}
	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Percentage > alerts[j].Percentage
	})
	return alerts, nil
}

// IsUnknownCategory reports whether err means the category does not exist.
func IsUnknownCategory(err error) bool {
	return errors.Is(err, common.ErrNotFound)
}
