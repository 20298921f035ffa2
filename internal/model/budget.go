package model

import (
	"strings"
	"time"
)

// DefaultAlertThreshold is the share of a budget at which an alert fires.
const DefaultAlertThreshold = 0.8

// BudgetLimit is a monthly spending cap for one category.
type BudgetLimit struct {
	CreatedAt      time.Time
	ID             string
	UserID         string
	CategoryID     string
	CategoryName   string
	Currency       string
	MonthlyLimit   int64
	AlertThreshold float64
}

// BudgetStatus is the current month's spend against a budget.
type BudgetStatus struct {
	CategoryID           string
	CategoryName         string
	Limit                int64
	Spent                int64
	Percentage           int64
	DaysRemainingInMonth int
	IsAlertTriggered     bool
}

// Frequency is how often a recurring expense is due.
type Frequency string

// Supported frequencies. FrequencyYearly is accepted as an alias of annual.
const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyBiweekly  Frequency = "biweekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyAnnual    Frequency = "annual"
	FrequencyYearly    Frequency = "yearly"
)

// Frequencies lists the frequencies users may choose, in display order.
var Frequencies = []Frequency{
	FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual,
}

// ParseFrequency accepts any listed frequency (case-insensitive) and the yearly alias.
func ParseFrequency(s string) (Frequency, bool) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if f == FrequencyYearly {
		return FrequencyAnnual, true
	}
	for _, known := range Frequencies {
		if f == known {
			return f, true
		}
	}
	return "", false
}

// RecurringExpense is a bill or subscription that repeats on a schedule.
type RecurringExpense struct {
	NextDueDate time.Time
	CreatedAt   time.Time
	ID          string
	UserID      string
	Name        string
	Currency    string
	CategoryID  string
	Frequency   Frequency
	Amount      int64
	IsActive    bool
}

// UserSettings holds per-user preferences.
type UserSettings struct {
	CreatedAt       time.Time
	UserID          string
	DefaultCurrency string
	Timezone        string
}
