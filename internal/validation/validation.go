// Package validation checks user input collected by the conversation flows.
// Every failure is an *Error that wraps common.ErrValidation and carries the
// message shown to the user.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Veraticus/expensesbot/internal/common"
	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
)

// Error is a validation failure with a user-facing message.
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is match common.ErrValidation.
func (e *Error) Unwrap() error {
	return common.ErrValidation
}

// Message returns the user-facing text of a validation error, or "" when err
// is not one.
func Message(err error) string {
	var vErr *Error
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	return ""
}

func fail(field, message string) error {
	return &Error{Field: field, Message: message}
}

// Field limits.
const (
	maxCategoryLength      = 50
	minQueryLength         = 3
	maxQueryLength         = 500
	minRecurringNameLength = 2
	maxRecurringNameLength = 100
)

var (
	amountPattern   = regexp.MustCompile(`^\d+(?:\.\d{1,2})?$`)
	categoryPattern = regexp.MustCompile(`^[a-zA-Z0-9\s\-_]+$`)
	timezonePattern = regexp.MustCompile(`^(UTC[+-]\d{1,2}(?:\.\d)?|[+-]?\d{1,2}|\d{1,2}:\d{2}|[A-Za-z_/ ]+)$`)
	datePattern     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// BudgetAmount parses a positive amount such as "100" or "99.99" into minor units.
func BudgetAmount(input string) (int64, error) {
	input = strings.TrimSpace(input)
	if !amountPattern.MatchString(input) {
		return 0, fail("amount", "Must be a valid amount (e.g., 100 or 99.99)")
	}
	minor, err := money.ParseMinorUnits(input)
	if err != nil {
		return 0, fail("amount", "Must be a valid amount (e.g., 100 or 99.99)")
	}
	if minor <= 0 {
		return 0, fail("amount", "Amount must be greater than 0")
	}
	if minor > money.MaxAmount {
		return 0, fail("amount", "Amount too large (max 999999)")
	}
	return minor, nil
}

// RecurringAmount is BudgetAmount that also accepts a decimal comma ("9,99").
func RecurringAmount(input string) (int64, error) {
	return BudgetAmount(strings.Replace(strings.TrimSpace(input), ",", ".", 1))
}

// Category checks a category name and returns it trimmed and lower-cased.
func Category(input string) (string, error) {
	name := strings.TrimSpace(input)
	switch {
	case name == "":
		return "", fail("category", "Category name required")
	case utf8.RuneCountInString(name) > maxCategoryLength:
		return "", fail("category", "Category name too long")
	case !categoryPattern.MatchString(name):
		return "", fail("category", "Invalid characters in category name")
	}
	return strings.ToLower(name), nil
}

// Frequency accepts one of the supported recurrence frequencies.
func Frequency(input string) (model.Frequency, error) {
	f, ok := model.ParseFrequency(input)
	if !ok {
		return "", fail("frequency", "Frequency must be: daily, weekly, biweekly, monthly, quarterly, or annual")
	}
	return f, nil
}

// AIQuery checks the length of a free-form question and returns it trimmed.
func AIQuery(input string) (string, error) {
	query := strings.TrimSpace(input)
	n := utf8.RuneCountInString(query)
	if n < minQueryLength {
		return "", fail("query", "Query too short")
	}
	if n > maxQueryLength {
		return "", fail("query", "Query too long")
	}
	return query, nil
}

// RecurringName checks the name of a recurring expense.
func RecurringName(input string) (string, error) {
	name := strings.TrimSpace(input)
	n := utf8.RuneCountInString(name)
	if n < minRecurringNameLength {
		return "", fail("name", "Name must be at least 2 characters")
	}
	if n > maxRecurringNameLength {
		return "", fail("name", "Name too long")
	}
	return name, nil
}

// TimezoneInput checks the shape of a timezone answer: "UTC+1", "+5",
// "14:30" or a city name. It does not resolve it.
func TimezoneInput(input string) (string, error) {
	tz := strings.TrimSpace(input)
	if !timezonePattern.MatchString(tz) {
		return "", fail("timezone", "Invalid timezone format")
	}
	return tz, nil
}

// DateRange parses an inclusive YYYY-MM-DD range. An empty start or end is
// returned as the zero time.
func DateRange(start, end string) (time.Time, time.Time, error) {
	from, err := date("start", start)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := date("end", end)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return time.Time{}, time.Time{}, fail("end", "End date must not be before start date")
	}
	return from, to, nil
}

func date(field, input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return time.Time{}, nil
	}
	if !datePattern.MatchString(input) {
		return time.Time{}, fail(field, "Invalid date format (YYYY-MM-DD)")
	}
	t, err := time.Parse(model.DateLayout, input)
	if err != nil {
		return time.Time{}, fail(field, "Invalid date format (YYYY-MM-DD)")
	}
	return t, nil
}
