// Package quickentry turns one line of free text such as "20 coffee" into a
// structured expense.
package quickentry

import (
	"regexp"
	"strings"

	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
)

var (
	// The amount leads the text, optionally behind a currency symbol or code,
	// and must not run into more digits or letters.
	amountPattern = regexp.MustCompile(`^\s*(?:[€$£¥]\s*|(?i:EUR|USD|GBP|JPY)\s+)?(-?)(\d+(?:[.,]\d{1,2})?)(?:\s|$|[€$£¥])`)

	codePattern     = regexp.MustCompile(`(?i)\b(EUR|USD|GBP|JPY)\b`)
	symbolPattern   = regexp.MustCompile(`[€$£¥]`)
	spacePattern    = regexp.MustCompile(`\s+`)
	currencySymbols = map[string]string{
		"€": "EUR",
		"$": "USD",
		"£": "GBP",
		"¥": "JPY",
	}
)

// Extract is the deterministic amount/currency extractor. The amount must be
// the leading token ("20 coffee", "€12 lunch", "usd 5 tip"). It reports
// false when there is none, when it is not positive, or when nothing is left
// to describe the expense.
func Extract(text, homeCurrency string) (model.ParsedEntry, bool) {
	loc := amountPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return model.ParsedEntry{}, false
	}
	if loc[3] > loc[2] {
		return model.ParsedEntry{}, false
	}

	amount, err := money.ParseMinorUnits(text[loc[4]:loc[5]])
	if err != nil || amount <= 0 || amount > money.MaxAmount {
		return model.ParsedEntry{}, false
	}

	currency := detectCurrency(text, homeCurrency)

	rest := text[loc[5]:]
	rest = codePattern.ReplaceAllString(rest, " ")
	rest = symbolPattern.ReplaceAllString(rest, " ")
	description := strings.TrimSpace(spacePattern.ReplaceAllString(rest, " "))
	if description == "" {
		return model.ParsedEntry{}, false
	}

	return model.ParsedEntry{
		AmountMinorUnits: amount,
		Currency:         currency,
		Description:      description,
	}, true
}

func detectCurrency(text, homeCurrency string) string {
	if sym := symbolPattern.FindString(text); sym != "" {
		return currencySymbols[sym]
	}
	if code := codePattern.FindString(text); code != "" {
		return strings.ToUpper(code)
	}
	return homeCurrency
}
