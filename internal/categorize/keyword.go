// Package categorize assigns spending categories to item labels, remotely
// when the text-generation service is available and by keyword otherwise.
package categorize

import (
	"strings"

	"github.com/Veraticus/expensesbot/internal/model"
)

// Keyword returns the first category in the system table whose keyword
// appears in label (case-insensitive), or Other.
func Keyword(label string) string {
	lower := strings.ToLower(label)
	for _, def := range model.SystemCategories {
		for _, kw := range def.Keywords {
			if strings.Contains(lower, kw) {
				return def.Name
			}
		}
	}
	return model.CategoryOther
}

// KeywordAll categorizes every label with Keyword.
func KeywordAll(labels []string) []model.CategoryResult {
	results := make([]model.CategoryResult, len(labels))
	for i, label := range labels {
		results[i] = model.CategoryResult{ItemLabel: label, Category: Keyword(label)}
	}
	return results
}
