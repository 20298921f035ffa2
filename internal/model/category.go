package model

import (
	"strings"
	"time"
)

// CategoryOther is the catch-all category every unmatched item falls into.
const CategoryOther = "Other"

// Category represents an expense category. System categories have an empty UserID.
type Category struct {
	CreatedAt time.Time
	ID        string
	UserID    string
	Name      string
	Icon      string
	IsSystem  bool
}

// CategoryDefinition describes one of the built-in categories and the
// keywords the deterministic categorizer matches against.
type CategoryDefinition struct {
	Name     string
	Icon     string
	Keywords []string
}

// SystemCategories is the fixed, ordered category table. Order matters:
// keyword matching walks it top to bottom and the first hit wins.
var SystemCategories = []CategoryDefinition{
	{Name: "Groceries", Icon: "🛒", Keywords: []string{"supermarket", "lidl", "aldi", "continente", "mercado"}},
	{Name: "Restaurants", Icon: "🍽️", Keywords: []string{"restaurant", "cafe", "pizza", "burger", "food"}},
	{Name: "Transportation", Icon: "🚗", Keywords: []string{"fuel", "metro", "taxi", "bus", "transport"}},
	{Name: "Entertainment", Icon: "🎬", Keywords: []string{"cinema", "netflix", "game", "streaming"}},
	{Name: "Health", Icon: "💊", Keywords: []string{"pharmacy", "doctor", "gym", "healthcare"}},
	{Name: "Shopping", Icon: "🛍️", Keywords: []string{"clothing", "amazon", "electronics", "shop"}},
	{Name: "Personal", Icon: "💇", Keywords: []string{"haircut", "barber", "beauty", "salon"}},
	{Name: "Bills", Icon: "📄", Keywords: []string{"electric", "water", "internet", "bill"}},
	{Name: CategoryOther, Icon: "📦"},
}

// CategoryNames returns the names of the system categories in table order.
func CategoryNames() []string {
	names := make([]string, 0, len(SystemCategories))
	for _, c := range SystemCategories {
		names = append(names, c.Name)
	}
	return names
}

// CanonicalCategory maps a case-insensitive category name onto the
// canonical system name. It reports false for names outside the table.
func CanonicalCategory(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, c := range SystemCategories {
		if strings.EqualFold(c.Name, name) {
			return c.Name, true
		}
	}
	return "", false
}

// CategoryResult pairs an item label with the category assigned to it.
type CategoryResult struct {
	ItemLabel string
	Category  string
}
