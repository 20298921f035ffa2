package model

// CategoryTotal is the spend and item count of one category over a period.
type CategoryTotal struct {
	Category  string
	Total     int64
	ItemCount int
}

// MonthlyTotal is the spend of one calendar month (YYYY-MM).
type MonthlyTotal struct {
	Month        string
	Total        int64
	ExpenseCount int
}

// ItemStat aggregates purchases of one normalized item.
type ItemStat struct {
	Name     string
	Amount   int64
	Count    int
	AvgPrice int64
}

// CategoryStat is one line of a monthly category breakdown.
type CategoryStat struct {
	Name       string
	Amount     int64
	Percentage int
	ItemCount  int
}

// MonthlyStats summarizes a calendar month. Trend fields are set only when
// the previous month had spending.
type MonthlyStats struct {
	PreviousMonthTotal *int64
	TrendPercentage    *int
	Month              string
	CategoryBreakdown  []CategoryStat
	TopItems           []ItemStat
	TotalSpent         int64
	ExpenseCount       int
}

// CategoryInflation compares recent and older average unit prices in a category.
type CategoryInflation struct {
	CategoryName  string
	PercentChange int
	DaysAnalyzed  int
}

// RepeatPurchase is an item bought more than once, with its observed prices oldest first.
type RepeatPurchase struct {
	Name          string
	Prices        []PricePoint
	PercentChange float64
}
