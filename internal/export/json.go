package export

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/expensesbot/internal/model"
	"github.com/Veraticus/expensesbot/internal/money"
)

type jsonExport struct {
	ExportDate string        `json:"exportDate"`
	UserID     string        `json:"userId"`
	Period     jsonPeriod    `json:"period"`
	Summary    jsonSummary   `json:"summary"`
	Expenses   []jsonExpense `json:"expenses"`
}

type jsonPeriod struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type jsonSummary struct {
	TotalSpent     string `json:"totalSpent"`
	AverageExpense string `json:"averageExpense"`
	TopCategory    string `json:"topCategory"`
	ExpenseCount   int    `json:"expenseCount"`
}

type jsonExpense struct {
	Date        string     `json:"date"`
	Store       string     `json:"store,omitempty"`
	Description string     `json:"description"`
	Amount      string     `json:"amount"`
	Category    string     `json:"category"`
	Items       []jsonItem `json:"items"`
}

type jsonItem struct {
	Name       string  `json:"name"`
	UnitPrice  string  `json:"unitPrice"`
	TotalPrice string  `json:"totalPrice"`
	Category   string  `json:"category"`
	Quantity   float64 `json:"quantity"`
}

func (e *Exporter) json(ctx context.Context, req Request, now time.Time) ([]byte, error) {
	expenses, err := e.store.ExpensesInRange(ctx, req.UserID, req.Range)
	if err != nil {
		return nil, err
	}
	categories, err := e.store.CategoryTotals(ctx, req.UserID, req.Range)
	if err != nil {
		return nil, err
	}

	doc := jsonExport{
		ExportDate: now.UTC().Format(time.RFC3339),
		UserID:     req.UserID,
		Period: jsonPeriod{
			StartDate: dateOrEmpty(req.Range.Start),
			EndDate:   dateOrEmpty(req.Range.End),
		},
		Summary:  summarize(expenses, categories),
		Expenses: make([]jsonExpense, 0, len(expenses)),
	}
	for _, exp := range expenses {
		doc.Expenses = append(doc.Expenses, toJSONExpense(exp))
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling json: %w", err)
	}
	return data, nil
}

func summarize(expenses []model.Expense, categories []model.CategoryTotal) jsonSummary {
	var total int64
	for _, exp := range expenses {
		total += exp.TotalAmount
	}
	var avg int64
	if len(expenses) > 0 {
		avg = total / int64(len(expenses))
	}
	top := model.CategoryOther
	if len(categories) > 0 {
		top = categories[0].Category
	}
	return jsonSummary{
		TotalSpent:     money.ToMajor(total),
		ExpenseCount:   len(expenses),
		AverageExpense: money.ToMajor(avg),
		TopCategory:    top,
	}
}

func toJSONExpense(exp model.Expense) jsonExpense {
	out := jsonExpense{
		Date:     exp.PurchaseDate.Format(model.DateLayout),
		Store:    exp.StoreName,
		Amount:   money.ToMajor(exp.TotalAmount),
		Category: model.CategoryOther,
		Items:    make([]jsonItem, 0, len(exp.Items)),
	}

	names := make([]string, 0, len(exp.Items))
	for i, item := range exp.Items {
		if i == 0 && item.Category != "" {
			out.Category = item.Category
		}
		names = append(names, item.Name)
		out.Items = append(out.Items, jsonItem{
			Name:       item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  money.ToMajor(item.UnitPrice),
			TotalPrice: money.ToMajor(item.TotalPrice),
			Category:   item.Category,
		})
	}

	out.Description = strings.Join(names, ", ")
	if out.Description == "" {
		out.Description = "Expense"
	}
	return out
}
