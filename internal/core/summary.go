package core

import (
	"sort"
	"time"
)

type (
	// Summary is the headline aggregate over a record collection.
	Summary struct {
		TotalIncome   Money `json:"totalIncome"`
		TotalExpenses Money `json:"totalExpenses"`
		Balance       Money `json:"balance"`
	}

	// CategoryAmount is an amount summed per category name.
	CategoryAmount struct {
		Category string `json:"category"`
		Amount   Money  `json:"amount"`
	}

	// MonthFlow is the income/expense pair for one calendar month.
	MonthFlow struct {
		Year     int        `json:"year"`
		Month    time.Month `json:"month"`
		Income   Money      `json:"income"`
		Expenses Money      `json:"expenses"`
	}
)

// Summarize computes totals and balance in a single pass. Balance may be
// negative; an empty collection yields all zeros.
func Summarize(items []BudgetItem) Summary {
	var s Summary
	for _, it := range items {
		switch it.Type {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(it.Amount)
		case Expense:
			s.TotalExpenses = s.TotalExpenses.Add(it.Amount)
		}
	}
	s.Balance = s.TotalIncome.Sub(s.TotalExpenses)
	return s
}

// ByCategory sums amounts per category for items of the given type, sorted
// descending by amount. Items without a category bucket under "Other". Ties
// break on category name so the order is deterministic.
func ByCategory(items []BudgetItem, t ItemType) []CategoryAmount {
	sums := make(map[string]int64)
	for _, it := range items {
		if it.Type != t {
			continue
		}
		cat := it.Category
		if cat == "" {
			cat = "Other"
		}
		sums[cat] += it.Amount.Cents
	}
	out := make([]CategoryAmount, 0, len(sums))
	for cat, cents := range sums {
		out = append(out, CategoryAmount{Category: cat, Amount: Money{Cents: cents}})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

type yearMonth struct {
	year  int
	month time.Month
}

// MonthlyTrend buckets items by calendar month of their date and returns at
// most n buckets, chronologically ascending, keeping the most recent n months
// that have any activity. Quiet months are omitted, not zero-filled.
func MonthlyTrend(items []BudgetItem, n int) []MonthFlow {
	if n <= 0 {
		return nil
	}
	buckets := make(map[yearMonth]*MonthFlow)
	for _, it := range items {
		key := yearMonth{year: it.Date.Year(), month: it.Date.Month()}
		flow, ok := buckets[key]
		if !ok {
			flow = &MonthFlow{Year: key.year, Month: key.month}
			buckets[key] = flow
		}
		switch it.Type {
		case Income:
			flow.Income = flow.Income.Add(it.Amount)
		case Expense:
			flow.Expenses = flow.Expenses.Add(it.Amount)
		}
	}
	keys := make([]yearMonth, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})
	if len(keys) > n {
		keys = keys[len(keys)-n:]
	}
	out := make([]MonthFlow, 0, len(keys))
	for _, k := range keys {
		out = append(out, *buckets[k])
	}
	return out
}
