package core

import (
	"testing"
	"time"
)

func item(t ItemType, desc string, cents int64, cat string, date time.Time) BudgetItem {
	return BudgetItem{
		Type:        t,
		Description: desc,
		Amount:      Money{Cents: cents},
		Category:    cat,
		Date:        DateTime{Time: date},
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.TotalIncome.Cents != 0 || s.TotalExpenses.Cents != 0 || s.Balance.Cents != 0 {
		t.Fatalf("empty collection should yield zero summary, got %+v", s)
	}
}

func TestSummarizeScenario(t *testing.T) {
	now := time.Now()
	items := []BudgetItem{
		item(Income, "Salary", 100000, "Salary", now),
		item(Expense, "Rent", 30000, "Bills", now),
	}
	s := Summarize(items)
	if s.TotalIncome.Cents != 100000 {
		t.Fatalf("totalIncome = %d, expected 100000", s.TotalIncome.Cents)
	}
	if s.TotalExpenses.Cents != 30000 {
		t.Fatalf("totalExpenses = %d, expected 30000", s.TotalExpenses.Cents)
	}
	if s.Balance.Cents != 70000 {
		t.Fatalf("balance = %d, expected 70000", s.Balance.Cents)
	}
}

func TestBalanceIdentity(t *testing.T) {
	now := time.Now()
	items := []BudgetItem{
		item(Income, "a", 12345, "Salary", now),
		item(Income, "b", 1, "Gift", now),
		item(Expense, "c", 99999, "Food", now),
		item(Expense, "d", 7, "Bills", now),
	}
	s := Summarize(items)
	if s.Balance.Cents != s.TotalIncome.Cents-s.TotalExpenses.Cents {
		t.Fatalf("balance identity violated: %d != %d - %d",
			s.Balance.Cents, s.TotalIncome.Cents, s.TotalExpenses.Cents)
	}
}

func TestByCategoryOrderAndSums(t *testing.T) {
	now := time.Now()
	items := []BudgetItem{
		item(Expense, "lunch", 2000, "Food", now),
		item(Expense, "dinner", 3000, "Food", now),
		item(Expense, "bus", 1000, "Transport", now),
		item(Income, "salary", 500000, "Salary", now),
	}

	got := ByCategory(items, Expense)
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(got))
	}
	if got[0].Category != "Food" || got[0].Amount.Cents != 5000 {
		t.Fatalf("first category = %+v, expected Food 5000", got[0])
	}
	if got[1].Category != "Transport" || got[1].Amount.Cents != 1000 {
		t.Fatalf("second category = %+v, expected Transport 1000", got[1])
	}

	// Per-type category sums must equal the type total.
	var catSum int64
	for _, c := range got {
		catSum += c.Amount.Cents
	}
	if s := Summarize(items); catSum != s.TotalExpenses.Cents {
		t.Fatalf("category sum %d != totalExpenses %d", catSum, s.TotalExpenses.Cents)
	}
}

func TestByCategoryDefaultsToOther(t *testing.T) {
	got := ByCategory([]BudgetItem{
		item(Expense, "misc", 100, "", time.Now()),
	}, Expense)
	if len(got) != 1 || got[0].Category != "Other" {
		t.Fatalf("uncategorized item should bucket under Other, got %+v", got)
	}
}

func TestMonthlyTrend(t *testing.T) {
	mk := func(y int, m time.Month) time.Time {
		return time.Date(y, m, 15, 12, 0, 0, 0, time.UTC)
	}
	var items []BudgetItem
	for m := time.January; m <= time.August; m++ {
		items = append(items, item(Income, "in", 1000, "Salary", mk(2026, m)))
		items = append(items, item(Expense, "out", 500, "Food", mk(2026, m)))
	}
	// A gap month should stay absent, not zero-filled.
	items = append(items, item(Expense, "old", 999, "Food", mk(2025, time.October)))

	trend := MonthlyTrend(items, 6)
	if len(trend) != 6 {
		t.Fatalf("expected 6 groups, got %d", len(trend))
	}
	if trend[0].Month != time.March || trend[0].Year != 2026 {
		t.Fatalf("first group = %d-%v, expected 2026-March", trend[0].Year, trend[0].Month)
	}
	for i := 1; i < len(trend); i++ {
		prev, cur := trend[i-1], trend[i]
		if cur.Year < prev.Year || (cur.Year == prev.Year && cur.Month <= prev.Month) {
			t.Fatalf("trend not chronologically ascending at %d", i)
		}
	}
	for _, flow := range trend {
		if flow.Income.Cents != 1000 || flow.Expenses.Cents != 500 {
			t.Fatalf("unexpected flow %+v", flow)
		}
	}
}

func TestMonthlyTrendFewerMonthsThanRequested(t *testing.T) {
	items := []BudgetItem{
		item(Income, "in", 1000, "Salary", time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)),
	}
	if got := MonthlyTrend(items, 6); len(got) != 1 {
		t.Fatalf("expected 1 group, got %d", len(got))
	}
	if got := MonthlyTrend(nil, 6); len(got) != 0 {
		t.Fatalf("expected no groups for empty input, got %d", len(got))
	}
	if got := MonthlyTrend(items, 0); got != nil {
		t.Fatalf("n=0 should yield nil, got %v", got)
	}
}
