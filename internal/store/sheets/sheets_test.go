package sheets

import (
	"testing"
	"time"

	"budget/internal/core"
)

func TestParseRow(t *testing.T) {
	valid := []string{"u1", "item-1", "expense", "Rent", "300.00", "Bills", "2026-02-01T00:00:00Z"}

	item, userID, ok := parseRow(valid)
	if !ok {
		t.Fatal("parseRow() rejected a valid row")
	}
	if userID != "u1" {
		t.Errorf("userID = %q, want u1", userID)
	}
	if item.ID != "item-1" || item.Type != core.Expense || item.Description != "Rent" {
		t.Errorf("unexpected item: %+v", item)
	}
	if item.Amount.Cents != 30000 {
		t.Errorf("Amount.Cents = %d, want 30000", item.Amount.Cents)
	}
	if item.Category != "Bills" {
		t.Errorf("Category = %q, want Bills", item.Category)
	}
	want := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	if !item.Date.Equal(want) {
		t.Errorf("Date = %v, want %v", item.Date, want)
	}
}

func TestParseRowRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		cols []string
	}{
		{"too few columns", []string{"u1", "item-1", "expense"}},
		{"missing user id", []string{"", "item-1", "expense", "Rent", "300.00", "Bills", "2026-02-01T00:00:00Z"}},
		{"missing item id", []string{"u1", "", "expense", "Rent", "300.00", "Bills", "2026-02-01T00:00:00Z"}},
		{"unknown type", []string{"u1", "item-1", "transfer", "Rent", "300.00", "Bills", "2026-02-01T00:00:00Z"}},
		{"bad amount", []string{"u1", "item-1", "expense", "Rent", "lots", "Bills", "2026-02-01T00:00:00Z"}},
		{"bad date", []string{"u1", "item-1", "expense", "Rent", "300.00", "Bills", "February first"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, ok := parseRow(tt.cols); ok {
				t.Errorf("parseRow(%v) accepted a malformed row", tt.cols)
			}
		})
	}
}
