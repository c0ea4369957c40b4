// Package export serializes a user's budget items for download and parses
// uploaded backups. The JSON form round-trips through ParseJSON; the CSV form
// is a one-way export for spreadsheets.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"

	"budget/internal/core"
)

// JSON renders the items as an indented JSON array, newest first as given.
func JSON(items []core.BudgetItem) ([]byte, error) {
	if items == nil {
		items = []core.BudgetItem{}
	}
	out, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	return out, nil
}

// CSV renders the items as a spreadsheet-friendly table. Amounts are plain
// decimals and dates use the M/D/YYYY form spreadsheets expect.
func CSV(items []core.BudgetItem) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Type", "Description", "Amount", "Category", "Date"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, it := range items {
		d := it.Date.UTC()
		record := []string{
			string(it.Type),
			it.Description,
			it.Amount.String(),
			it.Category,
			fmt.Sprintf("%d/%d/%d", int(d.Month()), d.Day(), d.Year()),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

type importRecord struct {
	Type        core.ItemType `json:"type"`
	Description string        `json:"description"`
	Amount      core.Money    `json:"amount"`
	Category    string        `json:"category"`
	Date        core.DateTime `json:"date"`
}

// ParseJSON turns an uploaded backup into drafts ready for import. Anything
// that is not a JSON array of records yields core.ErrInvalidFormat; per-record
// validation is left to the store.
func ParseJSON(data []byte) ([]core.ItemDraft, error) {
	var records []importRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: expected a JSON array of budget items: %v", core.ErrInvalidFormat, err)
	}

	drafts := make([]core.ItemDraft, 0, len(records))
	for _, r := range records {
		drafts = append(drafts, core.ItemDraft{
			Type:        r.Type,
			Description: r.Description,
			Amount:      r.Amount,
			Category:    r.Category,
			Date:        r.Date.Time,
		})
	}
	return drafts, nil
}

// Filename builds a download name like "budget-data-2026-08-28.json".
func Filename(ext string, year int, month, day int) string {
	return "budget-data-" + strconv.Itoa(year) + "-" + pad(month) + "-" + pad(day) + "." + ext
}

func pad(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
