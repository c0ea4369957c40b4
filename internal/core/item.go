package core

import (
	"strings"
	"time"
)

const (
	Income  ItemType = "income"
	Expense ItemType = "expense"
)

type (
	// ItemType distinguishes money coming in from money going out.
	ItemType string

	// BudgetItem is one income or expense record, exclusively owned by a
	// single user. The record store assigns ID and Date; everything else
	// comes from the submitting form or an import payload.
	BudgetItem struct {
		Type        ItemType `json:"type"`
		Description string   `json:"description"`
		Amount      Money    `json:"amount"`
		Category    string   `json:"category"`
		Date        DateTime `json:"date"`
		ID          string   `json:"id"`
	}

	// ItemDraft carries the user-supplied fields of a budget item before the
	// store assigns identity and a creation timestamp. Date is optional: an
	// import preserves the original date, a form submission leaves it zero.
	ItemDraft struct {
		Type        ItemType
		Description string
		Amount      Money
		Category    string
		Date        time.Time
	}
)

// DefaultCategories lists the form's category choices per type; the first
// entry is the fallback when a submission omits the category.
var DefaultCategories = map[ItemType][]string{
	Income:  {"Salary", "Freelance", "Investment", "Gift", "Other"},
	Expense: {"Food", "Transport", "Shopping", "Bills", "Entertainment", "Healthcare", "Education", "Other"},
}

func (t ItemType) Valid() bool {
	return t == Income || t == Expense
}

// DefaultCategory returns the fallback category for the given type.
func DefaultCategory(t ItemType) string {
	if cats := DefaultCategories[t]; len(cats) > 0 {
		return cats[0]
	}
	return "Other"
}

// Normalize trims free-text fields and applies the per-type default category.
func (d *ItemDraft) Normalize() {
	d.Description = strings.TrimSpace(d.Description)
	d.Category = strings.TrimSpace(d.Category)
	if d.Category == "" && d.Type.Valid() {
		d.Category = DefaultCategory(d.Type)
	}
}

// Validate enforces the record schema at the store boundary: every write goes
// through here regardless of variant.
func (d ItemDraft) Validate() error {
	if !d.Type.Valid() {
		return ErrInvalidType
	}
	if strings.TrimSpace(d.Description) == "" {
		return ErrEmptyDescription
	}
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

// Draft converts a stored item back into a draft, as import does when
// re-inserting records with fresh identities.
func (it BudgetItem) Draft() ItemDraft {
	return ItemDraft{
		Type:        it.Type,
		Description: it.Description,
		Amount:      it.Amount,
		Category:    it.Category,
		Date:        it.Date.Time,
	}
}
