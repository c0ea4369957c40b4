// Package sheets stores budget items in a Google Sheets spreadsheet. Every
// user shares one sheet; rows carry the owning user id in the first column.
// The spreadsheet has no transactions, so bulk operations are best-effort:
// a failed import can leave a partial collection behind.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budget/internal/core"
	"budget/internal/store"
)

// Row layout: A user_id, B id, C type, D description, E amount, F category, G date.
const (
	dataRange   = "!A2:G"
	numColumns  = 7
	importLimit = 8 // concurrent appends during import
)

type Store struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	sheetID       int64
	notifier      store.Notifier
}

var _ store.ItemStore = (*Store)(nil)

// NewFromEnv creates a sheets-backed item store using service account
// credentials from the environment.
// Required: GOOGLE_SPREADSHEET_ID.
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_SHEET_NAME (default "Items").
func NewFromEnv(ctx context.Context) (*Store, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	sheetName := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if sheetName == "" {
		sheetName = "Items"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	s := &Store{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		sheetID:       -1,
		notifier:      store.NopNotifier{},
	}
	if err := s.resolveSheetID(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// SetNotifier routes change notifications, typically to the message broker.
func (s *Store) SetNotifier(n store.Notifier) {
	if n != nil {
		s.notifier = n
	}
}

// newSheetsService initializes a Sheets service from service account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// resolveSheetID maps the sheet name to its numeric id, needed for row deletes.
func (s *Store) resolveSheetID(ctx context.Context) error {
	meta, err := s.svc.Spreadsheets.Get(s.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return persistErr("read spreadsheet metadata", err)
	}
	for _, sheet := range meta.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == s.sheetName {
			s.sheetID = sheet.Properties.SheetId
			return nil
		}
	}
	return fmt.Errorf("sheet %q not found in spreadsheet", s.sheetName)
}

func (s *Store) Load(ctx context.Context, userID string) ([]core.BudgetItem, error) {
	rows, err := s.readRows(ctx)
	if err != nil {
		return nil, err
	}

	items := []core.BudgetItem{}
	for _, r := range rows {
		if r.userID != userID {
			continue
		}
		items = append(items, r.item)
	}

	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Date.Equal(items[j].Date.Time) {
			return items[i].Date.After(items[j].Date.Time)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *Store) Add(ctx context.Context, userID string, draft core.ItemDraft) (core.BudgetItem, error) {
	draft.Normalize()
	if err := draft.Validate(); err != nil {
		return core.BudgetItem{}, err
	}

	item := materialize(draft)
	if err := s.appendRow(ctx, userID, item); err != nil {
		return core.BudgetItem{}, err
	}

	slog.InfoContext(ctx, "Budget item saved",
		"user_id", userID,
		"item_id", item.ID,
		"type", item.Type,
		"amount_cents", item.Amount.Cents)

	s.notifier.ItemsChanged(ctx, userID)
	return item, nil
}

func (s *Store) Remove(ctx context.Context, userID, itemID string) error {
	rows, err := s.readRows(ctx)
	if err != nil {
		return err
	}

	for _, r := range rows {
		if r.userID != userID || r.item.ID != itemID {
			continue
		}
		if err := s.deleteRows(ctx, []int64{r.rowIndex}); err != nil {
			return err
		}
		s.notifier.ItemsChanged(ctx, userID)
		return nil
	}
	// Absent id: silent no-op.
	return nil
}

// ImportAll replaces the user's rows. Deleting the old rows happens in one
// batch, but the replacement rows are appended individually (concurrently, a
// few at a time), so a mid-import failure leaves a partial collection.
func (s *Store) ImportAll(ctx context.Context, userID string, drafts []core.ItemDraft) (int, error) {
	replacement := make([]core.BudgetItem, 0, len(drafts))
	for i := range drafts {
		d := drafts[i]
		d.Normalize()
		if err := d.Validate(); err != nil {
			return 0, fmt.Errorf("record %d: %w", i+1, err)
		}
		replacement = append(replacement, materialize(d))
	}

	rows, err := s.readRows(ctx)
	if err != nil {
		return 0, err
	}
	var stale []int64
	for _, r := range rows {
		if r.userID == userID {
			stale = append(stale, r.rowIndex)
		}
	}
	if err := s.deleteRows(ctx, stale); err != nil {
		return 0, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importLimit)
	for _, item := range replacement {
		g.Go(func() error {
			return s.appendRow(gctx, userID, item)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	slog.InfoContext(ctx, "Budget items imported", "user_id", userID, "count", len(replacement))
	s.notifier.ItemsChanged(ctx, userID)
	return len(replacement), nil
}

type row struct {
	// rowIndex is the zero-based spreadsheet row, header included.
	rowIndex int64
	userID   string
	item     core.BudgetItem
}

func (s *Store) readRows(ctx context.Context) ([]row, error) {
	rng := s.sheetName + dataRange
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, persistErr("read "+rng, err)
	}

	rows := make([]row, 0, len(resp.Values))
	for i, raw := range resp.Values {
		idx := int64(i + 1) // data starts below the header row
		cols := toStrings(raw)
		item, userID, ok := parseRow(cols)
		if !ok {
			slog.WarnContext(ctx, "Skipping malformed spreadsheet row", "row", idx+1)
			continue
		}
		rows = append(rows, row{rowIndex: idx, userID: userID, item: item})
	}
	return rows, nil
}

func (s *Store) appendRow(ctx context.Context, userID string, item core.BudgetItem) error {
	vr := &gsheet.ValueRange{Values: [][]any{{
		userID,
		item.ID,
		string(item.Type),
		item.Description,
		item.Amount.String(),
		item.Category,
		item.Date.UTC().Format(time.RFC3339Nano),
	}}}
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.sheetName+dataRange, vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return persistErr("append row", err)
	}
	return nil
}

// deleteRows removes the given zero-based rows in a single batch update.
// Ranges are issued bottom-up so earlier deletes don't shift later indexes.
func (s *Store) deleteRows(ctx context.Context, indexes []int64) error {
	if len(indexes) == 0 {
		return nil
	}
	sort.Slice(indexes, func(i, j int) bool { return indexes[i] > indexes[j] })

	requests := make([]*gsheet.Request, 0, len(indexes))
	for _, idx := range indexes {
		requests = append(requests, &gsheet.Request{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    s.sheetID,
					Dimension:  "ROWS",
					StartIndex: idx,
					EndIndex:   idx + 1,
				},
			},
		})
	}

	_, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return persistErr("delete rows", err)
	}
	return nil
}

func parseRow(cols []string) (core.BudgetItem, string, bool) {
	if len(cols) < numColumns {
		return core.BudgetItem{}, "", false
	}
	userID, id := cols[0], cols[1]
	if userID == "" || id == "" {
		return core.BudgetItem{}, "", false
	}

	itemType := core.ItemType(cols[2])
	if itemType != core.Income && itemType != core.Expense {
		return core.BudgetItem{}, "", false
	}

	amount, err := core.ParseAmount(cols[4])
	if err != nil {
		return core.BudgetItem{}, "", false
	}

	date, err := time.Parse(time.RFC3339Nano, cols[6])
	if err != nil {
		return core.BudgetItem{}, "", false
	}

	return core.BudgetItem{
		ID:          id,
		Type:        itemType,
		Description: cols[3],
		Amount:      amount,
		Category:    cols[5],
		Date:        core.DateTime{Time: date},
	}, userID, true
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func materialize(d core.ItemDraft) core.BudgetItem {
	date := d.Date
	if date.IsZero() {
		date = time.Now()
	}
	return core.BudgetItem{
		ID:          uuid.NewString(),
		Type:        d.Type,
		Description: d.Description,
		Amount:      d.Amount,
		Category:    d.Category,
		Date:        core.DateTime{Time: date.UTC()},
	}
}

func persistErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrPersistence, err)
}
