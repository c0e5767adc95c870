// Package google mirrors recorded transactions into a Google Sheet, one tab
// per year ("2025 Transactions").
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
)

// Header is written to an empty tab before the first row.
var Header = []any{"ID", "User", "Date", "Kind", "Description", "Category", "Amount", "Account / Method", "Merchant"}

// ErrDuplicate is returned by Append when the transaction id is already in
// the sheet, which happens when a message is redelivered.
var ErrDuplicate = errors.New("transaction already mirrored")

type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
	// RetryDelay is the base delay between append attempts. Zero means 2s.
	RetryDelay time.Duration
	Attempts   uint
}

// valuesAPI is the part of the Sheets API the writer uses.
type valuesAPI interface {
	Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error)
	Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) (string, error)
	AddSheet(ctx context.Context, spreadsheetID, title string) error
}

type Writer struct {
	api           valuesAPI
	spreadsheetID string
	sheetBase     string
	retryDelay    time.Duration
	attempts      uint
}

// New builds a Writer authenticated with a service account. Inline JSON
// wins over the file when both are set.
func New(ctx context.Context, cfg Config) (*Writer, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}

	opts := []goption.ClientOption{goption.WithScopes(gsheet.SpreadsheetsScope)}
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, goption.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, goption.WithCredentialsFile(cfg.CredentialsFile))
	default:
		return nil, errors.New("missing service account credentials")
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID)

	return newWriter(serviceValues{svc: svc}, cfg), nil
}

func newWriter(api valuesAPI, cfg Config) *Writer {
	w := &Writer{
		api:           api,
		spreadsheetID: cfg.SpreadsheetID,
		sheetBase:     strings.TrimSpace(cfg.SheetName),
		retryDelay:    cfg.RetryDelay,
		attempts:      cfg.Attempts,
	}
	if w.sheetBase == "" {
		w.sheetBase = "Transactions"
	}
	if w.retryDelay <= 0 {
		w.retryDelay = 2 * time.Second
	}
	if w.attempts == 0 {
		w.attempts = 3
	}
	return w
}

// SheetFor is the tab that holds transactions of the given year.
func (w *Writer) SheetFor(year int) string {
	return yearPrefixedName(w.sheetBase, year)
}

// Append writes one row for t and returns the updated range. The tab is
// created on first use; ErrDuplicate is returned when t.ID is already there.
func (w *Writer) Append(ctx context.Context, userID string, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if t.ID == "" {
		return "", errors.New("transaction has no id")
	}

	sheet := w.SheetFor(t.OccurredAt.Year())
	ids, err := w.ensureSheet(ctx, sheet)
	if err != nil {
		return "", err
	}
	for _, id := range ids {
		if id == t.ID {
			return "", fmt.Errorf("%w: %s", ErrDuplicate, t.ID)
		}
	}

	rows := [][]any{}
	if len(ids) == 0 {
		rows = append(rows, Header)
	}
	rows = append(rows, Row(userID, t))

	var ref string
	err = w.withRetry(ctx, func() error {
		var err error
		ref, err = w.api.Append(ctx, w.spreadsheetID, sheet+"!A:I", rows)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Transaction mirrored to Google Sheets",
		"transaction_id", t.ID,
		"sheet", sheet,
		"sheets_ref", ref)
	return ref, nil
}

// ensureSheet returns the ids in column A, creating the tab when the range
// does not parse (the tab is missing).
func (w *Writer) ensureSheet(ctx context.Context, sheet string) ([]string, error) {
	var values [][]any
	err := w.withRetry(ctx, func() error {
		var err error
		values, err = w.api.Get(ctx, w.spreadsheetID, sheet+"!A:A")
		return err
	})
	if err == nil {
		return idColumn(values), nil
	}
	if !isMissingSheet(err) {
		return nil, fmt.Errorf("read %s: %w", sheet, err)
	}

	slog.InfoContext(ctx, "Creating sheet tab", "sheet", sheet)
	if err := w.api.AddSheet(ctx, w.spreadsheetID, sheet); err != nil {
		return nil, fmt.Errorf("create sheet %s: %w", sheet, err)
	}
	return nil, nil
}

func (w *Writer) withRetry(ctx context.Context, fn func() error) error {
	return retry.Do(fn,
		retry.Context(ctx),
		retry.RetryIf(IsRetryable),
		retry.Attempts(w.attempts),
		retry.Delay(w.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			slog.WarnContext(ctx, "Google Sheets call failed, retrying", "attempt", n+1, "error", err)
		}),
	)
}

// Row renders t as a sheet row. Amount goes out as a plain decimal string
// so USER_ENTERED turns it into a number without float rounding.
func Row(userID string, t core.Transaction) []any {
	var accountOrMethod, merchant string
	switch t.Kind {
	case core.Income:
		if t.Income != nil {
			accountOrMethod = t.Income.DestinationAccount
		}
	case core.Expense:
		if t.Expense != nil {
			accountOrMethod = t.Expense.PaymentMethod
			merchant = t.Expense.Merchant
		}
	}
	return []any{
		t.ID,
		userID,
		t.OccurredAt.Format(core.DateLayout),
		t.Kind.String(),
		t.Description,
		t.CategoryOrDefault(),
		core.FormatAmount(t.Amount),
		accountOrMethod,
		merchant,
	}
}

func idColumn(values [][]any) []string {
	out := make([]string, 0, len(values))
	for _, row := range values {
		if len(row) == 0 {
			continue
		}
		if v := strings.TrimSpace(fmt.Sprint(row[0])); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// IsRetryable reports rate limiting and server-side failures.
func IsRetryable(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return false
}

// IsPermanent reports errors that will not go away on redelivery.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code >= 400 && apiErr.Code < 500 && apiErr.Code != http.StatusTooManyRequests
	}
	return false
}

func isMissingSheet(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) &&
		apiErr.Code == http.StatusBadRequest &&
		strings.Contains(apiErr.Message, "Unable to parse range")
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

type serviceValues struct {
	svc *gsheet.Service
}

func (s serviceValues) Get(ctx context.Context, spreadsheetID, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s serviceValues) Append(ctx context.Context, spreadsheetID, rng string, rows [][]any) (string, error) {
	resp, err := s.svc.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return "", err
	}
	if resp.Updates == nil {
		return rng, nil
	}
	return resp.Updates.UpdatedRange, nil
}

func (s serviceValues) AddSheet(ctx context.Context, spreadsheetID, title string) error {
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	_, err := s.svc.Spreadsheets.BatchUpdate(spreadsheetID, req).Context(ctx).Do()
	return err
}
