package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"ledger/internal/core"
	ports "ledger/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Options configures the Sheets mirror. One of CredentialsJSON or
// CredentialsFile is required unless ClientOptions supplies authentication.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string

	// ClientOptions are appended when building the Sheets service.
	ClientOptions []goption.ClientOption
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// mu serializes the lookup and the write of an upsert or delete
	mu sync.Mutex
}

var _ ports.TransactionMirror = (*Client)(nil)

// New creates a Sheets mirror client using Service Account credentials.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(opts.SheetName)
	if sheetName == "" {
		sheetName = "Transactions"
	}

	clientOpts := opts.ClientOptions
	if len(clientOpts) == 0 {
		creds, err := readCredentials(ctx, opts)
		if err != nil {
			return nil, err
		}
		clientOpts = []goption.ClientOption{
			goption.WithCredentialsJSON(creds),
			goption.WithScopes(gsheet.SpreadsheetsScope),
		}
	}

	svc, err := gsheet.NewService(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets mirror ready",
		"spreadsheet_id", spreadsheetID,
		"sheet", sheetName)

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}, nil
}

func readCredentials(ctx context.Context, opts Options) ([]byte, error) {
	switch {
	case strings.TrimSpace(opts.CredentialsJSON) != "":
		slog.DebugContext(ctx, "Using inline JSON credentials")
		return []byte(opts.CredentialsJSON), nil
	case strings.TrimSpace(opts.CredentialsFile) != "":
		slog.DebugContext(ctx, "Reading credentials from file", "path", opts.CredentialsFile)
		data, err := os.ReadFile(opts.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// Upsert writes t on the row holding its ID, or appends a new row.
func (c *Client) Upsert(ctx context.Context, t core.Transaction) (string, error) {
	if t.ID <= 0 {
		return "", errors.New("cannot mirror a transaction without id")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return "", err
	}

	values := [][]any{rowValues(t)}
	row := findRow(ids, t.ID)
	if row == 0 {
		row = len(ids) + 1
		if len(ids) == 0 {
			// fresh sheet: write the header together with the first row
			values = [][]any{headerValues(), rowValues(t)}
		}
	}

	first := row
	if len(values) == 2 {
		first, row = 1, 2
	}
	rng := fmt.Sprintf("%s!A%d:H%d", c.sheetName, first, row)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("update %s: %w", rng, err)
	}

	ref := fmt.Sprintf("%s!A%d:H%d", c.sheetName, row, row)
	slog.DebugContext(ctx, "Mirrored transaction", "id", t.ID, "ref", ref)
	return ref, nil
}

// Delete clears the row holding id. The row is cleared, not removed, so the
// positions of other rows stay stable.
func (c *Client) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, id)
	if row == 0 {
		slog.DebugContext(ctx, "Transaction not mirrored, nothing to delete", "id", id)
		return nil
	}

	rng := fmt.Sprintf("%s!A%d:H%d", c.sheetName, row, row)
	_, err = c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// findRow returns the 1-based sheet row whose first cell equals id, or 0.
func findRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) == 0 {
			continue
		}
		if strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

func headerValues() []any {
	out := make([]any, len(ports.Header))
	for i, h := range ports.Header {
		out[i] = h
	}
	return out
}

func rowValues(t core.Transaction) []any {
	return []any{
		strconv.FormatInt(t.ID, 10),
		strconv.FormatInt(t.UserID, 10),
		t.Date.String(),
		sheetText(t.Title),
		string(t.Type),
		sheetText(t.Category),
		core.FormatAmount(t.Value),
		string(t.Kind),
	}
}

// sheetText keeps user text literal under USER_ENTERED input: a leading
// apostrophe stops Sheets from evaluating it as a formula.
func sheetText(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
