package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"classfees/internal/log"
	ports "classfees/internal/sheets"
)

const lastColumn = "F"

var _ ports.LedgerWriter = (*Client)(nil)

// Client mirrors payments into one sheet, one row per payment, keyed by the
// payment id in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	logger        *log.Logger
}

// Credentials selects the service account key; JSON wins over File.
type Credentials struct {
	JSON string
	File string
}

func New(ctx context.Context, spreadsheetID, sheet string, creds Credentials, logger *log.Logger) (*Client, error) {
	spreadsheetID = strings.TrimSpace(spreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	raw, err := creds.load()
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(raw),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheet, logger), nil
}

// NewWithService wraps an existing service; tests point it at a fake endpoint.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheet string, logger *log.Logger) *Client {
	if strings.TrimSpace(sheet) == "" {
		sheet = "Pagos"
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheet:         sheet,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

func (c Credentials) load() ([]byte, error) {
	switch {
	case strings.TrimSpace(c.JSON) != "":
		return []byte(c.JSON), nil
	case strings.TrimSpace(c.File) != "":
		raw, err := os.ReadFile(c.File)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return raw, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func (c *Client) UpsertPayment(ctx context.Context, row ports.LedgerRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ids, err := c.columnA(ctx)
	if err != nil {
		return err
	}

	if n := findRow(ids, row.PaymentID); n > 0 {
		rng := c.rowRange(n)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng,
			&gsheet.ValueRange{Values: [][]any{row.Values()}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update %s: %w", rng, err)
		}
		c.logger.DebugContext(ctx, "Updated ledger row", log.FieldPaymentID, row.PaymentID, "row", n)
		return nil
	}

	values := [][]any{row.Values()}
	if len(ids) == 0 {
		values = [][]any{ports.Header, row.Values()}
	}
	rng := fmt.Sprintf("%s!A:%s", c.sheet, lastColumn)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", rng, err)
	}
	c.logger.DebugContext(ctx, "Appended ledger row", log.FieldPaymentID, row.PaymentID)
	return nil
}

// DeletePayment blanks the payment's row; later rows keep their numbers.
func (c *Client) DeletePayment(ctx context.Context, paymentID string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ids, err := c.columnA(ctx)
	if err != nil {
		return err
	}
	n := findRow(ids, paymentID)
	if n == 0 {
		return nil
	}
	rng := c.rowRange(n)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

func (c *Client) PaymentIDs(ctx context.Context) ([]string, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	ids, err := c.columnA(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(ids))
	for i, id := range ids {
		if i == 0 && isHeader(id) {
			continue
		}
		if id != "" {
			out = append(out, id)
		}
	}
	return out, nil
}

// columnA returns the trimmed first cell of every row, header included.
func (c *Client) columnA(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

func (c *Client) rowRange(n int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheet, n, lastColumn, n)
}

// findRow returns the 1-based sheet row holding id, or 0.
func findRow(ids []string, id string) int {
	if id == "" {
		return 0
	}
	for i, v := range ids {
		if i == 0 && isHeader(v) {
			continue
		}
		if v == id {
			return i + 1
		}
	}
	return 0
}

func isHeader(cell string) bool {
	return strings.EqualFold(cell, fmt.Sprint(ports.Header[0]))
}
