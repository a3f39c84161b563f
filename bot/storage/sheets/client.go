// Package sheets implements the row store over the Google Sheets values
// REST API. Each logical sheet maps to its own spreadsheet; the first data
// tab is used and row 1 is treated as the header.
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/m3rciful/studbot/bot/storage/rowstore"
	"github.com/m3rciful/studbot/core/logger"
	"log/slog"
)

const (
	apiBase = "https://sheets.googleapis.com/v4/spreadsheets"
	// readRange covers every column the bot writes.
	readRange = "A:Z"
)

// Config maps logical sheet names to spreadsheet ids and points at the
// OAuth credential file.
type Config struct {
	Spreadsheets map[string]string
	TokenFile    string
}

// Client is a rowstore.Store and rowstore.Creator backed by the Sheets API.
type Client struct {
	http    *http.Client
	tok     *tokenSource
	baseURL string

	mu           sync.RWMutex
	spreadsheets map[string]string
}

// New builds a client. The HTTP client should be the tuned retry client so
// transient API failures are retried transparently.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	tok, err := newTokenSource(cfg.TokenFile, httpClient)
	if err != nil {
		return nil, err
	}
	ids := make(map[string]string, len(cfg.Spreadsheets))
	for name, id := range cfg.Spreadsheets {
		ids[name] = id
	}
	return &Client{http: httpClient, tok: tok, baseURL: apiBase, spreadsheets: ids}, nil
}

func (c *Client) spreadsheetID(sheet string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.spreadsheets[sheet]
	if !ok || id == "" {
		return "", fmt.Errorf("%w: sheet %s", rowstore.ErrNotFound, sheet)
	}
	return id, nil
}

// GetRow returns the data row with the given key.
func (c *Client) GetRow(ctx context.Context, sheet, key string) (rowstore.Row, error) {
	rows, err := c.ListRows(ctx, sheet)
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		if r.Key() == key {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: row %s", rowstore.ErrNotFound, key)
}

// AddRow appends the row, or overwrites the existing row with the same key.
func (c *Client) AddRow(ctx context.Context, sheet string, row rowstore.Row) error {
	if row.Key() == "" {
		return fmt.Errorf("sheets: empty row key")
	}
	id, err := c.spreadsheetID(sheet)
	if err != nil {
		return err
	}
	rows, err := c.readAll(ctx, id, sheet)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if i == 0 {
			continue // header
		}
		if r.Key() == row.Key() {
			rng := fmt.Sprintf("A%d:%s%d", i+1, columnLetter(len(row)-1), i+1)
			return c.valuesUpdate(ctx, id, sheet, rng, [][]string{row})
		}
	}
	return c.valuesAppend(ctx, id, sheet, [][]string{row})
}

// RemoveRow deletes the row with the given key. A missing key is a no-op.
func (c *Client) RemoveRow(ctx context.Context, sheet, key string) error {
	id, err := c.spreadsheetID(sheet)
	if err != nil {
		return err
	}
	rows, err := c.readAll(ctx, id, sheet)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if i == 0 {
			continue
		}
		if r.Key() == key {
			return c.deleteRow(ctx, id, sheet, i)
		}
	}
	return nil
}

// BatchUpdate writes values into one column for many keys with a single
// values:batchUpdate call.
func (c *Client) BatchUpdate(ctx context.Context, sheet string, column int, values map[string]string) error {
	if column <= 0 {
		return fmt.Errorf("sheets: column must be positive, got %d", column)
	}
	id, err := c.spreadsheetID(sheet)
	if err != nil {
		return err
	}
	rows, err := c.readAll(ctx, id, sheet)
	if err != nil {
		return err
	}

	type valueRange struct {
		Range  string     `json:"range"`
		Values [][]string `json:"values"`
	}
	var data []valueRange
	letter := columnLetter(column)
	for i, r := range rows {
		if i == 0 {
			continue
		}
		val, ok := values[r.Key()]
		if !ok {
			continue
		}
		data = append(data, valueRange{
			Range:  fmt.Sprintf("%s%d", letter, i+1),
			Values: [][]string{{val}},
		})
	}
	if len(data) == 0 {
		return nil
	}

	body := map[string]any{
		"valueInputOption": "RAW",
		"data":             data,
	}
	start := time.Now()
	err = c.call(ctx, http.MethodPost, fmt.Sprintf("%s/%s/values:batchUpdate", c.baseURL, id), body, nil)
	logger.SHEETS.Debug("batch update",
		slog.String("event", "store.batch_update"),
		slog.String("sheet", sheet),
		slog.Int("count", len(data)),
		slog.Duration("duration", logger.Took(start)),
	)
	return err
}

// ListKeys returns the keys of all data rows.
func (c *Client) ListKeys(ctx context.Context, sheet string) ([]string, error) {
	rows, err := c.ListRows(ctx, sheet)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(rows))
	for _, r := range rows {
		keys = append(keys, r.Key())
	}
	return keys, nil
}

// ListRows returns all data rows, header excluded.
func (c *Client) ListRows(ctx context.Context, sheet string) ([]rowstore.Row, error) {
	id, err := c.spreadsheetID(sheet)
	if err != nil {
		return nil, err
	}
	rows, err := c.readAll(ctx, id, sheet)
	if err != nil {
		return nil, err
	}
	if len(rows) <= 1 {
		return nil, nil
	}
	return rows[1:], nil
}

// CreateSheet creates a brand new spreadsheet with a header row and binds
// it to the logical name.
func (c *Client) CreateSheet(ctx context.Context, name string, header []string) error {
	c.mu.RLock()
	_, exists := c.spreadsheets[name]
	c.mu.RUnlock()
	if exists {
		return fmt.Errorf("%w: %s", rowstore.ErrSheetExists, name)
	}

	body := map[string]any{
		"properties": map[string]any{"title": name},
	}
	var created struct {
		SpreadsheetID string `json:"spreadsheetId"`
	}
	if err := c.call(ctx, http.MethodPost, c.baseURL, body, &created); err != nil {
		return err
	}
	if created.SpreadsheetID == "" {
		return fmt.Errorf("sheets: create returned empty spreadsheet id")
	}

	c.mu.Lock()
	c.spreadsheets[name] = created.SpreadsheetID
	c.mu.Unlock()

	if len(header) > 0 {
		rng := fmt.Sprintf("A1:%s1", columnLetter(len(header)-1))
		if err := c.valuesUpdate(ctx, created.SpreadsheetID, name, rng, [][]string{header}); err != nil {
			return err
		}
	}
	logger.SHEETS.Info("sheet created",
		slog.String("event", "store.create"),
		slog.String("sheet", name),
	)
	return nil
}

func (c *Client) readAll(ctx context.Context, id, sheet string) ([]rowstore.Row, error) {
	var out struct {
		Values [][]string `json:"values"`
	}
	start := time.Now()
	u := fmt.Sprintf("%s/%s/values/%s", c.baseURL, id, url.PathEscape(readRange))
	if err := c.call(ctx, http.MethodGet, u, nil, &out); err != nil {
		return nil, err
	}
	logger.SHEETS.Debug("range read",
		slog.String("event", "store.read"),
		slog.String("sheet", sheet),
		slog.Int("count", len(out.Values)),
		slog.Duration("duration", logger.Took(start)),
	)
	rows := make([]rowstore.Row, 0, len(out.Values))
	for _, v := range out.Values {
		rows = append(rows, rowstore.Row(v))
	}
	return rows, nil
}

func (c *Client) valuesAppend(ctx context.Context, id, sheet string, values [][]string) error {
	u := fmt.Sprintf("%s/%s/values/%s:append?valueInputOption=RAW&insertDataOption=INSERT_ROWS",
		c.baseURL, id, url.PathEscape(readRange))
	err := c.call(ctx, http.MethodPost, u, map[string]any{"values": values}, nil)
	if err == nil {
		logger.SHEETS.Debug("row appended",
			slog.String("event", "store.append"),
			slog.String("sheet", sheet),
		)
	}
	return err
}

func (c *Client) valuesUpdate(ctx context.Context, id, sheet, rng string, values [][]string) error {
	u := fmt.Sprintf("%s/%s/values/%s?valueInputOption=RAW", c.baseURL, id, url.PathEscape(rng))
	err := c.call(ctx, http.MethodPut, u, map[string]any{"values": values}, nil)
	if err == nil {
		logger.SHEETS.Debug("row updated",
			slog.String("event", "store.update"),
			slog.String("sheet", sheet),
			slog.String("row_key", rng),
		)
	}
	return err
}

// deleteRow removes row index (0-based, header = 0) from the first tab.
func (c *Client) deleteRow(ctx context.Context, id, sheet string, index int) error {
	body := map[string]any{
		"requests": []map[string]any{{
			"deleteDimension": map[string]any{
				"range": map[string]any{
					"sheetId":    0,
					"dimension":  "ROWS",
					"startIndex": index,
					"endIndex":   index + 1,
				},
			},
		}},
	}
	err := c.call(ctx, http.MethodPost, fmt.Sprintf("%s/%s:batchUpdate", c.baseURL, id), body, nil)
	if err == nil {
		logger.SHEETS.Debug("row removed",
			slog.String("event", "store.remove"),
			slog.String("sheet", sheet),
		)
	}
	return err
}

func (c *Client) call(ctx context.Context, method, u string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("sheets: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("sheets: build request: %w", err)
	}
	token, err := c.tok.Token(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sheets: %s: %w", method, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sheets: %s %s: status %s: %s",
			method, trimURL(u), resp.Status, logger.SanitizeLimit(string(data), 256))
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("sheets: decode response: %w", err)
		}
	}
	return nil
}

func trimURL(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

// columnLetter converts a 0-based column index into its A1 letter.
func columnLetter(col int) string {
	if col < 0 {
		col = 0
	}
	letters := ""
	for {
		letters = string(rune('A'+col%26)) + letters
		col = col/26 - 1
		if col < 0 {
			break
		}
	}
	return letters
}

var (
	_ rowstore.Store   = (*Client)(nil)
	_ rowstore.Creator = (*Client)(nil)
)
