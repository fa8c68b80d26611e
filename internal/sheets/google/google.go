// Package google mirrors transactions into a Google Sheets spreadsheet, one
// tab per calendar year.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	gauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetplanner/internal/config"
	"budgetplanner/internal/core"
	applog "budgetplanner/internal/log"
	"budgetplanner/internal/sheets"
)

const defaultRowCacheTTL = 5 * time.Minute

// Config selects the spreadsheet and the credentials. A service account
// wins over an OAuth client and token.
type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
	OAuthClientJSON    string
	OAuthClientFile    string
	OAuthTokenJSON     string
	OAuthTokenFile     string
	RowCacheTTL        time.Duration
}

// FromAppConfig copies the Google settings out of the application config.
func FromAppConfig(c *config.Config) Config {
	return Config{
		SpreadsheetID:      c.GoogleSpreadsheetID,
		SheetName:          c.GoogleSheetName,
		ServiceAccountJSON: c.GoogleServiceAccountJSON,
		ServiceAccountFile: c.GoogleServiceAccountFile,
		OAuthClientJSON:    c.GoogleOAuthClientJSON,
		OAuthClientFile:    c.GoogleOAuthClientFile,
		OAuthTokenJSON:     c.GoogleOAuthTokenJSON,
		OAuthTokenFile:     c.GoogleOAuthTokenFile,
	}
}

// sheetState caches the used row count and the ids already written to one tab.
type sheetState struct {
	rows      int
	ids       map[string]int
	expiresAt time.Time
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *applog.Logger

	// mu serialises appends so two writers never pick the same row.
	mu       sync.Mutex
	state    map[string]*sheetState
	known    map[string]bool
	cacheTTL time.Duration
}

var _ sheets.Appender = (*Client)(nil)

// New builds an authenticated Sheets client.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	base := strings.TrimSpace(cfg.SheetName)
	if base == "" {
		base = "Transactions"
	}
	ts, err := tokenSource(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets credentials: %w", err)
	}
	svc, err := newSheetsService(ctx, ts)
	if err != nil {
		return nil, err
	}
	ttl := cfg.RowCacheTTL
	if ttl <= 0 {
		ttl = defaultRowCacheTTL
	}
	logger = logger.WithComponent(applog.ComponentSheets)
	logger.InfoContext(ctx, "Google Sheets mirror ready",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet_base", base)
	return &Client{
		svc:           svc,
		spreadsheetID: strings.TrimSpace(cfg.SpreadsheetID),
		sheetBase:     base,
		logger:        logger,
		state:         map[string]*sheetState{},
		known:         map[string]bool{},
		cacheTTL:      ttl,
	}, nil
}

// tokenSource resolves service account credentials first and falls back to
// an installed-app OAuth client plus a token saved by cmd/sheets-auth.
func tokenSource(ctx context.Context, cfg Config) (oauth2.TokenSource, error) {
	saJSON, err := readSecret(cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account: %w", err)
	}
	if len(saJSON) > 0 {
		creds, err := gauth.CredentialsFromJSON(ctx, saJSON, gsheet.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account: %w", err)
		}
		return creds.TokenSource, nil
	}

	clientJSON, err := readSecret(cfg.OAuthClientJSON, cfg.OAuthClientFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth client: %w", err)
	}
	tokenJSON, err := readSecret(cfg.OAuthTokenJSON, cfg.OAuthTokenFile)
	if err != nil {
		return nil, fmt.Errorf("read oauth token: %w", err)
	}
	if len(clientJSON) == 0 || len(tokenJSON) == 0 {
		return nil, errors.New("set GOOGLE_SERVICE_ACCOUNT_JSON/_FILE or both GOOGLE_OAUTH_CLIENT_* and GOOGLE_OAUTH_TOKEN_*")
	}
	oc, err := gauth.ConfigFromJSON(clientJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(tokenJSON, &tok); err != nil {
		return nil, fmt.Errorf("parse oauth token: %w", err)
	}
	return oc.TokenSource(ctx, &tok), nil
}

func readSecret(inline, file string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	if file = strings.TrimSpace(file); file != "" {
		return os.ReadFile(file)
	}
	return nil, nil
}

func newSheetsService(ctx context.Context, ts oauth2.TokenSource) (*gsheet.Service, error) {
	base := newHTTPClientWithPooling()
	httpClient := &http.Client{
		Transport: &oauth2.Transport{Source: oauth2.ReuseTokenSource(nil, ts), Base: base.Transport},
		Timeout:   base.Timeout,
	}
	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

// AppendTransaction writes tx to the tab of its year, creating the tab and
// its header when needed. A transaction already present keeps its row.
func (c *Client) AppendTransaction(ctx context.Context, tx core.Transaction) (string, error) {
	if tx.ID == "" {
		return "", errors.New("transaction without id")
	}
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	sheet, err := sheetFor(c.sheetBase, tx)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	st, err := c.sheetState(ctx, sheet)
	if err != nil {
		return "", err
	}
	if row, ok := st.ids[tx.ID]; ok {
		c.logger.DebugContext(ctx, "Transaction already mirrored", applog.FieldRecordID, tx.ID, "row", row)
		return rowRef(sheet, row), nil
	}

	if st.rows == 0 {
		if err := c.writeRow(ctx, sheet, 1, headerValues()); err != nil {
			return "", fmt.Errorf("write header to %s: %w", sheet, err)
		}
		st.rows = 1
	}
	next := st.rows + 1
	if err := c.writeRow(ctx, sheet, next, rowValues(tx)); err != nil {
		c.invalidate(sheet)
		return "", fmt.Errorf("append to %s: %w", sheet, err)
	}
	st.rows = next
	st.ids[tx.ID] = next

	ref := rowRef(sheet, next)
	c.logger.InfoContext(ctx, "Transaction appended to sheet",
		applog.FieldRecordID, tx.ID,
		applog.FieldSheetsRef, ref)
	return ref, nil
}

func (c *Client) writeRow(ctx context.Context, sheet string, row int, values []any) error {
	rng := fmt.Sprintf("'%s'!A%d:%s%d", sheet, row, lastColumn, row)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	return err
}

// sheetState returns the cached row index of a tab, reading it back once
// the cache expires. Callers hold c.mu.
func (c *Client) sheetState(ctx context.Context, sheet string) (*sheetState, error) {
	if st, ok := c.state[sheet]; ok && time.Now().Before(st.expiresAt) {
		return st, nil
	}
	if err := c.ensureSheet(ctx, sheet); err != nil {
		return nil, err
	}
	rng := fmt.Sprintf("'%s'!A:%s", sheet, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	rows, ids := indexRows(resp.Values)
	st := &sheetState{rows: rows, ids: ids, expiresAt: time.Now().Add(c.cacheTTL)}
	c.state[sheet] = st
	return st, nil
}

func (c *Client) invalidate(sheet string) {
	delete(c.state, sheet)
}

// ensureSheet adds the yearly tab when the spreadsheet does not have it yet.
func (c *Client) ensureSheet(ctx context.Context, sheet string) error {
	if c.known[sheet] {
		return nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read spreadsheet: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties != nil {
			c.known[s.Properties.Title] = true
		}
	}
	if c.known[sheet] {
		return nil
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: sheet}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", sheet, err)
	}
	c.logger.InfoContext(ctx, "Created yearly sheet", "sheet", sheet)
	c.known[sheet] = true
	return nil
}
