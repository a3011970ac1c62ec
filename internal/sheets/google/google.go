package google

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"bolsya/internal/log"
	ports "bolsya/internal/sheets"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

var _ ports.LedgerExporter = (*Client)(nil)

// Config selects the spreadsheet and the service account used to write it.
// CredentialsJSON wins over CredentialsFile.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client appends ledger rows to one sheet of a spreadsheet.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	headerMu    sync.Mutex
	headerReady bool
}

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Client, error) {
	spreadsheetID := strings.TrimSpace(cfg.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		return nil, errors.New("missing sheet name")
	}

	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheetName, logger), nil
}

// NewWithService wraps an already configured service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string, logger *log.Logger) *Client {
	if logger == nil {
		logger = log.FromContext(context.Background())
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		logger:        logger.WithComponent(log.ComponentSheets),
	}
}

// newSheetsService initializes a Sheets Service from service account
// credentials, using a pooled HTTP transport underneath the OAuth2 client.
func newSheetsService(ctx context.Context, cfg Config, logger *log.Logger) (*gsheet.Service, error) {
	credentialsJSON, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	jwtConfig, err := goauth.JWTConfigFromJSON(credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}
	if logger != nil {
		logger.InfoContext(ctx, "Creating Google Sheets service with service account",
			"client_email", jwtConfig.Email,
			"scope", gsheet.SpreadsheetsScope)
	}

	// The token source runs for the life of the service, not of ctx.
	base := context.WithValue(context.Background(), oauth2.HTTPClient, newHTTPClientWithPooling())
	httpClient := jwtConfig.Client(base)
	httpClient.Timeout = 60 * time.Second

	svc, err := gsheet.NewService(ctx, goption.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case strings.TrimSpace(cfg.CredentialsFile) != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

// newHTTPClientWithPooling creates an HTTP client for the Sheets API with
// connection pooling and keep-alive.
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

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// AppendLedgerRow writes row after the last used row of the sheet and
// returns the A1 range it landed in.
func (c *Client) AppendLedgerRow(ctx context.Context, row ports.LedgerRow) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if row.TransactionID <= 0 {
		return "", ports.ErrInvalidRow
	}
	if err := c.ensureHeader(ctx); err != nil {
		return "", err
	}

	rng := fmt.Sprintf("%s!%s", c.sheetName, columnSpan)
	vr := &gsheet.ValueRange{Values: [][]any{rowCells(row)}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}

	ref := rng
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	c.logger.DebugContext(ctx, "Ledger row appended",
		log.FieldEventKind, row.Event,
		log.FieldTransactionID, row.TransactionID,
		"range", ref)
	return ref, nil
}

// ensureHeader writes the header into an empty sheet and refuses to append
// below a header it does not recognize. The check runs once per client.
func (c *Client) ensureHeader(ctx context.Context) error {
	c.headerMu.Lock()
	defer c.headerMu.Unlock()
	if c.headerReady {
		return nil
	}

	rng := fmt.Sprintf("%s!%s", c.sheetName, headerSpan)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read header %s: %w", rng, err)
	}

	present, err := checkHeader(resp.Values)
	if err != nil {
		return err
	}
	if !present {
		vr := &gsheet.ValueRange{Values: [][]any{headerCells()}}
		if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
			ValueInputOption("RAW").Context(ctx).Do(); err != nil {
			return fmt.Errorf("write header %s: %w", rng, err)
		}
		c.logger.InfoContext(ctx, "Ledger header written", "sheet", c.sheetName)
	}

	c.headerReady = true
	return nil
}
