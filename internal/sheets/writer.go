package sheets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/carga/internal/common"
	"github.com/Veraticus/carga/internal/model"
	"github.com/Veraticus/carga/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// spreadsheetAPI is the slice of the Sheets API the writer needs.
type spreadsheetAPI interface {
	Get(ctx context.Context, id string) (*sheets.Spreadsheet, error)
	Create(ctx context.Context, s *sheets.Spreadsheet) (*sheets.Spreadsheet, error)
	BatchUpdate(ctx context.Context, id string, req *sheets.BatchUpdateSpreadsheetRequest) error
	Clear(ctx context.Context, id, rangeStr string) error
	Update(ctx context.Context, id, rangeStr string, values [][]any) error
}

// Writer implements the ReportWriter interface for Google Sheets.
type Writer struct {
	api    spreadsheetAPI
	logger *slog.Logger
	config Config
}

var _ service.ReportWriter = (*Writer)(nil)

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(apiClient{srv: srv}, config, logger), nil
}

func newWriter(api spreadsheetAPI, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{api: api, config: config, logger: logger}
}

// Write publishes summary as one tab per view, replacing what the tabs held.
func (w *Writer) Write(ctx context.Context, summary model.Summary, period service.ReportPeriod) error {
	w.logger.Info("starting report export",
		"records", summary.Records,
		"period", period.Label,
		"department", period.Department)

	retryOpts := service.RetryOptions{
		MaxAttempts:  max(w.config.RetryAttempts, 1),
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var sheetIDs map[string]int64
	err := common.WithRetry(ctx, "prepare spreadsheet", func() error {
		var getErr error
		sheetIDs, getErr = w.prepareSpreadsheet(ctx)
		return getErr
	}, retryOpts)
	if err != nil {
		return fmt.Errorf("failed to prepare spreadsheet: %w", err)
	}
	spreadsheetID := w.config.SpreadsheetID

	tabs := BuildTabs(summary, period)
	for _, tab := range tabs {
		err := common.WithRetry(ctx, "write "+tab.Title, func() error {
			return w.writeTab(ctx, spreadsheetID, tab)
		}, retryOpts)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", tab.Title, err)
		}
	}

	if w.config.EnableFormatting {
		req := &sheets.BatchUpdateSpreadsheetRequest{Requests: formatRequests(tabs, sheetIDs, w.config.CurrencyPattern)}
		err := common.WithRetry(ctx, "format tabs", func() error {
			return w.api.BatchUpdate(ctx, spreadsheetID, req)
		}, retryOpts)
		if err != nil {
			// The values are in place; formatting is cosmetic.
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("report export completed",
		"spreadsheet_id", spreadsheetID,
		"tabs", len(tabs))
	return nil
}

// prepareSpreadsheet opens or creates the spreadsheet, adds any missing tabs
// and returns the sheet ID of every tab by title.
func (w *Writer) prepareSpreadsheet(ctx context.Context) (map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		created, err := w.api.Create(ctx, newSpreadsheet(w.config))
		if err != nil {
			return nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}
		w.config.SpreadsheetID = created.SpreadsheetId
		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)
		return sheetIDsOf(created), nil
	}

	existing, err := w.api.Get(ctx, w.config.SpreadsheetID)
	if err != nil {
		return nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}
	ids := sheetIDsOf(existing)

	var adds []*sheets.Request
	for _, title := range TabTitles() {
		if _, ok := ids[title]; ok {
			continue
		}
		adds = append(adds, &sheets.Request{
			AddSheet: &sheets.AddSheetRequest{Properties: &sheets.SheetProperties{Title: title}},
		})
	}
	if len(adds) == 0 {
		return ids, nil
	}

	if err := w.api.BatchUpdate(ctx, w.config.SpreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: adds}); err != nil {
		return nil, fmt.Errorf("unable to add tabs: %w", err)
	}
	refreshed, err := w.api.Get(ctx, w.config.SpreadsheetID)
	if err != nil {
		return nil, fmt.Errorf("unable to reload spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}
	return sheetIDsOf(refreshed), nil
}

// writeTab replaces a tab's values, in batches to stay under API limits.
func (w *Writer) writeTab(ctx context.Context, spreadsheetID string, tab Tab) error {
	if err := w.api.Clear(ctx, spreadsheetID, tabRange(tab.Title, "A:Z")); err != nil {
		return fmt.Errorf("failed to clear tab: %w", err)
	}

	for i := 0; i < len(tab.Rows); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(tab.Rows))
		batch := tab.Rows[i:end]
		if err := w.api.Update(ctx, spreadsheetID, tabRange(tab.Title, fmt.Sprintf("A%d", i+1)), batch); err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}
		w.logger.Debug("wrote batch", "tab", tab.Title, "start_row", i+1, "rows", len(batch))
	}
	return nil
}

func newSpreadsheet(config Config) *sheets.Spreadsheet {
	s := &sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    config.SpreadsheetName,
			TimeZone: config.TimeZone,
			Locale:   "es_ES",
		},
	}
	for _, title := range TabTitles() {
		s.Sheets = append(s.Sheets, &sheets.Sheet{Properties: &sheets.SheetProperties{Title: title}})
	}
	return s
}

func sheetIDsOf(s *sheets.Spreadsheet) map[string]int64 {
	ids := make(map[string]int64, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return ids
}

// tabRange quotes the tab title for A1 notation.
func tabRange(title, cells string) string {
	return fmt.Sprintf("'%s'!%s", title, cells)
}

// formatRequests bolds and freezes each tab's header, formats the amount
// column as euros and fits the column widths.
func formatRequests(tabs []Tab, sheetIDs map[string]int64, currencyPattern string) []*sheets.Request {
	var requests []*sheets.Request
	for _, tab := range tabs {
		id, ok := sheetIDs[tab.Title]
		if !ok || len(tab.Rows) == 0 {
			continue
		}
		rows := int64(len(tab.Rows))
		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:       id,
						StartRowIndex: 0,
						EndRowIndex:   int64(tab.HeaderRows),
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:          id,
						StartRowIndex:    int64(tab.HeaderRows),
						EndRowIndex:      rows,
						StartColumnIndex: int64(tab.CurrencyColumn),
						EndColumnIndex:   int64(tab.CurrencyColumn + 1),
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							NumberFormat: &sheets.NumberFormat{
								Type:    "CURRENCY",
								Pattern: currencyPattern,
							},
						},
					},
					Fields: "userEnteredFormat.numberFormat",
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId: id,
						GridProperties: &sheets.GridProperties{
							FrozenRowCount: int64(tab.HeaderRows),
						},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    id,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   int64(tab.CurrencyColumn + 1),
					},
				},
			},
		)
	}
	return requests
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := oauthConfig(config.ClientID, config.ClientSecret, "")
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// classifyAPIError tells WithRetry how to treat an API failure: rate limits
// wait the longest, server errors retry, other client errors stop at once.
func classifyAPIError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", common.ErrRateLimit, err)
	case apiErr.Code >= http.StatusInternalServerError:
		return &common.RetryableError{Err: err, Retryable: true}
	case apiErr.Code >= http.StatusBadRequest:
		return common.Permanent(err)
	default:
		return err
	}
}

// apiClient adapts *sheets.Service to spreadsheetAPI.
type apiClient struct {
	srv *sheets.Service
}

func (c apiClient) Get(ctx context.Context, id string) (*sheets.Spreadsheet, error) {
	s, err := c.srv.Spreadsheets.Get(id).Context(ctx).Do()
	if err != nil {
		return nil, classifyAPIError(err)
	}
	return s, nil
}

func (c apiClient) Create(ctx context.Context, s *sheets.Spreadsheet) (*sheets.Spreadsheet, error) {
	created, err := c.srv.Spreadsheets.Create(s).Context(ctx).Do()
	if err != nil {
		return nil, classifyAPIError(err)
	}
	return created, nil
}

func (c apiClient) BatchUpdate(ctx context.Context, id string, req *sheets.BatchUpdateSpreadsheetRequest) error {
	if _, err := c.srv.Spreadsheets.BatchUpdate(id, req).Context(ctx).Do(); err != nil {
		return classifyAPIError(err)
	}
	return nil
}

func (c apiClient) Clear(ctx context.Context, id, rangeStr string) error {
	if _, err := c.srv.Spreadsheets.Values.Clear(id, rangeStr, &sheets.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return classifyAPIError(err)
	}
	return nil
}

func (c apiClient) Update(ctx context.Context, id, rangeStr string, values [][]any) error {
	_, err := c.srv.Spreadsheets.Values.Update(id, rangeStr, &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return classifyAPIError(err)
	}
	return nil
}
