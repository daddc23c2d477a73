package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/carga/internal/billing"
	"github.com/Veraticus/carga/internal/cli"
	"github.com/Veraticus/carga/internal/common"
	"github.com/Veraticus/carga/internal/config"
	"github.com/Veraticus/carga/internal/service"
	"github.com/Veraticus/carga/internal/sheets"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// newReportWriter opens the export destination.
var newReportWriter = func(ctx context.Context, cfg sheets.Config) (service.ReportWriter, error) {
	w, err := sheets.NewWriter(ctx, cfg, slog.Default())
	if err != nil {
		return nil, err
	}
	return w, nil
}

func exportCmd() *cobra.Command {
	var (
		filters       reportFilters
		spreadsheetID string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Publish a summary to Google Sheets",
		Long: `Write the selected records' summary to a Google Sheets spreadsheet with one
tab each for the overview, drivers, clients, months and weeks. Existing tab
contents are replaced.

Credentials come from the sheets section of the config file or from the
GOOGLE_SHEETS_* environment variables. Run 'carga export auth' once to get
an OAuth2 refresh token.`,
		Example: `  carga export --month "feb 2026"
  carga export --department Norte --spreadsheet 1AbC...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			v := viper.GetViper()
			if spreadsheetID != "" {
				v.Set("sheets.spreadsheet_id", spreadsheetID)
			}

			sheetsConfig, err := config.LoadSheetsConfig(v)
			if err != nil {
				return common.NewUserError("Google Sheets is not configured", err)
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := loadRecords(ctx, store, &filters)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				return common.NewUserError("no records match the selection", common.ErrNoRecords)
			}

			w, err := newReportWriter(ctx, *sheetsConfig)
			if err != nil {
				return err
			}

			period := service.ReportPeriod{Label: filters.label(), Department: filters.department}
			if err := w.Write(ctx, billing.Fold(records), period); err != nil {
				return fmt.Errorf("%w: %w", common.ErrExportFailed, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d records", len(records))))
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet", "", "spreadsheet ID (default: sheets.spreadsheet_id, or create a new one)")
	cmd.AddCommand(exportAuthCmd())
	return cmd
}

func exportAuthCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize carga to write to Google Sheets",
		Long: `Run the OAuth2 flow in a browser and save the resulting token. Put the
printed refresh token in sheets.refresh_token or GOOGLE_SHEETS_REFRESH_TOKEN.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.GetViper()
			clientID := v.GetString("sheets.client_id")
			clientSecret := v.GetString("sheets.client_secret")
			if clientID == "" || clientSecret == "" {
				return common.NewUserError("set sheets.client_id and sheets.client_secret first", common.ErrMissingConfig)
			}

			token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    config.SheetsTokenFile(v),
				CallbackAddr: addr,
			})
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Authorized"))
			fmt.Fprintln(cmd.OutOrStdout(), "Refresh token: " + token.RefreshToken)
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "callback", "localhost:8080", "address for the OAuth2 callback server")
	return cmd
}
