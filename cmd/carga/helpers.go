package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/carga/internal/billing"
	"github.com/Veraticus/carga/internal/common"
	"github.com/Veraticus/carga/internal/config"
	"github.com/Veraticus/carga/internal/model"
	"github.com/Veraticus/carga/internal/service"
	"github.com/Veraticus/carga/internal/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// envKeyReplacer maps nested keys to env names, e.g. billing.dedup -> CARGA_BILLING_DEDUP.
var envKeyReplacer = strings.NewReplacer(".", "_")

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	v := viper.GetViper()

	batchSize, err := config.BatchSize(v)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStorage(config.DatabasePath(v))
	if err != nil {
		return nil, common.NewUserError("could not open the database", err)
	}
	store.SetBatchSize(batchSize)

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

// reportFilters are the selection flags shared by summary, compare and export.
type reportFilters struct {
	from       string
	to         string
	month      string
	week       string
	department string
	drivers    []string
}

func (f *reportFilters) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.month, "month", "", `month key, e.g. "feb 2026"`)
	cmd.Flags().StringVar(&f.week, "week", "", `week key, e.g. "Semana 7 - 2026"`)
	cmd.Flags().StringVar(&f.department, "department", "", "department tag")
	cmd.Flags().StringVar(&f.from, "from", "", "first date included (2026-02-01 or 01/02/2026)")
	cmd.Flags().StringVar(&f.to, "to", "", "last date included")
	cmd.Flags().StringSliceVar(&f.drivers, "driver", nil, "driver name (repeatable)")
}

// storeFilter narrows what is loaded from the database.
func (f *reportFilters) storeFilter() (service.RecordFilter, error) {
	from, err := parseDateFlag("from", f.from)
	if err != nil {
		return service.RecordFilter{}, err
	}
	to, err := parseDateFlag("to", f.to)
	if err != nil {
		return service.RecordFilter{}, err
	}
	return service.RecordFilter{From: from, To: to, Department: f.department}, nil
}

// aggregateFilters are applied in memory on the loaded records.
func (f *reportFilters) aggregateFilters() []billing.Filter {
	var filters []billing.Filter
	if f.month != "" {
		filters = append(filters, billing.ByMonth(f.month))
	}
	if f.week != "" {
		filters = append(filters, billing.ByWeek(f.week))
	}
	if len(f.drivers) > 0 {
		filters = append(filters, billing.ByDrivers(f.drivers...))
	}
	return filters
}

// label describes the selection for report titles.
func (f *reportFilters) label() string {
	var parts []string
	if f.month != "" {
		parts = append(parts, f.month)
	}
	if f.week != "" {
		parts = append(parts, f.week)
	}
	if f.from != "" || f.to != "" {
		parts = append(parts, fmt.Sprintf("%s to %s", orDots(f.from), orDots(f.to)))
	}
	if len(f.drivers) > 0 {
		parts = append(parts, strings.Join(f.drivers, ", "))
	}
	return strings.Join(parts, " · ")
}

func orDots(s string) string {
	if s == "" {
		return "…"
	}
	return s
}

// loadRecords fetches the records selected by f.
func loadRecords(ctx context.Context, store service.Storage, f *reportFilters) ([]model.CanonicalRecord, error) {
	sf, err := f.storeFilter()
	if err != nil {
		return nil, err
	}
	records, err := store.ListRecords(ctx, sf)
	if err != nil {
		return nil, fmt.Errorf("failed to load records: %w", err)
	}
	return billing.Apply(records, f.aggregateFilters()...), nil
}

// parseDateFlag accepts any date text the spreadsheet normalizer accepts.
func parseDateFlag(name, value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, nil
	}
	d, _, err := billing.NormalizeDate(value)
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("--%s: %q is not a date", name, value), err)
	}
	return d, nil
}
