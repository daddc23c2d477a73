package main

import (
	"fmt"
	"time"

	"github.com/Veraticus/carga/internal/billing"
	"github.com/Veraticus/carga/internal/cli"
	"github.com/Veraticus/carga/internal/service"
	"github.com/spf13/cobra"
)

func summaryCmd() *cobra.Command {
	var (
		filters reportFilters
		top     int
	)

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show totals by driver, client, month and week",
		Example: `  # Everything stored
  carga summary

  # One month, top 10 drivers and clients
  carga summary --month "feb 2026" --top 10

  # One driver over a date range
  carga summary --driver "Juan Pérez" --from 01/01/2026 --to 31/03/2026`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := loadRecords(ctx, store, &filters)
			if err != nil {
				return err
			}

			title := "Billing summary"
			if l := filters.label(); l != "" {
				title += ": " + l
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderSummary(title, billing.Fold(records), top))
			return nil
		},
	}

	filters.register(cmd)
	cmd.Flags().IntVar(&top, "top", 0, "rows to show in the driver and client tables (0 shows all)")
	return cmd
}

func compareCmd() *cobra.Command {
	var filters reportFilters

	cmd := &cobra.Command{
		Use:   "compare <driver> <driver>...",
		Short: "Compare drivers side by side",
		Example: `  carga compare "Juan Pérez" "Ana López" --month "feb 2026"`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := loadRecords(ctx, store, &filters)
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), cli.RenderRanked("Driver comparison", "DRIVER", billing.CompareDrivers(records, args), 0))
			return nil
		},
	}

	filters.register(cmd)
	return cmd
}

func periodsCmd() *cobra.Command {
	var (
		month      string
		department string
		drivers    bool
	)

	cmd := &cobra.Command{
		Use:   "periods",
		Short: "List the months, weeks and drivers with stored records",
		Example: `  # Months newest first, then weeks oldest first
  carga periods

  # Weeks of one month only
  carga periods --month "feb 2026"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			records, err := store.ListRecords(ctx, service.RecordFilter{Department: department})
			if err != nil {
				return fmt.Errorf("failed to load records: %w", err)
			}

			if month == "" {
				fmt.Fprintln(cmd.OutOrStdout(), cli.RenderPeriods("Months", "MONTH", billing.AvailableMonths(records)))
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderPeriods("Weeks", "WEEK", billing.AvailableWeeks(records, month)))

			if drivers {
				fmt.Fprintln(cmd.OutOrStdout())
				fmt.Fprintln(cmd.OutOrStdout(), cli.InfoStyle.Render("Drivers"))
				for _, name := range billing.Drivers(billing.Apply(records, monthFilter(month)...)) {
					fmt.Fprintln(cmd.OutOrStdout(), "  " + name)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "only weeks with records in this month")
	cmd.Flags().StringVar(&department, "department", "", "department tag")
	cmd.Flags().BoolVar(&drivers, "drivers", false, "also list driver names")
	return cmd
}

func monthFilter(month string) []billing.Filter {
	if month == "" {
		return nil
	}
	return []billing.Filter{billing.ByMonth(month)}
}

func uploadsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "uploads",
		Short: "List recent uploads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			batches, err := store.ListBatches(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cli.RenderBatches(batches, time.Now()))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "uploads to show (0 shows all)")
	return cmd
}
