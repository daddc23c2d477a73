package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/carga/internal/cli"
	"github.com/Veraticus/carga/internal/common"
	"github.com/Veraticus/carga/internal/service"
	"github.com/Veraticus/carga/internal/storage"
	"github.com/spf13/cobra"
)

// deletion is one destructive selection the delete command can run.
type deletion struct {
	run    func(ctx context.Context, store *storage.SQLiteStorage) (int64, error)
	filter service.RecordFilter
	what   string
}

func deleteCmd() *cobra.Command {
	var (
		month        string
		week         string
		batch        string
		all          bool
		yes          bool
		noCheckpoint bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete stored records by month, week, upload or all of them",
		Long: `Delete stored records. Exactly one selection flag is required.

A checkpoint is taken automatically before anything is deleted; restore it
with 'carga checkpoint restore' if the deletion was a mistake.`,
		Example: `  carga delete --month "feb 2026"
  carga delete --week "Semana 7 - 2026" --yes
  carga delete --batch 5f0c...
  carga delete --all`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			d, err := selectDeletion(month, week, batch, all)
			if err != nil {
				return err
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			count, err := store.CountRecords(ctx, d.filter)
			if err != nil {
				return err
			}
			if count == 0 && !all {
				fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render(fmt.Sprintf("No records in %s. Nothing to delete.", d.what)))
				return nil
			}

			if !yes {
				question := fmt.Sprintf("Delete %d records in %s?", count, d.what)
				ok, err := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), cmd.OutOrStdout(), question)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.SubtleStyle.Render("Deletion canceled."))
					return nil
				}
			}

			if !noCheckpoint {
				manager, err := store.NewCheckpointManager()
				if err != nil {
					return fmt.Errorf("failed to create checkpoint manager: %w", err)
				}
				info, err := manager.AutoCheckpoint(ctx, "delete "+d.what)
				if err != nil {
					return common.NewUserError("could not take a checkpoint before deleting; use --no-checkpoint to skip it", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Checkpoint " + info.ID + " taken"))
			}

			deleted, err := d.run(ctx, store)
			if err != nil {
				return fmt.Errorf("failed to delete %s: %w", d.what, err)
			}
			common.LogInfo("Deleted records", common.Fields{"selection": d.what, "deleted": deleted})
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted %d records in %s", deleted, d.what)))
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", `month key, e.g. "feb 2026"`)
	cmd.Flags().StringVar(&week, "week", "", `week key, e.g. "Semana 7 - 2026"`)
	cmd.Flags().StringVar(&batch, "batch", "", "upload batch ID (see 'carga uploads')")
	cmd.Flags().BoolVar(&all, "all", false, "delete every record and upload")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	cmd.Flags().BoolVar(&noCheckpoint, "no-checkpoint", false, "do not take a checkpoint first")
	cmd.MarkFlagsMutuallyExclusive("month", "week", "batch", "all")

	return cmd
}

func selectDeletion(month, week, batch string, all bool) (deletion, error) {
	switch {
	case month != "":
		return deletion{
			what:   "month " + month,
			filter: service.RecordFilter{Month: month},
			run: func(ctx context.Context, s *storage.SQLiteStorage) (int64, error) {
				return s.DeleteByMonth(ctx, month)
			},
		}, nil
	case week != "":
		return deletion{
			what:   week,
			filter: service.RecordFilter{Week: week},
			run: func(ctx context.Context, s *storage.SQLiteStorage) (int64, error) {
				return s.DeleteByWeek(ctx, week)
			},
		}, nil
	case batch != "":
		return deletion{
			what:   "upload " + batch,
			filter: service.RecordFilter{BatchID: batch},
			run: func(ctx context.Context, s *storage.SQLiteStorage) (int64, error) {
				return s.DeleteBatch(ctx, batch)
			},
		}, nil
	case all:
		return deletion{
			what: "all data",
			run: func(ctx context.Context, s *storage.SQLiteStorage) (int64, error) {
				return s.DeleteAll(ctx)
			},
		}, nil
	default:
		return deletion{}, common.NewUserError("choose what to delete with --month, --week, --batch or --all", common.ErrInvalidConfig)
	}
}
