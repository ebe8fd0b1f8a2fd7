package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeonglab2/lost-items-desktop/internal/config"
	"github.com/jeonglab2/lost-items-desktop/internal/relocate"
)

func relocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relocate",
		Short: "Move items past the retention window to long-term storage",
		Long: `Scan items still in storage and move those held longer than the
retention window to long-term locations. The batch takes a file
lock so concurrent runs cannot double-move items.`,
		RunE: runRelocate,
	}

	cmd.Flags().String("as-of", "", "evaluate dwell against this date instead of now")
	cmd.Flags().Bool("dry-run", false, "plan moves without applying them")

	return cmd
}

func runRelocate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := config.Load()

	store, err := initStorage(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	asOf := time.Now()
	if raw, _ := cmd.Flags().GetString("as-of"); raw != "" {
		asOf, err = parseTimeFlag(raw)
		if err != nil {
			return fmt.Errorf("invalid --as-of: %w", err)
		}
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	scheduler := relocate.NewScheduler()

	var report *relocate.Report
	if dryRun {
		items, err := store.GetItemsInStorage(ctx)
		if err != nil {
			return err
		}
		report = scheduler.Relocate(items, asOf)
		slog.Info("Dry run, no moves applied", "planned", len(report.Moves))
	} else {
		runner := relocate.NewRunner(store, scheduler, settings.LockPath)
		report, err = runner.Run(ctx, asOf)
		if err != nil {
			return err
		}
	}

	rows := make([][]string, len(report.Moves))
	for i, m := range report.Moves {
		rows[i] = []string{m.ItemID, m.From, m.To}
	}
	fmt.Println(renderTable([]string{"管理番号", "移動元", "移動先"}, rows, nil))

	for _, f := range report.Failures {
		slog.Warn("Relocation failure", "item_id", f.ItemID, "error", f.Err)
	}
	slog.Info("Relocation batch finished",
		"batch_id", report.BatchID,
		"moved", len(report.Moves),
		"failed", len(report.Failures),
		"skipped", report.Skipped)
	return nil
}
