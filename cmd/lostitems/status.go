package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jeonglab2/lost-items-desktop/internal/config"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <item-id> <status>",
		Short: "Record a custody change for an item",
		Long: `Mark an item as returned to its owner (返還済), handed over to the
police (警察届出済), or back in storage (保管中).`,
		Args: cobra.ExactArgs(2),
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	itemID := args[0]

	status, err := model.ParseStatus(args[1])
	if err != nil {
		return fmt.Errorf("%w (use 保管中, 返還済 or 警察届出済)", err)
	}

	store, err := initStorage(ctx, config.Load())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.UpdateItemStatus(ctx, itemID, status); err != nil {
		return err
	}

	slog.Info("Updated item status", "item_id", itemID, "status", string(status))
	return nil
}
