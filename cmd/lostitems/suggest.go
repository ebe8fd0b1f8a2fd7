package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeonglab2/lost-items-desktop/internal/config"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
)

func suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest [description...]",
		Short: "Suggest categories for an item description",
		Long: `Rank taxonomy categories for a free-text item description.
The arguments form the item name; add features and color
with flags for a richer query.

Example:
  lostitems suggest 黒い折りたたみ傘 --color 黒`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSuggest,
	}

	cmd.Flags().String("features", "", "item features (scratches, brand, contents)")
	cmd.Flags().String("color", "", "item color")
	cmd.Flags().Int("top", 0, "number of suggestions (default from config)")

	return cmd
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	settings := config.Load()

	store, err := initStorage(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	tax, err := loadTaxonomy(settings)
	if err != nil {
		return err
	}

	svc, cleanup, err := buildService(settings, store, tax)
	if err != nil {
		return err
	}
	defer cleanup()

	features, _ := cmd.Flags().GetString("features")
	color, _ := cmd.Flags().GetString("color")
	topN, _ := cmd.Flags().GetInt("top")

	rankings, err := svc.Suggest(ctx, model.ClassificationQuery{
		Name:     strings.Join(args, " "),
		Features: features,
		Color:    color,
	}, topN)
	if err != nil {
		return err
	}

	rows := make([][]string, len(rankings))
	for i, rk := range rankings {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			rk.Category.Large,
			rk.Category.Medium,
			fmt.Sprintf("%d%%", rk.ConfidencePercent()),
			rk.MatchedKeyword,
		}
	}

	fmt.Println(renderTable(
		[]string{"#", "大分類", "中分類", "確度", "一致キーワード"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}
