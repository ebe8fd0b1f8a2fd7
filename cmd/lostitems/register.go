package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeonglab2/lost-items-desktop/internal/config"
	"github.com/jeonglab2/lost-items-desktop/internal/model"
	"github.com/jeonglab2/lost-items-desktop/internal/registration"
)

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register [description...]",
		Short: "Register a found item",
		Long: `Register a found item: classify it, issue its identifier, assign a
storage location, and persist the record.

By default the top category suggestion is accepted. Pass --category
大分類/中分類 to override.

Example:
  lostitems register 黒い財布 --place 3階トイレ --ownership`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRegister,
	}

	cmd.Flags().String("features", "", "item features")
	cmd.Flags().String("color", "", "item color")
	cmd.Flags().String("place", "", "where the item was found")
	cmd.Flags().String("found-at", "", "found timestamp (RFC3339 or 2006-01-02)")
	cmd.Flags().String("category", "", "category override as 大分類/中分類")
	cmd.Flags().Bool("ownership", false, "finder claims ownership rights")
	cmd.Flags().Bool("reward", false, "finder claims a reward")
	cmd.Flags().Bool("food", false, "item is food")
	cmd.Flags().Bool("umbrella", false, "item is an umbrella")

	return cmd
}

func runRegister(cmd *cobra.Command, args []string) error {
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
	place, _ := cmd.Flags().GetString("place")
	foundAtRaw, _ := cmd.Flags().GetString("found-at")
	categoryRaw, _ := cmd.Flags().GetString("category")
	ownership, _ := cmd.Flags().GetBool("ownership")
	reward, _ := cmd.Flags().GetBool("reward")

	var foundAt time.Time
	if foundAtRaw != "" {
		foundAt, err = parseTimeFlag(foundAtRaw)
		if err != nil {
			return fmt.Errorf("invalid --found-at: %w", err)
		}
	}

	var categoryLarge, categoryMedium string
	if categoryRaw != "" {
		parts := strings.SplitN(categoryRaw, "/", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid --category %q, expected 大分類/中分類", categoryRaw)
		}
		categoryLarge, categoryMedium = parts[0], parts[1]
	}

	req := registration.Request{
		FacilityID: settings.FacilityID,
		FoundAt:    foundAt,
		FoundPlace: place,
		Query: model.ClassificationQuery{
			Name:            strings.Join(args, " "),
			Features:        features,
			Color:           color,
			ClaimsOwnership: ownership,
			ClaimsReward:    reward,
			FoodHint:        boolFlagHint(cmd, "food"),
			UmbrellaHint:    boolFlagHint(cmd, "umbrella"),
		},
		CategoryLarge:  categoryLarge,
		CategoryMedium: categoryMedium,
	}

	item, err := svc.Register(ctx, req)
	if err != nil {
		return err
	}

	fmt.Println(renderTable(
		[]string{"管理番号", "大分類", "中分類", "保管場所"},
		[][]string{{item.ID, item.CategoryLarge, item.CategoryMedium, item.StorageLocation}},
		nil,
	))
	return nil
}

// boolFlagHint distinguishes an explicit --flag / --flag=false from the flag
// simply being absent.
func boolFlagHint(cmd *cobra.Command, name string) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetBool(name)
	return &v
}

func parseTimeFlag(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
