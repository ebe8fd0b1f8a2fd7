package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeonglab2/lost-items-desktop/internal/config"
)

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List the classification taxonomy",
		RunE:  runCategories,
	}
}

func runCategories(_ *cobra.Command, _ []string) error {
	settings := config.Load()

	tax, err := loadTaxonomy(settings)
	if err != nil {
		return err
	}

	cats := tax.Categories()
	rows := make([][]string, len(cats))
	for i, c := range cats {
		vectorized := ""
		if c.HasEmbedding() {
			vectorized = "✓"
		}
		rows[i] = []string{c.Large, c.Medium, strings.Join(c.Keywords, " "), vectorized}
	}

	fmt.Println(renderTable([]string{"大分類", "中分類", "キーワード", "ベクトル"}, rows, nil))
	fmt.Printf("%d categories, taxonomy version %s\n", tax.Len(), tax.Version())
	return nil
}
