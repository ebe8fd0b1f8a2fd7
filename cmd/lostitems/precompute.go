package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/jeonglab2/lost-items-desktop/internal/common"
	"github.com/jeonglab2/lost-items-desktop/internal/config"
)

func precomputeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "precompute",
		Short: "Precompute category embedding vectors",
		Long: `Embed every category's keyword text with the configured ONNX model
and write the vectors to the vector file. Run this after editing
the taxonomy; vector matching stays off until the vectors exist.`,
		RunE: runPrecompute,
	}

	cmd.Flags().String("out", "", "output vector file (overrides taxonomy.vectors_path)")

	return cmd
}

func runPrecompute(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	settings := config.Load()
	if out, _ := cmd.Flags().GetString("out"); out != "" {
		settings.VectorsPath = out
	}
	if settings.VectorsPath == "" {
		return fmt.Errorf("no vector output path, set taxonomy.vectors_path or pass --out")
	}
	if settings.ModelPath == "" {
		return fmt.Errorf("no embedding model configured, set embedding.model_path")
	}

	tax, err := loadTaxonomy(settings)
	if err != nil {
		return err
	}

	emb, err := openEmbedder(settings)
	if err != nil {
		return err
	}
	defer func() { _ = emb.Close() }()

	bar := progressbar.NewOptions(tax.Len(),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Embedding categories..."),
	)

	embed := func(ctx context.Context, text string) ([]float32, error) {
		var vec []float32
		err := common.WithRetry(ctx, func() error {
			var embedErr error
			vec, embedErr = emb.Embed(ctx, text)
			return embedErr
		}, common.RetryOptions{MaxAttempts: 3})
		return vec, err
	}

	vs, err := tax.BuildVectors(ctx, embed, emb.Version(), func(done, total int) {
		_ = bar.Set(done)
	})
	if err != nil {
		return err
	}

	if err := vs.Save(settings.VectorsPath); err != nil {
		return fmt.Errorf("failed to write vectors: %w", err)
	}

	slog.Info("Precomputed category vectors",
		"categories", len(vs.Entries),
		"dimension", vs.Dimension,
		"model", vs.ModelVersion,
		"path", settings.VectorsPath)
	return nil
}
