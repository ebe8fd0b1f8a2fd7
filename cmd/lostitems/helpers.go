package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/jeonglab2/lost-items-desktop/internal/config"
	"github.com/jeonglab2/lost-items-desktop/internal/counter"
	"github.com/jeonglab2/lost-items-desktop/internal/embedding"
	"github.com/jeonglab2/lost-items-desktop/internal/engine"
	"github.com/jeonglab2/lost-items-desktop/internal/idgen"
	"github.com/jeonglab2/lost-items-desktop/internal/registration"
	"github.com/jeonglab2/lost-items-desktop/internal/slot"
	"github.com/jeonglab2/lost-items-desktop/internal/storage"
	"github.com/jeonglab2/lost-items-desktop/internal/taxonomy"
)

// initStorage opens the item database with proper path expansion and runs
// migrations.
func initStorage(ctx context.Context, settings config.Settings) (*storage.SQLiteStorage, error) {
	if err := config.EnsureDataDir(settings.DatabasePath); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(settings.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadTaxonomy loads the configured taxonomy, or the built-in one when no
// path is configured, and attaches precomputed vectors when present.
func loadTaxonomy(settings config.Settings) (*taxonomy.Store, error) {
	tax := taxonomy.Default()
	if settings.TaxonomyPath != "" {
		loaded, err := taxonomy.Load(settings.TaxonomyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load taxonomy: %w", err)
		}
		tax = loaded
	}

	if settings.VectorsPath != "" {
		vs, err := taxonomy.LoadVectors(settings.VectorsPath)
		switch {
		case errors.Is(err, os.ErrNotExist):
			slog.Warn("Vector file not found, keyword matching only", "path", settings.VectorsPath)
		case err != nil:
			return nil, fmt.Errorf("failed to load vectors: %w", err)
		default:
			attached, err := tax.AttachVectors(vs)
			if err != nil {
				return nil, fmt.Errorf("failed to attach vectors: %w", err)
			}
			slog.Debug("Attached category vectors", "count", attached)
		}
	}

	return tax, nil
}

// openEmbedder creates the ONNX embedder when a model is configured. A nil
// embedder means the suggester runs on keyword matching alone.
func openEmbedder(settings config.Settings) (embedding.Embedder, error) {
	if settings.ModelPath == "" {
		return nil, nil
	}

	emb, err := embedding.NewBERTEmbedder(embedding.Config{
		ModelPath:   settings.ModelPath,
		VocabPath:   settings.VocabPath,
		LibraryPath: settings.LibraryPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load embedding model: %w", err)
	}
	return emb, nil
}

// buildService wires storage, taxonomy, suggester, identifier generator, and
// slot allocator into a registration service. The returned cleanup closes the
// embedder if one was opened; the caller owns the storage handle.
func buildService(settings config.Settings, store *storage.SQLiteStorage, tax *taxonomy.Store) (*registration.Service, func(), error) {
	emb, err := openEmbedder(settings)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if emb != nil {
			_ = emb.Close()
		}
	}

	engineCfg := engine.DefaultConfig()
	if settings.EmbedTimeout > 0 {
		engineCfg.EmbedTimeout = settings.EmbedTimeout
	}
	if settings.TopN > 0 {
		engineCfg.TopN = settings.TopN
	}

	suggester, err := engine.New(tax, emb, engineCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	// Counters share the item database so identifier and box sequences
	// survive restarts.
	counters, err := counter.NewSQLiteStoreFromDB(store.DB())
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to open counter store: %w", err)
	}

	svc := registration.New(
		suggester,
		idgen.New(counters),
		slot.New(counters, slotConfig()),
		store,
		tax,
	)
	if emb != nil {
		svc.EnableSemanticIndex(emb, store)
	}
	return svc, cleanup, nil
}

// slotConfig merges configured marker lists over the defaults.
func slotConfig() slot.Config {
	cfg := slot.DefaultConfig()
	if v := configuredList("slots.umbrella_labels"); v != nil {
		cfg.UmbrellaLabels = v
	}
	if v := configuredList("slots.food_markers"); v != nil {
		cfg.FoodMarkers = v
	}
	if v := configuredList("slots.frozen_markers"); v != nil {
		cfg.FrozenMarkers = v
	}
	return cfg
}

func configuredList(key string) []string {
	v := viper.GetStringSlice(key)
	if len(v) == 0 {
		return nil
	}
	return v
}
