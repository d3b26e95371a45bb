package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"property-ingest/config"
	"property-ingest/models"
	"property-ingest/services"
	"property-ingest/sources/postcodes"
	"property-ingest/sources/pricepaid"
	"property-ingest/storage"
	"property-ingest/utils"
)

// application holds the wired components for one command run.
type application struct {
	cfg      *config.Config
	logger   *utils.Logger
	store    storage.PropertyStore
	cache    *storage.EmbeddingCache
	pipeline *services.Pipeline
	insights *services.InsightService
}

func newApplication(ctx context.Context) (*application, error) {
	cfg := config.Load()
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.Store != "" {
		cfg.StoreDriver = opts.Store
	}
	if opts.ChunkSize > 0 {
		cfg.ChunkSize = opts.ChunkSize
	}

	logger := utils.NewLogger(utils.ParseLevel(cfg.LogLevel))
	logger.Info("Config: store %s | chunk size %d | embeddings %t | sold source %t",
		cfg.StoreDriver, cfg.ChunkSize, cfg.EmbeddingURL != "", cfg.PricePaidURL != "")

	dict, err := config.LoadDictionary(cfg.DictionaryPath)
	if err != nil {
		return nil, fmt.Errorf("load dictionary: %w", err)
	}

	app := &application{cfg: cfg, logger: logger, insights: services.NewInsightService(logger)}

	switch cfg.StoreDriver {
	case "sqlite":
		app.store, err = storage.NewSQLiteStore(cfg.SQLitePath, logger)
	case "postgres":
		app.store, err = storage.NewPostgresStore(ctx, cfg.DSN(), logger)
	default:
		err = fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}

	var embedder services.Embedder
	if cfg.EmbeddingURL != "" {
		embedder = services.NewHTTPEmbedder(cfg.EmbeddingURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel,
			cfg.EmbeddingDimensions, cfg.EmbeddingTimeout, cfg.MaxRetries, logger)
		if cfg.RedisAddr != "" {
			cache, err := storage.NewEmbeddingCache(ctx, cfg.RedisAddr, cfg.EmbeddingCacheTTL)
			if err != nil {
				logger.Warn("Embedding cache disabled: %v", err)
			} else {
				app.cache = cache
				embedder = services.NewCachedEmbedder(embedder, cache, cfg.EmbeddingModel, logger)
			}
		}
	} else {
		logger.Warn("EMBEDDING_URL not set, records will be stored without embeddings")
	}
	enricher := services.NewEnricher(embedder, cfg.EmbeddingDimensions, logger)

	importer := services.NewImporter(app.store, enricher, cfg.ChunkSize, logger)
	app.pipeline = services.NewPipeline(
		services.NewMappingDetector(dict, logger),
		services.NewNormalizer(dict, logger),
		importer,
		logger,
	)

	if cfg.PricePaidURL != "" {
		var lookup services.PostcodeLookup
		if cfg.PostcodesURL != "" {
			lookup = postcodes.NewClient(cfg.PostcodesURL, cfg.HTTPTimeout, logger)
		}
		app.pipeline.WithSaleRecords(pricepaid.NewClient(cfg.PricePaidURL, cfg.HTTPTimeout, cfg.MaxRetries, logger), lookup)
	}

	return app, nil
}

func (a *application) Close() {
	if a.cache != nil {
		_ = a.cache.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

// ReportOptions are shared by the commands that run an import.
type ReportOptions struct {
	ErrorsCSV string `long:"errors-csv" description:"Write failed rows to this CSV file"`
	Insights  bool   `long:"insights" description:"Print a summary of the imported records"`
}

// report prints the import outcome and writes the optional error CSV and insights.
func (a *application) report(ctx context.Context, result models.ImportResult, ro ReportOptions) error {
	fmt.Printf("\n  Imported %d of %d records (%d failed)\n", result.Successful, result.Total, result.Failed)
	if lines := storage.Lines(result); len(lines) > 0 {
		fmt.Printf("  %s\n", strings.Join(lines, "\n  "))
	}

	if ro.ErrorsCSV != "" {
		w, err := storage.NewReportWriter(ro.ErrorsCSV)
		if err != nil {
			return err
		}
		if err := w.Write(result); err != nil {
			_ = w.Close()
			return err
		}
		if err := w.Close(); err != nil {
			return err
		}
		a.logger.Info("Failed rows written to %s", ro.ErrorsCSV)
	}

	if ro.Insights && result.Successful > 0 {
		records, err := a.store.List(ctx, result.Successful)
		if err != nil {
			return fmt.Errorf("load records for insights: %w", err)
		}
		a.insights.Print(os.Stdout, a.insights.Generate(records))
	}
	return nil
}
