package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"property-ingest/api"
	"property-ingest/models"
	"property-ingest/scraper/listings"
)

type ImportCommand struct {
	File    string `short:"f" long:"file" required:"true" description:"CSV (.csv, .txt) or spreadsheet (.xlsx) to import"`
	Variant string `long:"variant" choice:"listing" choice:"sold" default:"listing" description:"Ingestion variant"`
	ReportOptions
}

func (c *ImportCommand) Execute(args []string) error {
	ctx := rootCtx
	app, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read %s: %w", c.File, err)
	}

	result, err := app.pipeline.ImportFile(ctx, filepath.Base(c.File), data, models.ParseVariant(c.Variant))
	if err != nil {
		return err
	}
	return app.report(ctx, result, c.ReportOptions)
}

type SoldCommand struct {
	Postcode string `short:"p" long:"postcode" required:"true" description:"Postcode to fetch sold prices for"`
	Limit    int    `long:"limit" default:"100" description:"Maximum number of transactions"`
	ReportOptions
}

func (c *SoldCommand) Execute(args []string) error {
	ctx := rootCtx
	app, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	result, err := app.pipeline.ImportSold(ctx, c.Postcode, c.Limit)
	if err != nil {
		return err
	}
	return app.report(ctx, result, c.ReportOptions)
}

type ScrapeCommand struct {
	URL     string `short:"u" long:"url" required:"true" description:"First search results page"`
	Pages   int    `long:"pages" default:"1" description:"Maximum result pages to follow"`
	PerPage int    `long:"per-page" default:"25" description:"Maximum listings read per page"`
	ReportOptions
}

func (c *ScrapeCommand) Execute(args []string) error {
	ctx := rootCtx
	app, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	scraper := listings.New(listings.Options{
		StartURL:       c.URL,
		Pages:          c.Pages,
		PerPage:        c.PerPage,
		MaxConcurrency: app.cfg.MaxConcurrency,
		RateLimitMs:    app.cfg.RateLimitMs,
		MaxRetries:     app.cfg.MaxRetries,
		ChromeBin:      app.cfg.ChromeBin,
	}, app.logger)

	headers, rows, err := scraper.Scrape(ctx)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}
	if len(rows) == 0 {
		return errors.New("no listings were scraped")
	}

	result := app.pipeline.ImportRows(ctx, headers, rows, models.VariantListing)
	return app.report(ctx, result, c.ReportOptions)
}

type ServeCommand struct {
	Port string `long:"port" env:"HTTP_PORT" description:"HTTP listen port"`
}

func (c *ServeCommand) Execute(args []string) error {
	ctx := rootCtx
	app, err := newApplication(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	port := c.Port
	if port == "" {
		port = app.cfg.HTTPPort
	}

	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(app.pipeline, app.cfg.MaxUploadBytes, app.logger)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           api.NewServer(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info("HTTP API listening on :%s", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	app.logger.Info("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
