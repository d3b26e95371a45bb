package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
)

// Options are the global flags shared by every command.
type Options struct {
	LogLevel  string `long:"log-level" env:"LOG_LEVEL" description:"debug, info, warn or error"`
	Store     string `long:"store" env:"STORE_DRIVER" choice:"postgres" choice:"sqlite" description:"Record store backend"`
	ChunkSize int    `long:"chunk-size" env:"CHUNK_SIZE" description:"Records imported concurrently per chunk"`

	Import ImportCommand `command:"import" description:"Import a CSV or spreadsheet file"`
	Sold   SoldCommand   `command:"sold" description:"Import sold prices for a postcode"`
	Scrape ScrapeCommand `command:"scrape" description:"Scrape listing pages and import them"`
	Serve  ServeCommand  `command:"serve" description:"Serve the HTTP import API"`
}

var (
	opts    Options
	rootCtx = context.Background()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	rootCtx = ctx

	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		stop()
		os.Exit(1)
	}
}
