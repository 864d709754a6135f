// utahsky-term is a tview dashboard of aircraft over Utah.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/unklstewy/opensky-utah/internal/app"
	"github.com/unklstewy/opensky-utah/internal/observability"
	"github.com/unklstewy/opensky-utah/pkg/config"
)

var (
	// Version information (set by build flags)
	version = "dev"
	commit  = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("utahsky-term version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ui := NewApp(ctx)
	logger := observability.NewLoggerTo(ui.LogWriter(), cfg.Logging.Level)

	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer rt.Close()

	ui.Attach(rt.Service)
	go rt.Start(ctx)

	runErr := ui.Run()
	cancel()
	if runErr != nil {
		log.Fatalf("Application error: %v", runErr)
	}
}
