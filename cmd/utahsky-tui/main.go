// utahsky-tui shows aircraft over Utah in the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/unklstewy/opensky-utah/internal/app"
	"github.com/unklstewy/opensky-utah/internal/observability"
	"github.com/unklstewy/opensky-utah/pkg/config"
	"github.com/unklstewy/opensky-utah/pkg/region"
)

func main() {
	configPath := flag.String("config", "configs/config.json", "Path to configuration file")
	logPath := flag.String("log", "", "Write logs to this file (default: discard)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var logOut io.Writer = io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := observability.NewLoggerTo(logOut, cfg.Logging.Level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer rt.Close()

	// Initial load runs before the UI so the first frame has data.
	rt.Start(ctx)

	p := tea.NewProgram(newModel(ctx, rt.Service, region.Utah), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
