package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-timetable-viewer/internal/cli"
	"github.com/noah-isme/sma-timetable-viewer/internal/dto"
	"github.com/noah-isme/sma-timetable-viewer/internal/service"
	"github.com/noah-isme/sma-timetable-viewer/pkg/config"
	"github.com/noah-isme/sma-timetable-viewer/pkg/export"
	"github.com/noah-isme/sma-timetable-viewer/pkg/solver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	app := &cli.App{
		Config: cfg,
		Connect: func(cfg *config.Config, logr *zap.Logger, onSettle func(dto.PollStatus)) (cli.Timetable, error) {
			if cfg.Solver.BaseURL == "" {
				return nil, fmt.Errorf("solver URL is not configured (set SOLVER_BASE_URL or --solver-url)")
			}
			client := solver.NewClient(solver.Config{
				BaseURL:            cfg.Solver.BaseURL,
				Timeout:            cfg.Solver.Timeout,
				BreakerFailures:    cfg.Solver.BreakerFailures,
				BreakerOpenTimeout: cfg.Solver.BreakerOpenTimeout,
				Logger:             logr,
			})
			return service.NewTimetableService(client, service.TimetableDeps{
				Exporter: service.NewExportService(export.NewCSVExporter(), export.NewPDFExporter(), logr),
			}, service.TimetableConfig{
				Namespace:  cfg.Poller.NamespacePrefix,
				RetryDelay: cfg.Poller.RetryDelay,
				OnSettle:   onSettle,
			}, logr), nil
		},
	}
	return cli.NewRootCmd(app).Execute()
}
