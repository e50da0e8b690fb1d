package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/benbjohnson/clock"
	"golang.org/x/sync/errgroup"

	"orient/internal/config"
	"orient/internal/orient"
)

func main() {
	os.Exit(run())
}

func run() int {
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to YAML config (empty runs the simulator)")
	flag.Parse()

	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			log.Printf("config load failed: %v", err)
			return 2
		}
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Printf("logger init failed: %v", err)
		return 2
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	clk := clock.New()
	board, table, err := buildBoard(cfg, logger.Named("device"), clk)
	if err != nil {
		logger.Errorw("board init failed", "error", err)
		return 1
	}
	defer func() {
		if err := board.Close(); err != nil {
			logger.Warnw("board close", "error", err)
		}
	}()

	app, err := orient.New(clk, logger.Named("orient"), board)
	if err != nil {
		logger.Errorw("runtime init failed", "error", err)
		return 1
	}

	logger.Infow("orient starting", "sim", cfg.Sim.Enable, "compass", board.HasCompass(), "stepper", board.HasStepper(), "faults", len(board.Faults()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return app.Run(gctx) })
	if table != nil {
		g.Go(func() error {
			reportTurntable(gctx, clk, logger.Named("sim"), board, table)
			return nil
		})
	}

	err = g.Wait()
	logger.Infow("orient stopping")
	if err != nil {
		logger.Errorw("orient halted", "error", err)
		return 1
	}
	return 0
}
