package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"NewsletterCurator/internal/app"
	"NewsletterCurator/internal/config"
	"NewsletterCurator/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single curation cycle and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}

	if *once {
		err = application.RunOnce(ctx)
	} else {
		err = application.Run(ctx)
	}
	if err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
