package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"

	"github.com/rtm0/nwmpoint/internal/config"
	"github.com/rtm0/nwmpoint/internal/job"
	"github.com/rtm0/nwmpoint/internal/observability"
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s %s\n", os.Args[0], config.Usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(flag.Args())
	if err != nil {
		slog.Error("Could not load config", "err", err)
		os.Exit(2)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := job.Run(ctx, cfg, logger, clockwork.NewRealClock())
	if err != nil {
		logger.Error("Extraction failed", "err", fmt.Sprintf("%+v", err))
		stop()
		os.Exit(1)
	}
	logger.Info("Extraction summary", res.LogAttrs()...)
	fmt.Println(res.Elapsed)
}
