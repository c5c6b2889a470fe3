package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/tipshjalpen/resultat/internal/config"
	"github.com/tipshjalpen/resultat/internal/logger"
	"github.com/tipshjalpen/resultat/internal/processor"
)

func main() {
	configPath := flag.String("config", "", "config file (default $TIPSHJALPEN_CONFIG or ~/.config/tipshjalpen/config.toml)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	logTo := flag.String("log", "c", "log destination: c console (stderr), f file, b both")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: tipshjalpen [-config file] [-debug] [-log c|f|b] <command> [args]\n\n%s", processor.Usage())
		flag.PrintDefaults()
	}
	flag.Parse()

	logger.SetShowDateTime(true)
	mode := 'c'
	if *logTo != "" {
		mode = rune((*logTo)[0])
	}
	if err := logger.SetLogOutput(mode); err != nil {
		logger.Warn("Falling back to console logging", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Failed to load config", err)
		os.Exit(1)
	}

	level, _ := logger.ParseLevel(cfg.LogLevel)
	if *debug {
		level = logger.DEBUG
	}
	logger.SetLevel(level)
	logger.Debug("Using config", cfg)

	p, err := processor.New(cfg, os.Stdout)
	if err != nil {
		logger.Error("Invalid configuration", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx, flag.Args()); err != nil {
		if errors.Is(err, processor.ErrUsage) {
			fmt.Fprintln(os.Stderr, err)
			flag.Usage()
			os.Exit(2)
		}
		logger.Error("Command failed", err)
		os.Exit(1)
	}
}
