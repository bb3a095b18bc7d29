package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/chaz8081/flic2-bridge/internal/bridge"
	"github.com/chaz8081/flic2-bridge/internal/config"
	"github.com/chaz8081/flic2-bridge/internal/flic2"
)

func usage() {
	fmt.Fprintf(os.Stderr, "usage: flic2ctl [flags] <command> [args]\n\ncommands:\n%s\nflags:\n", commandUsage())
	flag.PrintDefaults()
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/flic2-bridge/config.yaml)")
	bridgeURL := flag.String("url", "", "bridge URL (overrides bridge.url)")
	token := flag.String("token", "", "bridge token (overrides bridge.token)")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *bridgeURL != "" {
		cfg.Bridge.URL = *bridgeURL
	}
	if *token != "" {
		cfg.Bridge.Token = *token
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	// Commands print their own output; only warnings go to stderr.
	level := config.ParseLogLevel(cfg.LogLevel)
	if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		printError(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// loadConfig loads path when given, otherwise the default config file if
// it exists.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadOrDefault(config.DefaultConfigPath())
}

func run(ctx context.Context, cfg *config.Config) error {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.Bridge.Timeout)
	client, err := bridge.Dial(dialCtx, cfg.Bridge.URL, cfg.Bridge.Token, slog.Default())
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	m := flic2.New(client)
	configureCtx, cancel := context.WithTimeout(ctx, cfg.Bridge.Timeout)
	defer cancel()
	if err := m.ConfigureWithDelegate(configureCtx, cfg.Manager.Background, flic2.Handlers{}); err != nil {
		return err
	}
	if err := m.WaitRestored(configureCtx); err != nil {
		return fmt.Errorf("waiting for restore: %w", err)
	}

	err = dispatch(ctx, &env{m: m, out: os.Stdout, timeout: cfg.Bridge.Timeout}, flag.Args())
	if errors.Is(err, errUsage) {
		usage()
	}
	return err
}
