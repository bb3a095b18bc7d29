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

	"golang.org/x/sync/errgroup"

	"github.com/chaz8081/flic2-bridge/internal/bridge"
	"github.com/chaz8081/flic2-bridge/internal/config"
	"github.com/chaz8081/flic2-bridge/internal/native"
	"github.com/chaz8081/flic2-bridge/internal/sdk/simulator"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "path to config file (default: ~/.config/flic2-bridge/config.yaml)")
	initConfig := flag.Bool("init", false, "write the default config file and exit")
	console := flag.Bool("console", false, "read simulator commands from stdin")
	flag.Parse()

	if *initConfig {
		path, err := config.WriteDefault()
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		if path == "" {
			log.Printf("Config already exists at %s", config.DefaultConfigPath())
			return
		}
		log.Printf("Wrote default config to %s", path)
		return
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config validation: %v", err)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.ParseLogLevel(cfg.LogLevel),
	})))

	printBanner(cfg)

	sim := simulator.New(cfg.Simulator.PairedSpecs()...)
	sim.RestoreOnConfigure(true)
	for _, d := range cfg.Simulator.DiscoverableButtons() {
		sim.AddDiscoverable(d)
	}

	plugin := native.NewPlugin(sim)
	defer plugin.Close()

	server := bridge.NewServer(plugin, cfg.Bridge.Listen, cfg.Bridge.Token, slog.Default())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Start(gctx) })
	if *console {
		g.Go(func() error { return runConsole(gctx, os.Stdin, os.Stdout, sim) })
	}

	log.Println("Ready! Ctrl+C to quit.")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("host: %v", err)
	}
	log.Println("Goodbye!")
}

// loadConfig loads the config from the specified path, or falls back to
// the default config path, or uses built-in defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	defaultPath := config.DefaultConfigPath()
	if _, err := os.Stat(defaultPath); err == nil {
		cfg, err := config.Load(defaultPath)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", defaultPath, err)
		}
		log.Printf("Config loaded from %s", defaultPath)
		return cfg, nil
	}

	log.Println("No config file found, using defaults")
	return config.Default(), nil
}

// printBanner displays the startup configuration summary.
func printBanner(cfg *config.Config) {
	auth := "off"
	if cfg.Bridge.Token != "" {
		auth = "token"
	}
	fmt.Println("=== flic2-host ===")
	fmt.Printf("  Listen:   %s%s\n", cfg.Bridge.Listen, bridge.Path)
	fmt.Printf("  Auth:     %s\n", auth)
	fmt.Printf("  Paired:   %d button(s)\n", len(cfg.Simulator.Buttons))
	fmt.Printf("  Scanable: %d button(s)\n", len(cfg.Simulator.Discoverable))
	fmt.Printf("  Log:      %s\n", cfg.LogLevel)
	fmt.Println("==================")
}
