// Command faceton runs the facet merge coordinator.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/faceton/faceton/internal/app"
	"github.com/faceton/faceton/internal/config"
)

var version = "dev"

func main() {
	var (
		configPath  = flag.String("config", "", "path to YAML configuration file")
		dataDir     = flag.String("data-dir", "", "data directory (overrides config)")
		httpAddr    = flag.String("http-addr", "", "HTTP listen address (overrides config)")
		logLevel    = flag.String("log-level", "info", "log level (debug, info, warn, error)")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("faceton %s\n", version)
		os.Exit(0)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(*logLevel); err == nil {
		log.SetLevel(level)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *httpAddr != "" {
		cfg.HTTP.Addr = *httpAddr
	}

	application, err := app.New(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize")
	}

	ctx := context.Background()
	if err := application.Start(ctx); err != nil {
		log.WithError(err).Fatal("failed to start")
	}

	if err := application.WaitForShutdown(ctx); err != nil {
		log.WithError(err).Warn("shutdown completed with errors")
	}
	if err := application.Stop(ctx); err != nil {
		log.WithError(err).Error("stop failed")
		os.Exit(1)
	}
}

// loadConfig loads configuration in precedence order: defaults, then the
// YAML file when given, then environment variables.
func loadConfig(path string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	config.LoadFromEnv(cfg)
	return cfg, nil
}
