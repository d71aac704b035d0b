package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/privya-inc/privya-engine/pkg/adapters/datasource"
	_ "github.com/privya-inc/privya-engine/pkg/adapters/datasource/mssql"    // register adapter
	_ "github.com/privya-inc/privya-engine/pkg/adapters/datasource/mysql"    // register adapter
	_ "github.com/privya-inc/privya-engine/pkg/adapters/datasource/postgres" // register adapter
	"github.com/privya-inc/privya-engine/pkg/config"
	"github.com/privya-inc/privya-engine/pkg/logging"
	"github.com/privya-inc/privya-engine/pkg/ner"
	"github.com/privya-inc/privya-engine/pkg/scanner"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	patterns, err := config.LoadPatternBank(cfg.PatternsPath)
	if err != nil {
		logger.Fatal("failed to load pattern bank", zap.Error(err))
	}

	connector, err := datasource.LoadFileConnector(cfg.ConnectionsPath)
	if err != nil {
		logger.Fatal("failed to load connections", zap.Error(err))
	}

	var nerClient ner.Client
	if cfg.NER.Enabled {
		nerClient = ner.NewHTTPClient(cfg.NER, logger)
	}

	orch := scanner.New(cfg, connector, nerClient, patterns, logger)
	defer orch.Close()

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.MetricsAddr, mux); err != nil {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
	}

	for _, info := range datasource.RegisteredAdapters() {
		logger.Info("adapter registered", zap.String("type", info.Type))
	}
	logger.Info("privya-engine ready",
		zap.String("version", cfg.Version),
		zap.String("env", cfg.Env),
		zap.Bool("ner_enabled", cfg.NER.Enabled))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	s := <-sig
	logger.Info("shutting down", zap.String("signal", s.String()))
}
