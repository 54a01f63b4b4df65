package main

import (
	"flag"
	"os"

	"github.com/mkallert/bankrec-backend/internal/adapters/ledger"
	"github.com/mkallert/bankrec-backend/internal/api"
	"github.com/mkallert/bankrec-backend/internal/application/service"
	"github.com/mkallert/bankrec-backend/internal/domain/matcher"
	"github.com/mkallert/bankrec-backend/internal/infrastructure/config"
	"github.com/mkallert/bankrec-backend/internal/observability"
)

// matchingFromConfig maps the operator's configured tolerances onto the
// matcher's config so config.yaml settings apply to every request that does
// not override them.
func matchingFromConfig(m config.MatchingConfig) matcher.Config {
	return matcher.Config{
		DateToleranceDays:    m.DateToleranceDays,
		AmountToleranceCents: m.AmountToleranceCents,
		AutoMatchThreshold:   m.AutoMatchThreshold,
		SuggestionThreshold:  m.SuggestionThreshold,
	}
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg := config.LoadOrEnvWithPath(*configPath)
	logger := observability.NewLoggerWithComponent(cfg.Observability.Logging, "api")

	store, err := ledger.NewStore(cfg.Ledger.DatabasePath)
	if err != nil {
		logger.Error("failed to open ledger database", "path", cfg.Ledger.DatabasePath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	svc := service.NewReconServiceWithMatching(store, logger, matchingFromConfig(cfg.Matching))
	server := api.NewServer(svc, logger, cfg.Server.AllowedOrigins)
	router := server.Router()

	logger.Info("starting API server", "port", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}
