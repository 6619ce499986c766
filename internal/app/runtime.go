package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/cli"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/config"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/db"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/langdetect"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/language"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/logging"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/translation"
)

func loadRuntime(envLoader *cli.EnvLoader) (*config.Config, zerolog.Logger, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logging.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// openCache connects the translation cache when DATABASE_URL is set. A cache that cannot be
// reached is logged and skipped.
func openCache(cfg *config.Config, logger zerolog.Logger) *db.Pool {
	if !cfg.CacheEnabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("translation cache unavailable, continuing without it")
		return nil
	}
	return pool
}

func buildManager(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) *translation.Manager {
	registry := translation.NewDefaultRegistry(translation.RegistryOptions{
		GlosbeURL:             cfg.GlosbeURL,
		HTTPClient:            &http.Client{Timeout: cfg.RequestTimeout + time.Second},
		TranslateShellPath:    cfg.TranslateShellPath,
		TranslateShellEngines: cfg.TranslateShellEngines,
	})
	dispatcher := translation.NewDispatcher(registry, translation.DispatcherOptions{
		Timeout:             cfg.RequestTimeout,
		KeepProviderNoMatch: cfg.KeepProviderNoMatch,
	}, logger)

	opts := translation.ManagerOptions{
		Providers:         translation.BuildProviderConfigs(cfg.Providers, cfg.WordProviders, cfg.PhraseProviders, cfg.NoMatchOnFailure),
		Catalog:           language.Default(),
		Detect:            langdetect.DetectISO6391,
		CacheTTL:          cfg.CacheTTL,
		CacheTimeout:      cfg.CacheTimeout,
		PrimaryLanguage:   cfg.PrimaryLanguage,
		SecondaryLanguage: cfg.SecondaryLanguage,
		Logger:            logger,
	}
	if pool != nil {
		opts.Store = pool
	}
	return translation.NewManager(dispatcher, opts)
}
