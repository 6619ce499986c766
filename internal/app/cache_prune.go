package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/cli"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/db"
)

func runCachePrune(args []string) int {
	fs := flag.NewFlagSet("cache-prune", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	olderThan := fs.Duration("older-than", 0, "Age threshold (default CACHE_TTL)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if !cfg.CacheEnabled() {
		fmt.Fprintln(os.Stderr, "cache-prune requires DATABASE_URL and a positive CACHE_TTL")
		return 2
	}

	age := cfg.CacheTTL
	if *olderThan > 0 {
		age = *olderThan
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		return 1
	}
	defer pool.Close()

	deleted, err := pool.PruneCachedTranslations(ctx, time.Now().Add(-age))
	if err != nil {
		logger.Error().Err(err).Msg("cache prune failed")
		fmt.Fprintf(os.Stderr, "Cache prune failed: %v\n", err)
		return 1
	}

	logger.Info().Int64("deleted", deleted).Dur("older_than", age).Msg("cache pruned")
	fmt.Fprintf(os.Stdout, "deleted %d cached translation(s)\n", deleted)
	return 0
}
