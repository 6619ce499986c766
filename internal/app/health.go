package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/cli"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/config"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/db"
)

type healthCheck struct {
	name string
	err  error
}

func runHealth(args []string) int {
	fs := flag.NewFlagSet("health", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env")
	timeout := fs.Duration("timeout", 10*time.Second, "Database check timeout")

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

	checks := []healthCheck{checkTranslateShell(cfg, exec.LookPath)}
	if cfg.CacheEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), *timeout)
		defer cancel()

		pool, err := db.NewPool(ctx, cfg)
		if err == nil {
			err = pool.Ping(ctx)
			_ = pool.Close()
		}
		checks = append(checks, healthCheck{name: "cache database", err: err})
	}

	if !writeHealth(os.Stdout, checks) {
		logger.Error().Msg("health check failed")
		return 1
	}
	return 0
}

// checkTranslateShell only matters when a provider other than glosbe is enabled.
func checkTranslateShell(cfg *config.Config, lookPath func(string) (string, error)) healthCheck {
	check := healthCheck{name: "translate-shell"}
	needsShell := false
	for _, name := range cfg.Providers {
		if name != "glosbe" {
			needsShell = true
			break
		}
	}
	if !needsShell {
		return check
	}
	if _, err := lookPath(cfg.TranslateShellPath); err != nil {
		check.err = fmt.Errorf("%s not found: %w", cfg.TranslateShellPath, err)
	}
	return check
}

func writeHealth(w io.Writer, checks []healthCheck) bool {
	healthy := true
	for _, check := range checks {
		if check.err != nil {
			healthy = false
			fmt.Fprintf(w, "FAIL %s: %v\n", check.name, check.err)
			continue
		}
		fmt.Fprintf(w, "ok   %s\n", check.name)
	}
	return healthy
}
