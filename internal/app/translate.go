package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/cli"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/translation"
)

func runTranslate(args []string) int {
	fs := flag.NewFlagSet("translate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env")
	from := fs.String("from", "", "Source language (ISO 639-1 or \"auto\"; default PRIMARY_LANGUAGE)")
	to := fs.String("to", "", "Target language (ISO 639-1; default SECONDARY_LANGUAGE)")
	examples := fs.Bool("examples", false, "Ask the dictionary for usage examples instead of translations")
	providers := fs.String("providers", "", "Comma-separated provider priority list (default PROVIDERS)")
	timeout := fs.Duration("timeout", 0, "Per-request provider timeout (default REQUEST_TIMEOUT)")
	asJSON := fs.Bool("json", false, "Print the full response as JSON")
	verbose := fs.Bool("verbose", false, "Print provider outcomes to stderr as they arrive")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, "translate requires text to translate")
		return 2
	}

	cfg, logger, err := loadRuntime(envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *timeout > 0 {
		cfg.RequestTimeout = *timeout
	}
	*examples = resolveBoolFlag(fs, "examples", *examples, cfg.GlosbeExamples)

	pool := openCache(cfg, logger)
	defer pool.Close()
	manager := buildManager(cfg, pool, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hooks := translation.Hooks{}
	if *verbose {
		hooks.OnOutcome = func(outcome translation.Outcome) {
			writeOutcome(os.Stderr, outcome)
		}
	}

	resp, err := manager.Translate(ctx, translation.Query{
		Text:            text,
		From:            *from,
		To:              *to,
		IncludeExamples: *examples,
		Providers:       splitList(*providers),
	}, hooks)
	if err != nil {
		if errors.Is(err, translation.ErrCanceled) {
			fmt.Fprintln(os.Stderr, "translation canceled")
			return 130
		}
		fmt.Fprintf(os.Stderr, "Translate failed: %v\n", err)
		if isUsageError(err) {
			return 2
		}
		return 1
	}

	if *asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(resp); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode response: %v\n", err)
			return 1
		}
		return 0
	}

	writeResults(os.Stdout, resp.Results)
	return 0
}

func isUsageError(err error) bool {
	return errors.Is(err, translation.ErrEmptyText) ||
		errors.Is(err, translation.ErrInvalidLanguage) ||
		errors.Is(err, translation.ErrNoProviders) ||
		errors.Is(err, translation.ErrUnknownProvider)
}

// writeResults prints one line per result: category, relevance, provider, text.
func writeResults(w io.Writer, results []translation.Result) {
	for _, result := range results {
		provider := result.Provider
		if provider == "" {
			provider = "-"
		}
		fmt.Fprintf(w, "%-13s %.2f  %-10s %s\n", result.Category, result.Relevance, provider, result.Text)
	}
}

func writeOutcome(w io.Writer, outcome translation.Outcome) {
	line := fmt.Sprintf("[%s] %s in %s, %d result(s)", outcome.Provider, outcome.Status, outcome.Latency.Round(time.Millisecond), len(outcome.Results))
	if outcome.Err != nil {
		line += ": " + outcome.Err.Error()
	}
	fmt.Fprintln(w, line)
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	items := make([]string, 0, len(parts))
	for _, part := range parts {
		if item := strings.TrimSpace(part); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// resolveBoolFlag prefers the flag value only when the flag was given on the command line, so
// --examples=false can override GLOSBE_EXAMPLES=true.
func resolveBoolFlag(fs *flag.FlagSet, name string, flagValue, configured bool) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	if set {
		return flagValue
	}
	return configured
}
