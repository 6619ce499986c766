package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"local"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	PrimaryLanguage   string `envconfig:"PRIMARY_LANGUAGE" default:"en"`
	SecondaryLanguage string `envconfig:"SECONDARY_LANGUAGE" default:"de"`

	// Providers is the ordered priority list used when merging results.
	Providers        []string `envconfig:"PROVIDERS" default:"glosbe,bing"`
	WordProviders    []string `envconfig:"WORD_PROVIDERS"`
	PhraseProviders  []string `envconfig:"PHRASE_PROVIDERS"`
	NoMatchOnFailure []string `envconfig:"NOMATCH_ON_FAILURE"`

	GlosbeURL      string `envconfig:"GLOSBE_URL" default:"https://glosbe.com/gapi/translate"`
	GlosbeExamples bool   `envconfig:"GLOSBE_EXAMPLES" default:"false"`

	TranslateShellPath    string   `envconfig:"TRANSLATE_SHELL_PATH" default:"trans"`
	TranslateShellEngines []string `envconfig:"TRANSLATE_SHELL_ENGINES" default:"bing,google,yandex,apertium"`

	RequestTimeout      time.Duration `envconfig:"REQUEST_TIMEOUT" default:"5s"`
	KeepProviderNoMatch bool          `envconfig:"KEEP_PROVIDER_NOMATCH" default:"false"`

	DatabaseURL  string        `envconfig:"DATABASE_URL" default:""`
	DBMinConns   int32         `envconfig:"DB_MIN_CONNS" default:"1"`
	DBMaxConns   int32         `envconfig:"DB_MAX_CONNS" default:"4"`
	CacheTTL     time.Duration `envconfig:"CACHE_TTL" default:"24h"`
	// CacheTimeout bounds each cache lookup and store; it is capped at REQUEST_TIMEOUT.
	CacheTimeout time.Duration `envconfig:"CACHE_TIMEOUT" default:"500ms"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Providers) == 0 {
		return fmt.Errorf("PROVIDERS must name at least one provider")
	}
	if strings.TrimSpace(c.PrimaryLanguage) == "" {
		return fmt.Errorf("PRIMARY_LANGUAGE is required")
	}
	if strings.TrimSpace(c.SecondaryLanguage) == "" {
		return fmt.Errorf("SECONDARY_LANGUAGE is required")
	}
	if strings.TrimSpace(c.GlosbeURL) == "" {
		return fmt.Errorf("GLOSBE_URL is required")
	}
	if strings.TrimSpace(c.TranslateShellPath) == "" {
		return fmt.Errorf("TRANSLATE_SHELL_PATH is required")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be > 0")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL must be >= 0")
	}
	if c.CacheTimeout < 0 {
		return fmt.Errorf("CACHE_TIMEOUT must be >= 0")
	}
	if c.DBMinConns < 0 {
		return fmt.Errorf("DB_MIN_CONNS must be >= 0")
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be >= 1")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) cannot exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	engines := make(map[string]struct{}, len(c.TranslateShellEngines))
	for _, engine := range c.TranslateShellEngines {
		engines[engine] = struct{}{}
	}
	known := make(map[string]struct{}, len(c.Providers))
	for _, name := range c.Providers {
		if _, ok := engines[name]; !ok && name != "glosbe" {
			return fmt.Errorf("PROVIDERS entry %q is neither glosbe nor listed in TRANSLATE_SHELL_ENGINES", name)
		}
		known[name] = struct{}{}
	}
	for _, group := range []struct {
		env   string
		names []string
	}{
		{env: "WORD_PROVIDERS", names: c.WordProviders},
		{env: "PHRASE_PROVIDERS", names: c.PhraseProviders},
		{env: "NOMATCH_ON_FAILURE", names: c.NoMatchOnFailure},
	} {
		for _, name := range group.names {
			if _, ok := known[name]; !ok {
				return fmt.Errorf("%s references %q which is not listed in PROVIDERS", group.env, name)
			}
		}
	}
	return nil
}

// CacheEnabled reports whether a translation cache database is configured.
func (c *Config) CacheEnabled() bool {
	return c != nil && strings.TrimSpace(c.DatabaseURL) != "" && c.CacheTTL > 0
}

func (c *Config) normalize() {
	c.Providers = normalizeNames(c.Providers)
	c.WordProviders = normalizeNames(c.WordProviders)
	c.PhraseProviders = normalizeNames(c.PhraseProviders)
	c.NoMatchOnFailure = normalizeNames(c.NoMatchOnFailure)
	c.TranslateShellEngines = normalizeNames(c.TranslateShellEngines)
	c.PrimaryLanguage = strings.ToLower(strings.TrimSpace(c.PrimaryLanguage))
	c.SecondaryLanguage = strings.ToLower(strings.TrimSpace(c.SecondaryLanguage))
}

func normalizeNames(raw []string) []string {
	names := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, part := range raw {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
