package translation

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var ErrUnknownProvider = errors.New("unknown translation provider")

// ProviderGlosbe is the registry name of the dictionary API provider.
const ProviderGlosbe = "glosbe"

// Factory builds a fresh provider instance. It is called once per request.
type Factory func() Provider

// ProviderConfig enables one registered provider for dispatch. The order of a []ProviderConfig
// is the merge priority.
type ProviderConfig struct {
	Name string
	// Words and Phrases select the query kinds the provider is asked about.
	Words   bool
	Phrases bool
	// NoMatchOnFailure makes a failed or timed-out provider contribute a NoMatch placeholder
	// instead of nothing.
	NoMatchOnFailure bool
}

// Accepts reports whether the provider should run for req.
func (c ProviderConfig) Accepts(req Request) bool {
	if req.IsPhrase() {
		return c.Phrases
	}
	return c.Words
}

// Registry maps provider names to factories.
type Registry struct {
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// RegistryOptions configures the built-in providers.
type RegistryOptions struct {
	GlosbeURL          string
	HTTPClient         *http.Client
	TranslateShellPath string
	// TranslateShellEngines are registered under their own names (for example "bing").
	TranslateShellEngines []string
}

// NewDefaultRegistry registers Glosbe and one translate-shell provider per engine.
func NewDefaultRegistry(opts RegistryOptions) *Registry {
	registry := NewRegistry()
	_ = registry.Register(ProviderGlosbe, func() Provider {
		return NewGlosbeProvider(opts.GlosbeURL, opts.HTTPClient)
	})
	for _, engine := range opts.TranslateShellEngines {
		engine := normalizeProviderName(engine)
		if engine == "" || engine == ProviderGlosbe {
			continue
		}
		_ = registry.Register(engine, func() Provider {
			return NewShellProvider(opts.TranslateShellPath, engine)
		})
	}
	return registry
}

// Register adds or replaces one factory.
func (r *Registry) Register(name string, factory Factory) error {
	if r == nil {
		return fmt.Errorf("registry is nil")
	}
	if factory == nil {
		return fmt.Errorf("provider factory is nil")
	}
	normalized := normalizeProviderName(name)
	if normalized == "" {
		return fmt.Errorf("provider name is required")
	}
	r.factories[normalized] = factory
	return nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[normalizeProviderName(name)]
	return ok
}

// Build returns a new provider instance for name.
func (r *Registry) Build(name string) (Provider, error) {
	if r == nil {
		return nil, fmt.Errorf("registry is nil")
	}
	resolved := normalizeProviderName(name)
	factory, ok := r.factories[resolved]
	if !ok {
		return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownProvider, resolved, strings.Join(r.ProviderNames(), ", "))
	}
	provider := factory()
	if provider == nil {
		return nil, fmt.Errorf("provider factory %q returned nil", resolved)
	}
	return provider, nil
}

func (r *Registry) ProviderNames() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeProviderName(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// BuildProviderConfigs turns configured name lists into dispatch configs in priority order.
// An empty words or phrases list enables every provider for that query kind.
func BuildProviderConfigs(priority, words, phrases, noMatchOnFailure []string) []ProviderConfig {
	wordSet := nameSet(words)
	phraseSet := nameSet(phrases)
	failureSet := nameSet(noMatchOnFailure)

	configs := make([]ProviderConfig, 0, len(priority))
	for _, raw := range priority {
		name := normalizeProviderName(raw)
		if name == "" {
			continue
		}
		_, word := wordSet[name]
		_, phrase := phraseSet[name]
		_, noMatch := failureSet[name]
		configs = append(configs, ProviderConfig{
			Name:             name,
			Words:            len(wordSet) == 0 || word,
			Phrases:          len(phraseSet) == 0 || phrase,
			NoMatchOnFailure: noMatch,
		})
	}
	return configs
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		if normalized := normalizeProviderName(name); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set
}
