package translation

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/db"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/language"
)

// AutoLanguage asks the manager to detect the source language.
const AutoLanguage = "auto"

const defaultCacheTimeout = 500 * time.Millisecond

// TranslationStore persists merged result lists.
type TranslationStore interface {
	LookupCachedTranslation(ctx context.Context, cacheKey []byte, notBefore time.Time) (*db.CachedTranslationRow, error)
	UpsertCachedTranslation(ctx context.Context, row db.UpsertCachedTranslationParams) error
}

// Query is one host query before language resolution.
type Query struct {
	Text string
	// From may be AutoLanguage or empty (primary language).
	From string
	// To may be empty: the secondary language, or the primary one when the source already is
	// the secondary language.
	To              string
	IncludeExamples bool
	// Providers overrides the configured priority list for this query.
	Providers []string
}

// ManagerOptions wires a Manager.
type ManagerOptions struct {
	Providers         []ProviderConfig
	Catalog           *language.Catalog
	Detect            func(text string) string
	Store             TranslationStore
	CacheTTL          time.Duration
	// CacheTimeout bounds each cache lookup and store. A lookup that runs out of time counts
	// as a miss. Defaults to 500ms, capped at the dispatcher timeout.
	CacheTimeout      time.Duration
	PrimaryLanguage   string
	SecondaryLanguage string
	Logger            zerolog.Logger
}

// Manager resolves queries, consults the translation cache and dispatches to providers.
type Manager struct {
	dispatcher *Dispatcher
	providers  []ProviderConfig
	catalog    *language.Catalog
	detect     func(string) string
	store      TranslationStore
	cacheTTL   time.Duration
	cacheWait  time.Duration
	primary    string
	secondary  string
	logger     zerolog.Logger
	now        func() time.Time
}

func NewManager(dispatcher *Dispatcher, opts ManagerOptions) *Manager {
	catalog := opts.Catalog
	if catalog == nil {
		catalog = language.Default()
	}
	cacheWait := opts.CacheTimeout
	if cacheWait <= 0 {
		cacheWait = defaultCacheTimeout
	}
	if dispatcher != nil && dispatcher.opts.Timeout > 0 && cacheWait > dispatcher.opts.Timeout {
		cacheWait = dispatcher.opts.Timeout
	}
	return &Manager{
		dispatcher: dispatcher,
		providers:  append([]ProviderConfig(nil), opts.Providers...),
		catalog:    catalog,
		detect:     opts.Detect,
		store:      opts.Store,
		cacheTTL:   opts.CacheTTL,
		cacheWait:  cacheWait,
		primary:    language.NormalizeCode(opts.PrimaryLanguage),
		secondary:  language.NormalizeCode(opts.SecondaryLanguage),
		logger:     opts.Logger,
		now:        time.Now,
	}
}

// Catalog returns the language catalog queries are validated against.
func (m *Manager) Catalog() *language.Catalog {
	if m == nil {
		return nil
	}
	return m.catalog
}

// ProviderNames lists the configured providers in priority order.
func (m *Manager) ProviderNames() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.providers))
	for _, cfg := range m.providers {
		names = append(names, cfg.Name)
	}
	return names
}

// Translate resolves q and runs it. Hooks behave as for Dispatcher.Dispatch; a cache hit
// fires OnComplete once and no OnOutcome.
func (m *Manager) Translate(ctx context.Context, q Query, hooks Hooks) (*Response, error) {
	if m == nil || m.dispatcher == nil {
		return nil, fmt.Errorf("translation manager is not initialized")
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return nil, ErrEmptyText
	}

	req, err := m.resolveRequest(text, q)
	if err != nil {
		return nil, err
	}
	configs := m.resolveProviders(q.Providers)
	cacheKey := buildCacheKey(req, configs)

	if cached := m.lookupCache(ctx, cacheKey, req); cached != nil {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
		}
		if hooks.OnComplete != nil {
			hooks.OnComplete(cached.Results)
		}
		return cached, nil
	}

	resp, err := m.dispatcher.Dispatch(ctx, req, configs, hooks)
	if err != nil {
		return nil, err
	}

	if resp.Complete() && resp.HasMatches() {
		m.storeCache(ctx, cacheKey, req, configs, resp.Results)
	}
	return resp, nil
}

func (m *Manager) resolveRequest(text string, q Query) (Request, error) {
	req := Request{Text: text, IncludeExamples: q.IncludeExamples}

	rawFrom := strings.ToLower(strings.TrimSpace(q.From))
	switch rawFrom {
	case "":
		req.SourceLang = m.primary
	case AutoLanguage:
		if m.detect != nil {
			req.SourceLang = language.NormalizeCode(m.detect(text))
		}
		if req.SourceLang == "" {
			return Request{}, fmt.Errorf("%w: could not detect source language", ErrInvalidLanguage)
		}
	default:
		req.SourceLang = language.NormalizeCode(rawFrom)
	}

	req.TargetLang = language.NormalizeCode(q.To)
	if strings.TrimSpace(q.To) == "" {
		req.TargetLang = m.secondary
		if req.SourceLang == m.secondary {
			req.TargetLang = m.primary
		}
	}

	if !m.catalog.Has(req.SourceLang) {
		return Request{}, fmt.Errorf("%w: unsupported source language %q", ErrInvalidLanguage, q.From)
	}
	if !m.catalog.Has(req.TargetLang) {
		return Request{}, fmt.Errorf("%w: unsupported target language %q", ErrInvalidLanguage, q.To)
	}
	return req, nil
}

// resolveProviders keeps the requested order and reuses configured routing flags.
func (m *Manager) resolveProviders(requested []string) []ProviderConfig {
	if len(requested) == 0 {
		return m.providers
	}

	byName := make(map[string]ProviderConfig, len(m.providers))
	for _, cfg := range m.providers {
		byName[cfg.Name] = cfg
	}

	configs := make([]ProviderConfig, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, raw := range requested {
		name := normalizeProviderName(raw)
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		cfg, ok := byName[name]
		if !ok {
			cfg = ProviderConfig{Name: name, Words: true, Phrases: true}
		}
		configs = append(configs, cfg)
	}
	return configs
}

func (m *Manager) lookupCache(ctx context.Context, cacheKey []byte, req Request) *Response {
	if m.store == nil || m.cacheTTL <= 0 {
		return nil
	}

	notBefore := m.now().Add(-m.cacheTTL)
	row, err := callWithin(ctx, m.cacheWait, func(ctx context.Context) (*db.CachedTranslationRow, error) {
		return m.store.LookupCachedTranslation(ctx, cacheKey, notBefore)
	})
	if err != nil {
		m.logger.Warn().Err(err).Dur("cache_timeout", m.cacheWait).Msg("translation cache lookup failed")
		return nil
	}
	if row == nil {
		return nil
	}

	var results []Result
	if err := json.Unmarshal(row.Results, &results); err != nil || len(results) == 0 {
		m.logger.Warn().Err(err).Str("translation_uuid", row.TranslationUUID).Msg("ignoring unreadable cached translation")
		return nil
	}

	m.logger.Debug().Str("translation_uuid", row.TranslationUUID).Int("results", len(results)).Msg("translation cache hit")
	return &Response{
		RequestID:  uuid.NewString(),
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Results:    results,
		Cached:     true,
	}
}

func (m *Manager) storeCache(ctx context.Context, cacheKey []byte, req Request, configs []ProviderConfig, results []Result) {
	if m.store == nil || m.cacheTTL <= 0 {
		return
	}

	payload, err := json.Marshal(results)
	if err != nil {
		m.logger.Warn().Err(err).Msg("encode translation cache entry")
		return
	}

	row := db.UpsertCachedTranslationParams{
		CacheKey:        cacheKey,
		SourceLang:      req.SourceLang,
		TargetLang:      req.TargetLang,
		OriginalText:    req.Text,
		IncludeExamples: req.IncludeExamples,
		Providers:       joinProviderNames(configs),
		Results:         payload,
	}
	if _, err := callWithin(ctx, m.cacheWait, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, m.store.UpsertCachedTranslation(ctx, row)
	}); err != nil {
		m.logger.Warn().Err(err).Dur("cache_timeout", m.cacheWait).Msg("translation cache store failed")
	}
}

// callWithin runs fn with a deadline and stops waiting once it passes, even if fn ignores its
// context. A late result is dropped.
func callWithin[T any](ctx context.Context, budget time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		value, err := fn(ctx)
		done <- result{value: value, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func buildCacheKey(req Request, configs []ProviderConfig) []byte {
	h := sha256.New()
	for _, part := range []string{
		req.Text,
		req.SourceLang,
		req.TargetLang,
		strconv.FormatBool(req.IncludeExamples),
		joinProviderNames(configs),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return h.Sum(nil)
}

func joinProviderNames(configs []ProviderConfig) string {
	names := make([]string, 0, len(configs))
	for _, cfg := range configs {
		names = append(names, cfg.Name)
	}
	return strings.Join(names, ",")
}
