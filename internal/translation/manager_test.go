package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/db"
)

type stubTranslationStore struct {
	mu           sync.Mutex
	lookupResult *db.CachedTranslationRow
	lookupErr    error
	lookupKeys   [][]byte
	notBefore    []time.Time
	upsertCalls  []db.UpsertCachedTranslationParams
	// stall makes every call sleep without watching its context, like a hung connection.
	stall        time.Duration
}

func (s *stubTranslationStore) LookupCachedTranslation(_ context.Context, cacheKey []byte, notBefore time.Time) (*db.CachedTranslationRow, error) {
	time.Sleep(s.stall)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookupKeys = append(s.lookupKeys, cacheKey)
	s.notBefore = append(s.notBefore, notBefore)
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.lookupResult, nil
}

func (s *stubTranslationStore) UpsertCachedTranslation(_ context.Context, row db.UpsertCachedTranslationParams) error {
	time.Sleep(s.stall)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls = append(s.upsertCalls, row)
	return nil
}

func newTestManager(t *testing.T, store TranslationStore, providers ...*stubProvider) *Manager {
	t.Helper()

	names := make([]string, 0, len(providers))
	for _, provider := range providers {
		names = append(names, provider.name)
	}
	dispatcher := NewDispatcher(registryWith(t, providers...), DispatcherOptions{Timeout: time.Second}, zerolog.Nop())
	return NewManager(dispatcher, ManagerOptions{
		Providers:         BuildProviderConfigs(names, nil, nil, nil),
		Detect:            func(string) string { return "fr" },
		Store:             store,
		CacheTTL:          time.Hour,
		PrimaryLanguage:   "en",
		SecondaryLanguage: "de",
		Logger:            zerolog.Nop(),
	})
}

func hallo() *stubProvider {
	return &stubProvider{
		name:    "glosbe",
		results: []Result{{Text: "Hallo", Relevance: 1.0, Category: CategoryInformational, Provider: "Glosbe"}},
	}
}

func TestManagerTranslate_DefaultsToConfiguredLanguages(t *testing.T) {
	t.Parallel()

	provider := hallo()
	manager := newTestManager(t, nil, provider)

	resp, err := manager.Translate(context.Background(), Query{Text: " hello "}, Hooks{})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if resp.SourceLang != "en" || resp.TargetLang != "de" {
		t.Fatalf("unexpected language pair: %s -> %s", resp.SourceLang, resp.TargetLang)
	}
	if provider.lastRequest.Text != "hello" {
		t.Fatalf("expected trimmed text, got %q", provider.lastRequest.Text)
	}

	resp, err = manager.Translate(context.Background(), Query{Text: "hallo", From: "de"}, Hooks{})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if resp.TargetLang != "en" {
		t.Fatalf("expected reverse direction for secondary-language source, got %s", resp.TargetLang)
	}
}

func TestManagerTranslate_AutoDetectsSource(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, nil, hallo())
	resp, err := manager.Translate(context.Background(), Query{Text: "bonjour", From: "AUTO", To: "en-US"}, Hooks{})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if resp.SourceLang != "fr" || resp.TargetLang != "en" {
		t.Fatalf("unexpected language pair: %s -> %s", resp.SourceLang, resp.TargetLang)
	}

	manager.detect = func(string) string { return "" }
	_, err = manager.Translate(context.Background(), Query{Text: "??", From: "auto"}, Hooks{})
	if !errors.Is(err, ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage when detection fails, got %v", err)
	}
}

func TestManagerTranslate_RejectsUnknownLanguage(t *testing.T) {
	t.Parallel()

	manager := newTestManager(t, nil, hallo())
	_, err := manager.Translate(context.Background(), Query{Text: "hello", From: "en", To: "xx"}, Hooks{})
	if !errors.Is(err, ErrInvalidLanguage) {
		t.Fatalf("expected ErrInvalidLanguage, got %v", err)
	}
	_, err = manager.Translate(context.Background(), Query{Text: "   "}, Hooks{})
	if !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
}

func TestManagerTranslate_ProviderOverrideKeepsRequestedOrder(t *testing.T) {
	t.Parallel()

	first := hallo()
	second := &stubProvider{
		name:    "bing",
		results: []Result{{Text: "Hallo!", Relevance: 0.01, Category: CategoryAudio, Provider: "Bing"}},
	}
	manager := newTestManager(t, nil, first, second)

	resp, err := manager.Translate(context.Background(), Query{Text: "hello", Providers: []string{"BING", "glosbe", "bing"}}, Hooks{})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if len(resp.Outcomes) != 2 || resp.Outcomes[0].Provider != "bing" {
		t.Fatalf("expected requested priority order, got %+v", resp.Outcomes)
	}
	if resp.Results[0].Provider != "Bing" {
		t.Fatalf("expected bing result first, got %+v", resp.Results)
	}
}

func TestManagerTranslate_StoresCompleteResults(t *testing.T) {
	t.Parallel()

	store := &stubTranslationStore{}
	manager := newTestManager(t, store, hallo())

	if _, err := manager.Translate(context.Background(), Query{Text: "hello"}, Hooks{}); err != nil {
		t.Fatalf("translate: %v", err)
	}
	if len(store.upsertCalls) != 1 {
		t.Fatalf("expected one cache upsert, got %d", len(store.upsertCalls))
	}
	row := store.upsertCalls[0]
	if !bytes.Equal(row.CacheKey, store.lookupKeys[0]) {
		t.Fatalf("lookup and upsert must use the same cache key")
	}
	if row.Providers != "glosbe" || row.SourceLang != "en" || row.TargetLang != "de" {
		t.Fatalf("unexpected cache row: %+v", row)
	}
	var stored []Result
	if err := json.Unmarshal(row.Results, &stored); err != nil {
		t.Fatalf("decode stored results: %v", err)
	}
	if len(stored) != 1 || stored[0].Text != "Hallo" {
		t.Fatalf("unexpected stored results: %+v", stored)
	}
}

func TestManagerTranslate_SkipsCacheForIncompleteOrEmptyResults(t *testing.T) {
	t.Parallel()

	store := &stubTranslationStore{}
	failing := &stubProvider{name: "bing", err: ErrProcessFailed}
	manager := newTestManager(t, store, hallo(), failing)

	if _, err := manager.Translate(context.Background(), Query{Text: "hello"}, Hooks{}); err != nil {
		t.Fatalf("translate: %v", err)
	}
	if len(store.upsertCalls) != 0 {
		t.Fatalf("did not expect a partial result list to be cached")
	}

	empty := &stubProvider{name: "glosbe", results: []Result{noMatchResult("Glosbe", 0.99)}}
	manager = newTestManager(t, store, empty)
	if _, err := manager.Translate(context.Background(), Query{Text: "hello"}, Hooks{}); err != nil {
		t.Fatalf("translate: %v", err)
	}
	if len(store.upsertCalls) != 0 {
		t.Fatalf("did not expect a NoMatch-only list to be cached")
	}
}

func TestManagerTranslate_CacheHitSkipsProviders(t *testing.T) {
	t.Parallel()

	cached, err := json.Marshal([]Result{{Text: "Hallo", Relevance: 1, Category: CategoryInformational, Provider: "Glosbe"}})
	if err != nil {
		t.Fatalf("encode cached results: %v", err)
	}
	store := &stubTranslationStore{lookupResult: &db.CachedTranslationRow{TranslationUUID: "t-1", Results: cached}}
	provider := hallo()
	manager := newTestManager(t, store, provider)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	manager.now = func() time.Time { return fixed }

	recorder := &hookRecorder{}
	resp, err := manager.Translate(context.Background(), Query{Text: "hello"}, recorder.hooks())
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if !resp.Cached || len(resp.Results) != 1 {
		t.Fatalf("expected cached response, got %+v", resp)
	}
	if provider.calls.Load() != 0 {
		t.Fatalf("provider must not run on cache hit")
	}
	outcomes, completes := recorder.counts()
	if outcomes != 0 || completes != 1 {
		t.Fatalf("unexpected hook calls: outcomes=%d completes=%d", outcomes, completes)
	}
	if !store.notBefore[0].Equal(fixed.Add(-time.Hour)) {
		t.Fatalf("unexpected cache freshness bound: %s", store.notBefore[0])
	}
}

func TestManagerTranslate_CacheErrorsAreIgnored(t *testing.T) {
	t.Parallel()

	store := &stubTranslationStore{lookupErr: errors.New("connection refused")}
	provider := hallo()
	manager := newTestManager(t, store, provider)

	resp, err := manager.Translate(context.Background(), Query{Text: "hello"}, Hooks{})
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if resp.Cached || provider.calls.Load() != 1 {
		t.Fatalf("expected providers to run after cache failure")
	}
}

func TestManagerTranslate_HungCacheCountsAsMiss(t *testing.T) {
	t.Parallel()

	store := &stubTranslationStore{stall: 3 * time.Second}
	provider := hallo()
	dispatcher := NewDispatcher(registryWith(t, provider), DispatcherOptions{Timeout: 100 * time.Millisecond}, zerolog.Nop())
	manager := NewManager(dispatcher, ManagerOptions{
		Providers:         BuildProviderConfigs([]string{"glosbe"}, nil, nil, nil),
		Store:             store,
		CacheTTL:          time.Hour,
		PrimaryLanguage:   "en",
		SecondaryLanguage: "de",
		Logger:            zerolog.Nop(),
	})
	if manager.cacheWait != 100*time.Millisecond {
		t.Fatalf("expected cache wait capped at the dispatch timeout, got %s", manager.cacheWait)
	}

	started := time.Now()
	resp, err := manager.Translate(context.Background(), Query{Text: "hello"}, Hooks{})
	elapsed := time.Since(started)
	if err != nil {
		t.Fatalf("translate: %v", err)
	}
	if elapsed > time.Second {
		t.Fatalf("hung cache stalled the request for %s", elapsed)
	}
	if resp.Cached || provider.calls.Load() != 1 {
		t.Fatalf("expected providers to run after cache timeout, got cached=%v calls=%d", resp.Cached, provider.calls.Load())
	}
	if len(resp.Results) != 1 || resp.Results[0].Text != "Hallo" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
}

func TestBuildCacheKey_DistinguishesInputs(t *testing.T) {
	t.Parallel()

	configs := BuildProviderConfigs([]string{"glosbe"}, nil, nil, nil)
	base := Request{Text: "hello", SourceLang: "en", TargetLang: "de"}
	examples := base
	examples.IncludeExamples = true
	reversed := Request{Text: "hello", SourceLang: "de", TargetLang: "en"}

	key := buildCacheKey(base, configs)
	if bytes.Equal(key, buildCacheKey(examples, configs)) {
		t.Fatalf("examples mode must change the cache key")
	}
	if bytes.Equal(key, buildCacheKey(reversed, configs)) {
		t.Fatalf("language direction must change the cache key")
	}
	if bytes.Equal(key, buildCacheKey(base, BuildProviderConfigs([]string{"glosbe", "bing"}, nil, nil, nil))) {
		t.Fatalf("provider list must change the cache key")
	}
	if !bytes.Equal(key, buildCacheKey(base, configs)) {
		t.Fatalf("cache key must be deterministic")
	}
}
