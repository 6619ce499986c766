package httpapi

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/language"
	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/translation"
)

type fakeTranslator struct {
	queries  []translation.Query
	outcomes []translation.Outcome
	resp     *translation.Response
	err      error
}

func (f *fakeTranslator) Translate(_ context.Context, q translation.Query, hooks translation.Hooks) (*translation.Response, error) {
	f.queries = append(f.queries, q)
	for _, outcome := range f.outcomes {
		if hooks.OnOutcome != nil {
			hooks.OnOutcome(outcome)
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if hooks.OnComplete != nil {
		hooks.OnComplete(f.resp.Results)
	}
	return f.resp, nil
}

func (f *fakeTranslator) Catalog() *language.Catalog {
	return language.NewCatalog([]language.Language{
		{Name: "English", Code: "en"},
		{Name: "German", Code: "de"},
	})
}

func (f *fakeTranslator) ProviderNames() []string {
	return []string{"glosbe", "bing"}
}

type fakePinger struct {
	err error
}

func (p fakePinger) Ping(context.Context) error {
	return p.err
}

func sampleResponse() *translation.Response {
	return &translation.Response{
		RequestID:  "req-1",
		SourceLang: "en",
		TargetLang: "de",
		Results: []translation.Result{
			{Text: "Hallo", Relevance: 1, Category: translation.CategoryInformational, Provider: "Glosbe"},
			{Text: "Hallo!", Relevance: 0.01, Category: translation.CategoryAudio, Provider: "Bing"},
		},
		Outcomes: []translation.Outcome{
			{Provider: "glosbe", Status: translation.OutcomeOK, Latency: 120 * time.Millisecond},
			{Provider: "bing", Status: translation.OutcomeFailed, Err: errors.New("exit status 1")},
		},
	}
}

func serve(t *testing.T, server *Server, target string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	server.routes().ServeHTTP(rec, req)
	return rec
}

func decodeJSend(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return payload
}

func TestHandleTranslate_Success(t *testing.T) {
	t.Parallel()

	translator := &fakeTranslator{resp: sampleResponse()}
	server := NewServer(translator, nil, zerolog.Nop(), Options{})

	rec := serve(t, server, "/api/v1/translate?text=hello&from=en&to=de&examples=true&providers=glosbe,%20bing")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d body=%s", rec.Code, rec.Body.String())
	}

	if len(translator.queries) != 1 {
		t.Fatalf("expected one query, got %d", len(translator.queries))
	}
	q := translator.queries[0]
	if q.Text != "hello" || q.From != "en" || q.To != "de" || !q.IncludeExamples {
		t.Fatalf("unexpected query: %+v", q)
	}
	if strings.Join(q.Providers, ",") != "glosbe,bing" {
		t.Fatalf("unexpected providers: %v", q.Providers)
	}

	payload := decodeJSend(t, rec)
	if payload["status"] != "success" {
		t.Fatalf("unexpected jsend status: %v", payload["status"])
	}
	data := payload["data"].(map[string]any)
	results := data["results"].([]any)
	if len(results) != 2 {
		t.Fatalf("unexpected results: %v", results)
	}
	outcomes := data["outcomes"].([]any)
	failed := outcomes[1].(map[string]any)
	if failed["status"] != "failed" || failed["error"] != "exit status 1" {
		t.Fatalf("unexpected failed outcome: %v", failed)
	}
	if outcomes[0].(map[string]any)["latency_ms"] != float64(120) {
		t.Fatalf("unexpected latency: %v", outcomes[0])
	}
}

func TestHandleTranslate_Validation(t *testing.T) {
	t.Parallel()

	translator := &fakeTranslator{resp: sampleResponse()}
	server := NewServer(translator, nil, zerolog.Nop(), Options{})

	rec := serve(t, server, "/api/v1/translate?text=%20%20&examples=maybe")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	payload := decodeJSend(t, rec)
	fieldErrors := payload["data"].(map[string]any)["validation_errors"].(map[string]any)
	if _, ok := fieldErrors["text"]; !ok {
		t.Fatalf("expected text validation error: %v", fieldErrors)
	}
	if _, ok := fieldErrors["examples"]; !ok {
		t.Fatalf("expected examples validation error: %v", fieldErrors)
	}
	if len(translator.queries) != 0 {
		t.Fatalf("translator must not run for invalid input")
	}
}

func TestHandleTranslate_ErrorMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err    error
		status int
		field  string
	}{
		{err: fmt.Errorf("%w: unsupported target language", translation.ErrInvalidLanguage), status: http.StatusBadRequest, field: "language"},
		{err: fmt.Errorf("%w \"deepl\"", translation.ErrUnknownProvider), status: http.StatusBadRequest, field: "providers"},
		{err: translation.ErrNoProviders, status: http.StatusBadRequest, field: "providers"},
		{err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		server := NewServer(&fakeTranslator{err: tc.err}, nil, zerolog.Nop(), Options{})
		rec := serve(t, server, "/api/v1/translate?text=hello")
		if rec.Code != tc.status {
			t.Fatalf("%v: unexpected status: got %d want %d", tc.err, rec.Code, tc.status)
		}
		if tc.field == "" {
			continue
		}
		fieldErrors := decodeJSend(t, rec)["data"].(map[string]any)["validation_errors"].(map[string]any)
		if _, ok := fieldErrors[tc.field]; !ok {
			t.Fatalf("%v: expected %s validation error, got %v", tc.err, tc.field, fieldErrors)
		}
	}
}

func TestHandleTranslateStream(t *testing.T) {
	t.Parallel()

	resp := sampleResponse()
	translator := &fakeTranslator{resp: resp, outcomes: []translation.Outcome{resp.Outcomes[1], resp.Outcomes[0]}}
	server := NewServer(translator, nil, zerolog.Nop(), Options{})

	rec := serve(t, server, "/api/v1/translate/stream?text=hello")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/x-ndjson" {
		t.Fatalf("unexpected content type %q", got)
	}

	var events []streamEvent
	scanner := bufio.NewScanner(strings.NewReader(rec.Body.String()))
	for scanner.Scan() {
		var event streamEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			t.Fatalf("decode stream line %q: %v", scanner.Text(), err)
		}
		events = append(events, event)
	}

	if len(events) != 3 {
		t.Fatalf("unexpected event count: got %d want 3", len(events))
	}
	if events[0].Type != "outcome" || events[0].Outcome.Provider != "bing" {
		t.Fatalf("expected outcomes in arrival order, got %+v", events[0])
	}
	last := events[2]
	if last.Type != "complete" || last.RequestID != "req-1" || len(last.Results) != 2 {
		t.Fatalf("unexpected completion event: %+v", last)
	}
}

func TestHandleTranslateStream_ValidationBeforeStreaming(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeTranslator{err: translation.ErrNoProviders}, nil, zerolog.Nop(), Options{})
	rec := serve(t, server, "/api/v1/translate/stream?text=good%20morning")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	if decodeJSend(t, rec)["status"] != "fail" {
		t.Fatalf("expected jsend fail body, got %s", rec.Body.String())
	}
}

func TestHandleLanguages(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeTranslator{}, nil, zerolog.Nop(), Options{})
	rec := serve(t, server, "/api/v1/languages")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	items := decodeJSend(t, rec)["data"].(map[string]any)["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("unexpected items: %v", items)
	}
	german := items[1].(map[string]any)
	if german["combined_name"] != "German (de)" {
		t.Fatalf("unexpected combined name: %v", german)
	}
}

func TestHandleHealth(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeTranslator{}, nil, zerolog.Nop(), Options{})
	rec := serve(t, server, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	if decodeJSend(t, rec)["data"].(map[string]any)["cache"] != "disabled" {
		t.Fatalf("expected cache disabled: %s", rec.Body.String())
	}

	server = NewServer(&fakeTranslator{}, fakePinger{err: errors.New("dial tcp: refused")}, zerolog.Nop(), Options{})
	rec = serve(t, server, "/api/v1/health")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unexpected status for failing cache: got %d", rec.Code)
	}

	server = NewServer(&fakeTranslator{}, fakePinger{}, zerolog.Nop(), Options{})
	rec = serve(t, server, "/api/v1/health")
	if decodeJSend(t, rec)["data"].(map[string]any)["cache"] != "ok" {
		t.Fatalf("expected cache ok: %s", rec.Body.String())
	}
}

func TestUnknownRouteUsesJSend(t *testing.T) {
	t.Parallel()

	server := NewServer(&fakeTranslator{}, nil, zerolog.Nop(), Options{})
	rec := serve(t, server, "/api/v1/nope")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d", rec.Code)
	}
	if decodeJSend(t, rec)["status"] != "fail" {
		t.Fatalf("expected jsend fail body, got %s", rec.Body.String())
	}
}
