package translation

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultGlosbeURL is the dictionary API translate endpoint.
	DefaultGlosbeURL = "https://glosbe.com/gapi/translate"

	glosbeTranslationStart = 1.0
	glosbeExamplesStart    = 0.8
	maxGlosbeResponseBytes = 4 << 20
)

// GlosbeProvider queries the Glosbe dictionary API. One instance serves one request.
type GlosbeProvider struct {
	endpoint string
	client   *http.Client
}

// NewGlosbeProvider builds a provider for endpoint. A nil client gets a fresh one with a
// conservative timeout; the dispatcher deadline usually fires first.
func NewGlosbeProvider(endpoint string, client *http.Client) *GlosbeProvider {
	trimmed := strings.TrimSpace(endpoint)
	if trimmed == "" {
		trimmed = DefaultGlosbeURL
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &GlosbeProvider{
		endpoint: trimmed,
		client:   client,
	}
}

func (p *GlosbeProvider) Name() string {
	return "Glosbe"
}

func (p *GlosbeProvider) Translate(ctx context.Context, req Request) ([]Result, error) {
	if p == nil {
		return nil, fmt.Errorf("glosbe provider is nil")
	}

	target, err := p.requestURL(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build glosbe request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send glosbe request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGlosbeResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read glosbe response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("glosbe status %d: %s", resp.StatusCode, truncate(strings.TrimSpace(string(body)), 200))
	}

	parsed, err := parseGlosbeResponse(body, req.IncludeExamples)
	if err != nil {
		return nil, err
	}
	return p.normalize(parsed)
}

// requestURL builds the GET query: from, dest, format, phrase, tm, pretty.
func (p *GlosbeProvider) requestURL(req Request) (string, error) {
	base, err := url.Parse(p.endpoint)
	if err != nil {
		return "", fmt.Errorf("parse glosbe endpoint %q: %w", p.endpoint, err)
	}

	query := base.Query()
	query.Set("from", req.SourceLang)
	query.Set("dest", req.TargetLang)
	query.Set("format", "json")
	query.Set("phrase", strings.TrimSpace(req.Text))
	query.Set("tm", strconv.FormatBool(req.IncludeExamples))
	query.Set("pretty", "true")
	base.RawQuery = query.Encode()
	return base.String(), nil
}

func (p *GlosbeProvider) normalize(parsed glosbeResponse) ([]Result, error) {
	var (
		texts []string
		start float64
	)

	switch resp := parsed.(type) {
	case glosbeErrorResponse:
		if msg := strings.TrimSpace(resp.Message); msg != "" {
			return nil, fmt.Errorf("%w: result=%q: %s", ErrStatusNotOK, resp.Result, msg)
		}
		return nil, fmt.Errorf("%w: result=%q", ErrStatusNotOK, resp.Result)
	case glosbeTranslationResponse:
		start = glosbeTranslationStart
		texts = make([]string, 0, len(resp.Tuc))
		for _, entry := range resp.Tuc {
			if entry.Phrase == nil || entry.Phrase.Text == nil {
				texts = append(texts, "")
				continue
			}
			texts = append(texts, *entry.Phrase.Text)
		}
	case glosbeExamplesResponse:
		start = glosbeExamplesStart
		texts = make([]string, 0, len(resp.Examples))
		for _, entry := range resp.Examples {
			if entry.Second == nil {
				texts = append(texts, "")
				continue
			}
			texts = append(texts, *entry.Second)
		}
	default:
		return nil, fmt.Errorf("%w: unexpected response type %T", ErrMalformedPayload, parsed)
	}

	return rankTexts(p.Name(), texts, start), nil
}

// rankTexts keeps non-blank texts in order with relevance start, start-0.01, ... and falls back
// to a single NoMatch one step below start when nothing is kept.
func rankTexts(provider string, texts []string, start float64) []Result {
	results := make([]Result, 0, len(texts))
	for _, raw := range texts {
		text := strings.TrimSpace(raw)
		if text == "" {
			continue
		}
		results = append(results, Result{
			Text:      text,
			Relevance: relevanceAt(start, len(results)),
			Category:  CategoryInformational,
			Provider:  provider,
		})
	}
	if len(results) == 0 {
		results = append(results, noMatchResult(provider, relevanceAt(start, 1)))
	}
	return results
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit]) + "..."
}
