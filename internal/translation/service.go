package translation

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode"
)

var (
	ErrEmptyText       = errors.New("text is required")
	ErrInvalidLanguage = errors.New("invalid language")
	ErrNoProviders     = errors.New("no translation providers enabled")
	ErrCanceled        = errors.New("translation request canceled")

	ErrStatusNotOK      = errors.New("provider reported non-ok status")
	ErrMalformedPayload = errors.New("malformed provider payload")
	ErrProcessFailed    = errors.New("translation helper failed")
)

// NoMatchText is the text of synthesized placeholder results.
const NoMatchText = "No translation found"

// Provider translates one request. Implementations return (nil, nil) when the backend answered
// but had nothing usable, and a non-nil error for provider-level failures.
type Provider interface {
	Name() string
	Translate(ctx context.Context, req Request) ([]Result, error)
}

// Request describes one user query.
type Request struct {
	Text            string
	SourceLang      string // ISO 639-1 (for example: "en", "de")
	TargetLang      string
	IncludeExamples bool
}

// IsPhrase reports whether the query has more than one word.
func (r Request) IsPhrase() bool {
	return strings.IndexFunc(strings.TrimSpace(r.Text), unicode.IsSpace) >= 0
}

// Category classifies a result for presentation.
type Category string

const (
	CategoryExact         Category = "exact"
	CategoryInformational Category = "informational"
	CategoryNoMatch       Category = "no_match"
	CategoryAudio         Category = "audio"
)

// Result is one normalized translation candidate.
type Result struct {
	Text      string   `json:"text"`
	Relevance float64  `json:"relevance"`
	Category  Category `json:"category"`
	Provider  string   `json:"provider,omitempty"`
}

// IsNoMatch reports whether r is a synthesized placeholder.
func (r Result) IsNoMatch() bool {
	return r.Category == CategoryNoMatch
}

// OutcomeStatus summarizes how one provider finished.
type OutcomeStatus string

const (
	OutcomeOK       OutcomeStatus = "ok"
	OutcomeFailed   OutcomeStatus = "failed"
	OutcomeTimedOut OutcomeStatus = "timed_out"
)

// Outcome is the normalized result of one provider for one request.
type Outcome struct {
	Provider string        `json:"provider"`
	Status   OutcomeStatus `json:"status"`
	Results  []Result      `json:"results"`
	Err      error         `json:"-"`
	Latency  time.Duration `json:"latency"`
}

// Failed reports whether the provider contributed nothing because of an error or timeout.
func (o Outcome) Failed() bool {
	return o.Status == OutcomeFailed || o.Status == OutcomeTimedOut
}

// relevanceAt returns start lowered by n hundredths, computed in integer hundredths so that
// 1.0 - 0.01 is exactly 0.99.
func relevanceAt(start float64, n int) float64 {
	return math.Round(start*100-float64(n)) / 100
}

func noMatchResult(provider string, relevance float64) Result {
	return Result{
		Text:      NoMatchText,
		Relevance: relevance,
		Category:  CategoryNoMatch,
		Provider:  provider,
	}
}
