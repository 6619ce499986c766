package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"

	"github.com/RiskoZoSlovenska/krunner-translator-ng/internal/translation"
)

const maxQueryTextRunes = 500

type outcomeView struct {
	Provider  string               `json:"provider"`
	Status    string               `json:"status"`
	Results   []translation.Result `json:"results"`
	LatencyMS int64                `json:"latency_ms"`
	Error     string               `json:"error,omitempty"`
}

type translateView struct {
	RequestID  string               `json:"request_id"`
	SourceLang string               `json:"source_lang"`
	TargetLang string               `json:"target_lang"`
	Cached     bool                 `json:"cached"`
	Results    []translation.Result `json:"results"`
	Outcomes   []outcomeView        `json:"outcomes"`
}

type streamEvent struct {
	Type       string               `json:"type"`
	Outcome    *outcomeView         `json:"outcome,omitempty"`
	RequestID  string               `json:"request_id,omitempty"`
	SourceLang string               `json:"source_lang,omitempty"`
	TargetLang string               `json:"target_lang,omitempty"`
	Cached     bool                 `json:"cached,omitempty"`
	Results    []translation.Result `json:"results,omitempty"`
}

func (s *Server) handleTranslate(c echo.Context) error {
	query, fieldErrors := parseTranslateQuery(c)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	resp, err := s.translator.Translate(c.Request().Context(), query, translation.Hooks{})
	if err != nil {
		return s.translateError(c, err)
	}

	outcomes := make([]outcomeView, 0, len(resp.Outcomes))
	for _, outcome := range resp.Outcomes {
		outcomes = append(outcomes, newOutcomeView(outcome))
	}
	return success(c, translateView{
		RequestID:  resp.RequestID,
		SourceLang: resp.SourceLang,
		TargetLang: resp.TargetLang,
		Cached:     resp.Cached,
		Results:    resp.Results,
		Outcomes:   outcomes,
	})
}

// handleTranslateStream writes one NDJSON line per provider outcome as it arrives, then one
// "complete" line with the merged list.
func (s *Server) handleTranslateStream(c echo.Context) error {
	query, fieldErrors := parseTranslateQuery(c)
	if len(fieldErrors) > 0 {
		return failValidation(c, fieldErrors)
	}

	w := c.Response()
	encoder := json.NewEncoder(w)
	var (
		mu       sync.Mutex
		started  bool
		writeErr error
	)
	write := func(event streamEvent) {
		mu.Lock()
		defer mu.Unlock()
		if writeErr != nil {
			return
		}
		if !started {
			w.Header().Set(echo.HeaderContentType, "application/x-ndjson")
			w.Header().Set("Cache-Control", "no-store")
			w.WriteHeader(http.StatusOK)
			started = true
		}
		if err := encoder.Encode(event); err != nil {
			writeErr = err
			return
		}
		w.Flush()
	}

	resp, err := s.translator.Translate(c.Request().Context(), query, translation.Hooks{
		OnOutcome: func(outcome translation.Outcome) {
			view := newOutcomeView(outcome)
			write(streamEvent{Type: "outcome", Outcome: &view})
		},
	})
	if err != nil {
		mu.Lock()
		committed := started
		mu.Unlock()
		if committed {
			s.logger.Debug().Err(err).Msg("translation stream ended early")
			return nil
		}
		return s.translateError(c, err)
	}

	write(streamEvent{
		Type:       "complete",
		RequestID:  resp.RequestID,
		SourceLang: resp.SourceLang,
		TargetLang: resp.TargetLang,
		Cached:     resp.Cached,
		Results:    resp.Results,
	})
	if writeErr != nil {
		s.logger.Debug().Err(writeErr).Msg("write translation stream")
	}
	return nil
}

func (s *Server) translateError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, translation.ErrEmptyText):
		return failValidation(c, map[string]string{"text": "text is required"})
	case errors.Is(err, translation.ErrInvalidLanguage):
		return failValidation(c, map[string]string{"language": err.Error()})
	case errors.Is(err, translation.ErrUnknownProvider), errors.Is(err, translation.ErrNoProviders):
		return failValidation(c, map[string]string{"providers": err.Error()})
	case errors.Is(err, translation.ErrCanceled):
		s.logger.Debug().Err(err).Msg("translation request canceled by client")
		return nil
	default:
		s.logger.Error().Err(err).Msg("translate failed")
		return internalError(c, "Failed to translate")
	}
}

func parseTranslateQuery(c echo.Context) (translation.Query, map[string]string) {
	fieldErrors := map[string]string{}

	query := translation.Query{
		Text: strings.TrimSpace(c.QueryParam("text")),
		From: strings.TrimSpace(c.QueryParam("from")),
		To:   strings.TrimSpace(c.QueryParam("to")),
	}
	if query.Text == "" {
		fieldErrors["text"] = "text is required"
	} else if len([]rune(query.Text)) > maxQueryTextRunes {
		fieldErrors["text"] = "text must be at most " + strconv.Itoa(maxQueryTextRunes) + " characters"
	}

	if raw := strings.TrimSpace(c.QueryParam("examples")); raw != "" {
		examples, err := strconv.ParseBool(raw)
		if err != nil {
			fieldErrors["examples"] = "examples must be a boolean"
		}
		query.IncludeExamples = examples
	}

	if raw := strings.TrimSpace(c.QueryParam("providers")); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			if name := strings.TrimSpace(part); name != "" {
				query.Providers = append(query.Providers, name)
			}
		}
	}

	return query, fieldErrors
}

func newOutcomeView(outcome translation.Outcome) outcomeView {
	view := outcomeView{
		Provider:  outcome.Provider,
		Status:    string(outcome.Status),
		Results:   outcome.Results,
		LatencyMS: outcome.Latency.Milliseconds(),
	}
	if view.Results == nil {
		view.Results = []translation.Result{}
	}
	if outcome.Err != nil {
		view.Error = outcome.Err.Error()
	}
	return view
}
