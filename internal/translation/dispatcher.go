package translation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultRequestTimeout bounds one dispatch when no timeout is configured.
const DefaultRequestTimeout = 5 * time.Second

// overallNoMatchRelevance is used for the query-level placeholder.
const overallNoMatchRelevance = 0.01

// Hooks receive dispatch events. Calls are serialized on a delivery goroutine and never hold
// dispatcher state, so a slow hook delays Dispatch's return but not the deadline merge.
// OnOutcome runs once per provider that finishes before the deadline, in arrival order.
// OnComplete runs exactly once per request that was not canceled, after every OnOutcome.
// No hook runs after Dispatch returns.
type Hooks struct {
	OnOutcome  func(Outcome)
	OnComplete func([]Result)
}

// DispatcherOptions tune merging and timeouts.
type DispatcherOptions struct {
	Timeout time.Duration
	// KeepProviderNoMatch keeps every provider's NoMatch placeholder in the merged list.
	// When false, placeholders are dropped if any real result exists and collapsed to the
	// highest-priority one otherwise.
	KeepProviderNoMatch bool
}

// Response is the merged output of one dispatch.
type Response struct {
	RequestID  string    `json:"request_id"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	Results    []Result  `json:"results"`
	Outcomes   []Outcome `json:"outcomes"`
	// Cached is set when the results came from the translation cache and no provider ran.
	Cached bool `json:"cached"`
}

// Complete reports whether every dispatched provider finished without failure or timeout.
func (r *Response) Complete() bool {
	if r == nil {
		return false
	}
	for _, outcome := range r.Outcomes {
		if outcome.Failed() {
			return false
		}
	}
	return true
}

// HasMatches reports whether the merged list holds at least one real result.
func (r *Response) HasMatches() bool {
	if r == nil {
		return false
	}
	for _, result := range r.Results {
		if !result.IsNoMatch() {
			return true
		}
	}
	return false
}

// Dispatcher fans a request out to providers concurrently and merges their outcomes in
// configured priority order.
type Dispatcher struct {
	registry *Registry
	opts     DispatcherOptions
	logger   zerolog.Logger
}

func NewDispatcher(registry *Registry, opts DispatcherOptions, logger zerolog.Logger) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultRequestTimeout
	}
	return &Dispatcher{
		registry: registry,
		opts:     opts,
		logger:   logger,
	}
}

type dispatchTask struct {
	config   ProviderConfig
	provider Provider
}

// Dispatch runs every provider in configs that accepts req. It returns ErrCanceled, and never
// calls OnComplete, when ctx ends before the merge. Providers still running at the timeout
// contribute nothing and their late results are discarded.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, configs []ProviderConfig, hooks Hooks) (*Response, error) {
	if d == nil || d.registry == nil {
		return nil, fmt.Errorf("dispatcher is not initialized")
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}

	tasks := make([]dispatchTask, 0, len(configs))
	for _, cfg := range configs {
		if !cfg.Accepts(req) {
			continue
		}
		provider, err := d.registry.Build(cfg.Name)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, dispatchTask{config: cfg, provider: provider})
	}
	if len(tasks) == 0 {
		return nil, ErrNoProviders
	}

	requestID := uuid.NewString()
	logger := d.logger.With().Str("request_id", requestID).Logger()

	runCtx, cancelRun := context.WithTimeout(ctx, d.opts.Timeout)
	defer cancelRun()

	// Every task queues at most one outcome, so sends never block.
	arrivals := make(chan Outcome, len(tasks))
	delivered := make(chan struct{})
	go func() {
		defer close(delivered)
		for outcome := range arrivals {
			if hooks.OnOutcome != nil {
				hooks.OnOutcome(outcome)
			}
		}
	}()

	var (
		mu       sync.Mutex
		closed   bool
		outcomes = make([]*Outcome, len(tasks))
		group    errgroup.Group
	)
	for i, task := range tasks {
		group.Go(func() error {
			outcome := runProvider(runCtx, task, req)

			mu.Lock()
			defer mu.Unlock()
			if closed {
				logger.Debug().Str("provider", task.config.Name).Msg("discarding late provider outcome")
				return nil
			}
			outcomes[i] = &outcome
			logOutcome(logger, outcome)
			arrivals <- outcome
			return nil
		})
	}

	finished := make(chan struct{})
	go func() {
		_ = group.Wait()
		close(finished)
	}()

	select {
	case <-finished:
	case <-runCtx.Done():
	}

	mu.Lock()
	closed = true
	close(arrivals)
	collected := make([]Outcome, len(tasks))
	pending := make([]string, 0, len(tasks))
	for i, task := range tasks {
		if outcomes[i] != nil {
			collected[i] = *outcomes[i]
			continue
		}
		pending = append(pending, task.config.Name)
		collected[i] = Outcome{
			Provider: task.config.Name,
			Status:   OutcomeTimedOut,
			Err:      context.DeadlineExceeded,
			Latency:  d.opts.Timeout,
		}
	}
	mu.Unlock()
	<-delivered

	if err := ctx.Err(); err != nil {
		logger.Debug().Err(err).Msg("translation request canceled")
		return nil, fmt.Errorf("%w: %w", ErrCanceled, err)
	}

	if len(pending) > 0 {
		logger.Warn().Strs("providers", pending).Dur("timeout", d.opts.Timeout).Msg("translation providers timed out")
	}

	merged := mergeOutcomes(tasks, collected, d.opts.KeepProviderNoMatch)
	if hooks.OnComplete != nil {
		hooks.OnComplete(merged)
	}

	return &Response{
		RequestID:  requestID,
		SourceLang: req.SourceLang,
		TargetLang: req.TargetLang,
		Results:    merged,
		Outcomes:   collected,
	}, nil
}

func runProvider(ctx context.Context, task dispatchTask, req Request) (outcome Outcome) {
	started := time.Now()
	outcome.Provider = task.config.Name

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome.Status = OutcomeFailed
			outcome.Results = nil
			outcome.Err = fmt.Errorf("provider %s panicked: %v", task.config.Name, recovered)
		}
		outcome.Latency = time.Since(started)
	}()

	results, err := task.provider.Translate(ctx, req)
	if err != nil {
		outcome.Status = OutcomeFailed
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			outcome.Status = OutcomeTimedOut
		}
		outcome.Err = err
		return outcome
	}

	outcome.Status = OutcomeOK
	outcome.Results = results
	return outcome
}

func logOutcome(logger zerolog.Logger, outcome Outcome) {
	if outcome.Failed() {
		logger.Warn().
			Err(outcome.Err).
			Str("provider", outcome.Provider).
			Str("status", string(outcome.Status)).
			Dur("latency", outcome.Latency).
			Msg("translation provider failed")
		return
	}
	logger.Debug().
		Str("provider", outcome.Provider).
		Int("results", len(outcome.Results)).
		Dur("latency", outcome.Latency).
		Msg("translation provider finished")
}

// mergeOutcomes concatenates outcomes in task (priority) order.
func mergeOutcomes(tasks []dispatchTask, outcomes []Outcome, keepProviderNoMatch bool) []Result {
	merged := make([]Result, 0, 16)
	for i, outcome := range outcomes {
		if outcome.Failed() {
			if tasks[i].config.NoMatchOnFailure {
				merged = append(merged, noMatchResult(tasks[i].provider.Name(), overallNoMatchRelevance))
			}
			continue
		}
		merged = append(merged, outcome.Results...)
	}

	if !keepProviderNoMatch {
		merged = collapseNoMatch(merged)
	}
	if len(merged) == 0 {
		merged = append(merged, noMatchResult("", overallNoMatchRelevance))
	}
	return merged
}

func collapseNoMatch(results []Result) []Result {
	hasMatch := false
	for _, result := range results {
		if !result.IsNoMatch() {
			hasMatch = true
			break
		}
	}

	out := make([]Result, 0, len(results))
	keptPlaceholder := false
	for _, result := range results {
		if !result.IsNoMatch() {
			out = append(out, result)
			continue
		}
		if hasMatch || keptPlaceholder {
			continue
		}
		out = append(out, result)
		keptPlaceholder = true
	}
	return out
}
