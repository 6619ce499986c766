package translation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
	"unicode"
)

const (
	// DefaultTranslateShellPath is the translate-shell executable name.
	DefaultTranslateShellPath = "trans"

	shellRelevance = 0.01
	shellWaitDelay = 2 * time.Second
)

type commandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// ShellProvider runs translate-shell with one engine (bing, google, ...) and reads back the
// trimmed translation. Its results are Audio so the host can offer playback.
type ShellProvider struct {
	binary  string
	engine  string
	command commandFunc
}

func NewShellProvider(binary, engine string) *ShellProvider {
	trimmed := strings.TrimSpace(binary)
	if trimmed == "" {
		trimmed = DefaultTranslateShellPath
	}
	return &ShellProvider{
		binary:  trimmed,
		engine:  strings.ToLower(strings.TrimSpace(engine)),
		command: exec.CommandContext,
	}
}

// Name returns the engine as a display name, e.g. "Bing".
func (p *ShellProvider) Name() string {
	if p == nil || p.engine == "" {
		return "translate-shell"
	}
	runes := []rune(p.engine)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func (p *ShellProvider) Translate(ctx context.Context, req Request) ([]Result, error) {
	if p == nil {
		return nil, fmt.Errorf("shell provider is nil")
	}

	cmd := p.command(ctx, p.binary, p.args(req)...)
	cmd.WaitDelay = shellWaitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s helper interrupted: %w", p.engine, ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s exited with code %d: %s",
				ErrProcessFailed, p.engine, exitErr.ExitCode(), truncate(strings.TrimSpace(stderr.String()), 200))
		}
		return nil, fmt.Errorf("%w: start %s: %v", ErrProcessFailed, p.binary, err)
	}

	text := strings.TrimSpace(stdout.String())
	if text == "" {
		return nil, nil
	}
	return []Result{{
		Text:      text,
		Relevance: shellRelevance,
		Category:  CategoryAudio,
		Provider:  p.Name(),
	}}, nil
}

func (p *ShellProvider) args(req Request) []string {
	args := make([]string, 0, 7)
	if p.engine != "" {
		args = append(args, "-e", p.engine)
	}
	return append(args,
		"-no-ansi",
		"-brief",
		req.SourceLang+":"+req.TargetLang,
		"--",
		strings.TrimSpace(req.Text),
	)
}
