// Package compare runs the same task through a plain completion and through
// the speculative engine, side by side, and renders the results as markdown
// artifacts for manual review.
package compare

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/thinktwice-ai/thinktwice/internal/completion"
	"github.com/thinktwice-ai/thinktwice/internal/engine"
	"github.com/thinktwice-ai/thinktwice/internal/history"
)

// Mode names for the two runs.
const (
	ModeRaw        = "raw"
	ModeThinkTwice = "thinktwice"
)

// Result is the outcome of one mode's run.
type Result struct {
	Mode       string
	Answer     string
	Takeovers  int
	DurationMs int64
	Err        error
}

// Report holds both results plus the engine run's conversation log.
type Report struct {
	Task       string
	Raw        Result
	ThinkTwice Result
	History    []history.Message
}

// Run executes both modes concurrently and returns their report. Individual
// mode failures land in the per-mode Err field rather than aborting the
// other run.
func Run(ctx context.Context, source completion.Source, cfg engine.Config, task string, listener engine.ProgressListener) *Report {
	report := &Report{Task: task}

	var g errgroup.Group

	g.Go(func() error {
		start := time.Now()
		answer, err := source.Judge(ctx, "", task, cfg.BaseTemperature)
		report.Raw = Result{
			Mode:       ModeRaw,
			Answer:     answer,
			DurationMs: time.Since(start).Milliseconds(),
			Err:        err,
		}
		return nil
	})

	g.Go(func() error {
		start := time.Now()
		eng := engine.New(source, cfg)
		if listener != nil {
			eng.OnProgress(listener)
		}
		answer, err := eng.Run(ctx, task)
		report.ThinkTwice = Result{
			Mode:       ModeThinkTwice,
			Answer:     answer,
			Takeovers:  eng.Takeovers(),
			DurationMs: time.Since(start).Milliseconds(),
			Err:        err,
		}
		report.History = eng.History()
		return nil
	})

	// Goroutines stash their results; no errors flow through the group.
	_ = g.Wait()
	return report
}

// WriteArtifacts renders the report into a timestamped directory under
// baseDir and returns that directory's path.
func WriteArtifacts(baseDir string, report *Report, ts time.Time) (string, error) {
	dir := filepath.Join(baseDir, fmt.Sprintf("compare-%s", ts.Format("20060102-150405")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}

	files := map[string]string{
		"Raw.md":                 renderResult(report.Task, report.Raw),
		"ThinkTwice.md":          renderResult(report.Task, report.ThinkTwice),
		"ThinkTwiceArtifacts.md": renderHistory(report.Task, report.History),
	}
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			return "", fmt.Errorf("write %s: %w", name, err)
		}
	}
	return dir, nil
}

func renderResult(task string, r Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", strings.ToUpper(r.Mode[:1])+r.Mode[1:])
	fmt.Fprintf(&b, "**Task:** %s\n\n", task)
	fmt.Fprintf(&b, "**Duration:** %dms\n\n", r.DurationMs)
	if r.Mode == ModeThinkTwice {
		fmt.Fprintf(&b, "**Takeovers:** %d\n\n", r.Takeovers)
	}
	if r.Err != nil {
		var abort *engine.AbortError
		if errors.As(r.Err, &abort) {
			fmt.Fprintf(&b, "**Status:** aborted (%v)\n", abort)
		} else {
			fmt.Fprintf(&b, "**Status:** error (%v)\n", r.Err)
		}
		return b.String()
	}
	fmt.Fprintf(&b, "## Answer\n\n%s\n", r.Answer)
	return b.String()
}

func renderHistory(task string, msgs []history.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Conversation log\n\n**Task:** %s\n\n", task)
	for i, m := range msgs {
		fmt.Fprintf(&b, "## %d. %s\n\n%s\n\n", i+1, m.Role, m.Content)
	}
	return b.String()
}
