// Package transcript writes run artifacts to disk as JSON so a run can be
// inspected after the fact: the full conversation log, takeover count, and
// the extracted final answer.
package transcript

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/thinktwice-ai/thinktwice/internal/engine"
	"github.com/thinktwice-ai/thinktwice/internal/history"
)

// Status values for a recorded run.
const (
	StatusCompleted = "completed"
	StatusAborted   = "aborted"
	StatusError     = "error"
)

// RunTranscript is the on-disk record of one engine run.
type RunTranscript struct {
	Task        string                  `json:"task"`
	Status      string                  `json:"status"`
	FinalAnswer string                  `json:"final_answer,omitempty"`
	Takeovers   int                     `json:"takeovers"`
	StartedAt   time.Time               `json:"started_at"`
	CompletedAt time.Time               `json:"completed_at"`
	DurationMs  int64                   `json:"duration_ms"`
	History     []history.Message       `json:"history"`
	TakeoverLog []engine.TakeoverRecord `json:"takeover_log,omitempty"`
	ErrorMsg    string                  `json:"error,omitempty"`
}

// sanitize replaces characters that are unsafe in filenames.
var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

func sanitizeName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	if len(s) > 40 {
		s = s[:40]
	}
	s = strings.ReplaceAll(s, " ", "-")
	s = unsafeChars.ReplaceAllString(s, "")
	if s == "" {
		s = "unnamed"
	}
	return s
}

// Filename returns the transcript filename for a task.
func Filename(task string, ts time.Time) string {
	return fmt.Sprintf("%s-%s.json", sanitizeName(task), ts.Format("20060102-150405"))
}

// Build constructs a RunTranscript from run results.
func Build(task, answer, status, errMsg string, takeovers int, msgs []history.Message, takeoverLog []engine.TakeoverRecord, start, end time.Time) *RunTranscript {
	return &RunTranscript{
		Task:        task,
		Status:      status,
		FinalAnswer: answer,
		Takeovers:   takeovers,
		StartedAt:   start,
		CompletedAt: end,
		DurationMs:  end.Sub(start).Milliseconds(),
		History:     msgs,
		TakeoverLog: takeoverLog,
		ErrorMsg:    errMsg,
	}
}

// Write serializes a RunTranscript and writes it to dir.
func Write(dir string, t *RunTranscript) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create transcript dir: %w", err)
	}

	name := Filename(t.Task, t.StartedAt)
	path := filepath.Join(dir, name)

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal transcript: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write transcript: %w", err)
	}

	return path, nil
}
