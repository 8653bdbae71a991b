// Package engine drives speculative generation: it streams a completion,
// audits each reasoning unit concurrently, and on a rejection takes over the
// stream, rewinds the transcript to the offending unit, and restarts
// generation with corrective guidance appended.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/thinktwice-ai/thinktwice/internal/audit"
	"github.com/thinktwice-ai/thinktwice/internal/completion"
	"github.com/thinktwice-ai/thinktwice/internal/history"
	"github.com/thinktwice-ai/thinktwice/internal/protocol"
)

// Default engine tuning values.
const (
	DefaultMaxTakeovers     = 100
	DefaultBaseTemperature  = 0.0
	DefaultTemperatureStep  = 0.1
	DefaultMaxTemperature   = 1.0
	DefaultJudgeTemperature = 0.1
)

// Config tunes a run. Zero values fall back to the defaults above, except
// BaseTemperature where zero is itself the default.
type Config struct {
	MaxTakeovers     int
	BaseTemperature  float32
	TemperatureStep  float32
	MaxTemperature   float32
	JudgeTemperature float32
}

func (c Config) withDefaults() Config {
	if c.MaxTakeovers <= 0 {
		c.MaxTakeovers = DefaultMaxTakeovers
	}
	if c.TemperatureStep == 0 {
		c.TemperatureStep = DefaultTemperatureStep
	}
	if c.MaxTemperature == 0 {
		c.MaxTemperature = DefaultMaxTemperature
	}
	if c.JudgeTemperature == 0 {
		c.JudgeTemperature = DefaultJudgeTemperature
	}
	return c
}

// AbortError is returned when a run exhausts its takeover budget without
// producing an answer.
type AbortError struct {
	Takeovers    int
	MaxTakeovers int
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("run aborted after %d takeovers (budget %d)", e.Takeovers, e.MaxTakeovers)
}

// TakeoverRecord describes one executed takeover, for transcripts.
type TakeoverRecord struct {
	Iteration int    `json:"iteration"`
	Unit      int    `json:"unit"`
	Offset    int    `json:"offset"`
	Fix       string `json:"fix"`
}

// Engine runs speculative generation over a completion source.
type Engine struct {
	source completion.Source
	cfg    Config

	task      string
	log       *history.Log
	takeovers int
	// consecutive counts restarts since the last genuinely verified unit; it
	// drives the temperature schedule. Validators reset it concurrently, so
	// it is atomic.
	consecutive atomic.Int32
	iteration   int
	records     []TakeoverRecord

	progressMu sync.Mutex
	listeners  []ProgressListener
}

// New creates an engine over source with the given tuning.
func New(source completion.Source, cfg Config) *Engine {
	return &Engine{source: source, cfg: cfg.withDefaults()}
}

// Task returns the task of the current or most recent run.
func (e *Engine) Task() string { return e.task }

// Takeovers returns how many takeovers the current or most recent run used.
func (e *Engine) Takeovers() int { return e.takeovers }

// TakeoverLog returns a copy of the run's executed takeovers, in order.
func (e *Engine) TakeoverLog() []TakeoverRecord {
	out := make([]TakeoverRecord, len(e.records))
	copy(out, e.records)
	return out
}

// History returns a copy of the run's conversation log.
func (e *Engine) History() []history.Message {
	if e.log == nil {
		return nil
	}
	return e.log.Messages()
}

// Run executes one task to completion. It returns the extracted final answer
// on success and an *AbortError once the takeover budget is exhausted.
func (e *Engine) Run(ctx context.Context, task string) (string, error) {
	e.task = task
	e.log = history.New(protocol.GeneratorPrompt, task)
	e.takeovers = 0
	e.consecutive.Store(0)
	e.iteration = 0
	e.records = nil

	e.notifyProgress(ProgressEvent{EventType: EventRunStart, Text: task})

	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		e.iteration++
		answer, tookOver, err := e.runIteration(ctx)
		if err != nil {
			return "", err
		}
		if !tookOver {
			e.notifyProgress(ProgressEvent{
				EventType: EventRunComplete,
				Iteration: e.iteration,
				Text:      answer,
				Details:   map[string]any{"takeovers": e.takeovers},
			})
			return answer, nil
		}

		if e.takeovers >= e.cfg.MaxTakeovers {
			e.notifyProgress(ProgressEvent{
				EventType: EventRunAborted,
				Iteration: e.iteration,
				Details:   map[string]any{"takeovers": e.takeovers},
			})
			return "", &AbortError{Takeovers: e.takeovers, MaxTakeovers: e.cfg.MaxTakeovers}
		}
	}
}

// temperature computes the generation temperature for the next iteration.
// The first restart keeps the base; repeated consecutive restarts heat up the
// sampler one step at a time, capped at MaxTemperature.
func (e *Engine) temperature() float32 {
	t := e.cfg.BaseTemperature
	if n := e.consecutive.Load(); n >= 2 {
		t += float32(n-1) * e.cfg.TemperatureStep
	}
	if t > e.cfg.MaxTemperature {
		t = e.cfg.MaxTemperature
	}
	return t
}

func (e *Engine) runIteration(ctx context.Context) (answer string, tookOver bool, err error) {
	temp := e.temperature()
	e.notifyProgress(ProgressEvent{
		EventType: EventIterationStart,
		Iteration: e.iteration,
		Details:   map[string]any{"temperature": temp, "takeovers": e.takeovers},
	})

	ictx, cancel := context.WithCancel(ctx)
	defer cancel()

	var terminalSeen atomic.Bool
	coord := NewCoordinator(cancel, func() {
		slog.Debug("takeover arbitration won", "iteration", e.iteration)
	})

	pool := audit.NewPool(e.source, e.task, e.cfg.JudgeTemperature, audit.Hooks{
		OnAccept: func(unit int) {
			// A genuinely verified step means the generator has recovered;
			// the temperature schedule starts over. Fail-open accepts do not
			// count.
			e.consecutive.Store(0)
			e.notifyProgress(ProgressEvent{EventType: EventAuditAccepted, Iteration: e.iteration, Unit: unit})
		},
		OnReject: func(unit, start int, fix string) {
			e.notifyProgress(ProgressEvent{
				EventType: EventAuditRejected,
				Iteration: e.iteration,
				Unit:      unit,
				Text:      fix,
			})
			// Once the terminal marker is on the wire the takeover decision
			// belongs to the guardrail, which sees all verdicts at once.
			if !terminalSeen.Load() {
				coord.Request(unit, start, fix)
			}
		},
		OnFailOpen: func(unit int, response string) {
			e.notifyProgress(ProgressEvent{
				EventType: EventAuditFailOpen,
				Iteration: e.iteration,
				Unit:      unit,
				Text:      response,
			})
		},
		OnDropped: func(unit int, err error) {
			e.notifyProgress(ProgressEvent{
				EventType: EventAuditDropped,
				Iteration: e.iteration,
				Unit:      unit,
				Details:   map[string]any{"error": err.Error()},
			})
		},
	})

	stream, err := e.source.StreamGenerate(ictx, e.log.Messages(), temp)
	if err != nil {
		return "", false, fmt.Errorf("starting generation: %w", err)
	}
	defer stream.Close()

	var buf strings.Builder
	var detector protocol.UnitDetector

	for {
		delta, recvErr := stream.Recv()
		if recvErr != nil {
			if errors.Is(recvErr, io.EOF) {
				break
			}
			if coord.Triggered() || errors.Is(recvErr, context.Canceled) {
				// The stream died because a validator won; fall through to
				// the takeover path below.
				break
			}
			if ctx.Err() != nil {
				return "", false, ctx.Err()
			}
			return "", false, fmt.Errorf("receiving stream delta: %w", recvErr)
		}
		if delta == "" {
			continue
		}

		buf.WriteString(delta)
		e.notifyProgress(ProgressEvent{EventType: EventStreamDelta, Iteration: e.iteration, Text: delta})

		for _, unit := range detector.Scan(buf.String()) {
			e.notifyProgress(ProgressEvent{
				EventType: EventUnitDetected,
				Iteration: e.iteration,
				Unit:      unit.Index,
				Text:      unit.Body,
			})
			pool.Audit(ictx, unit)
		}

		if !terminalSeen.Load() && strings.Contains(buf.String(), protocol.FinalAnswerMarker) {
			terminalSeen.Store(true)
			e.notifyProgress(ProgressEvent{EventType: EventGuardrailWait, Iteration: e.iteration})
			pool.Wait()

			if !coord.Triggered() {
				if v, ok := pool.FirstRejected(); ok {
					coord.Request(v.Unit, v.Start, v.Fix)
				}
			}
			if coord.Triggered() {
				break
			}
			e.notifyProgress(ProgressEvent{EventType: EventGuardrailPassed, Iteration: e.iteration})
		}
	}

	// Join stragglers. Rejections landing here before the terminal marker was
	// seen can still win the arbitration.
	pool.Wait()

	if coord.Triggered() {
		e.applyTakeover(coord, buf.String())
		return "", true, nil
	}

	text := buf.String()
	if text != "" {
		e.log.Append(history.RoleAssistant, text)
	}

	if answer, ok := protocol.ExtractFinalAnswer(text); ok {
		return answer, false, nil
	}
	// No terminal tags: surface the full generation rather than nothing.
	return text, false, nil
}

// applyTakeover commits the truncated generation and the corrective
// instruction to the log. It runs on the engine loop only, keeping the log
// single-writer.
func (e *Engine) applyTakeover(coord *Coordinator, buffer string) {
	unit, offset, fix := coord.Winner()
	if fix == "" {
		fix = protocol.CorrectionRequired
	}

	truncated := buffer
	if offset > 0 && offset <= len(buffer) {
		truncated = buffer[:offset]
	} else if offset != 0 {
		slog.Warn("takeover offset out of range, keeping full buffer", "offset", offset, "len", len(buffer))
	}

	if trimmed := strings.TrimSpace(truncated); trimmed != "" {
		e.log.Append(history.RoleAssistant, truncated)
	}
	e.log.Append(history.RoleUser, protocol.InterventionMessage(fix, e.task))

	e.takeovers++
	e.consecutive.Add(1)
	e.records = append(e.records, TakeoverRecord{
		Iteration: e.iteration,
		Unit:      unit,
		Offset:    offset,
		Fix:       fix,
	})

	e.notifyProgress(ProgressEvent{
		EventType: EventTakeover,
		Iteration: e.iteration,
		Unit:      unit,
		Text:      fix,
		Details: map[string]any{
			"offset":    offset,
			"takeovers": e.takeovers,
		},
	})
}
