package engine

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thinktwice-ai/thinktwice/internal/completion"
	"github.com/thinktwice-ai/thinktwice/internal/history"
	"github.com/thinktwice-ai/thinktwice/internal/protocol"
)

// judgeOK is a JudgeFunc accepting everything.
func judgeOK(context.Context, string, int) (string, error) {
	return "<status>OK</status>", nil
}

// eventRecorder collects progress events for assertions.
type eventRecorder struct {
	mu     sync.Mutex
	events []ProgressEvent
}

func (r *eventRecorder) listen(e ProgressEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *eventRecorder) types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventType, len(r.events))
	for i, e := range r.events {
		out[i] = e.EventType
	}
	return out
}

func TestRunCleanCompletion(t *testing.T) {
	src := &completion.MockSource{
		Scripts: [][]string{{
			"Thinking it over. ",
			"<idea>2 + 2 equals 4</idea>",
			" So the result is ",
			"<final_answer>4</final_answer>",
		}},
		JudgeFunc: judgeOK,
	}

	eng := New(src, Config{})
	rec := &eventRecorder{}
	eng.OnProgress(rec.listen)

	answer, err := eng.Run(context.Background(), "what is 2 + 2?")
	require.NoError(t, err)
	assert.Equal(t, "4", answer)
	assert.Equal(t, 0, eng.Takeovers())
	assert.Equal(t, 1, src.StreamCalls())

	msgs := eng.History()
	require.Len(t, msgs, 3)
	assert.Equal(t, history.RoleSystem, msgs[0].Role)
	assert.Equal(t, protocol.GeneratorPrompt, msgs[0].Content)
	assert.Equal(t, "what is 2 + 2?", msgs[1].Content)
	assert.Equal(t, history.RoleAssistant, msgs[2].Role)
	assert.Contains(t, msgs[2].Content, "<final_answer>4</final_answer>")

	types := rec.types()
	assert.Contains(t, types, EventRunStart)
	assert.Contains(t, types, EventUnitDetected)
	assert.Contains(t, types, EventAuditAccepted)
	assert.Contains(t, types, EventGuardrailPassed)
	assert.Contains(t, types, EventRunComplete)
	assert.NotContains(t, types, EventTakeover)
}

func TestRunTakeoverTruncatesAndRestarts(t *testing.T) {
	src := &completion.MockSource{
		Scripts: [][]string{
			{"Starting out. ", "<idea>use formula A1</idea>", " continuing down the wrong path"},
			{"Recovering. ", "<idea>use formula A2</idea>", " <final_answer>corrected</final_answer>"},
		},
		JudgeFunc: func(_ context.Context, prompt string, _ int) (string, error) {
			if strings.Contains(prompt, "formula A1") {
				return "<status>FAIL</status><fix>use formula A2 instead</fix>", nil
			}
			return "<status>OK</status>", nil
		},
	}

	eng := New(src, Config{})
	answer, err := eng.Run(context.Background(), "pick the right formula")
	require.NoError(t, err)
	assert.Equal(t, "corrected", answer)
	assert.Equal(t, 1, eng.Takeovers())
	assert.Equal(t, 2, src.StreamCalls())

	msgs := eng.History()
	// system, task, truncated assistant, intervention, clean assistant
	require.Len(t, msgs, 5)
	assert.Equal(t, "Starting out. ", msgs[2].Content)
	assert.NotContains(t, msgs[2].Content, "wrong path")

	assert.Equal(t, history.RoleUser, msgs[3].Role)
	assert.Contains(t, msgs[3].Content, "use formula A2 instead")
	assert.Contains(t, msgs[3].Content, "pick the right formula")

	assert.Contains(t, msgs[4].Content, "corrected")

	log := eng.TakeoverLog()
	require.Len(t, log, 1)
	assert.Equal(t, TakeoverRecord{
		Iteration: 1,
		Unit:      0,
		Offset:    len("Starting out. "),
		Fix:       "use formula A2 instead",
	}, log[0])
}

func TestRunGuardrailDiscardsTerminalText(t *testing.T) {
	src := &completion.MockSource{
		Scripts: [][]string{
			{"First pass. ", "<idea>flawed shortcut</idea>", " <final_answer>99</final_answer>"},
			{"Second pass. ", "<idea>careful route</idea>", " <final_answer>7</final_answer>"},
		},
		JudgeFunc: func(ctx context.Context, prompt string, _ int) (string, error) {
			if strings.Contains(prompt, "flawed shortcut") {
				select {
				case <-time.After(15 * time.Millisecond):
				case <-ctx.Done():
					return "", ctx.Err()
				}
				return "<status>FAIL</status><fix>take the careful route</fix>", nil
			}
			return "<status>OK</status>", nil
		},
	}

	eng := New(src, Config{})
	answer, err := eng.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "7", answer)
	assert.Equal(t, 1, eng.Takeovers())

	for _, m := range eng.History() {
		assert.NotContains(t, m.Content, "99", "rejected terminal answer must never reach the log")
	}
}

func TestRunGuardrailPicksEarliestRejectedUnit(t *testing.T) {
	src := &completion.MockSource{
		Scripts: [][]string{
			{
				"Intro. ",
				"<idea>early mistake</idea>",
				" middle ",
				"<idea>late mistake</idea>",
				" <final_answer>x</final_answer>",
			},
			{"Redo. ", "<idea>fine now</idea>", " <final_answer>done</final_answer>"},
		},
		JudgeFunc: func(ctx context.Context, prompt string, _ int) (string, error) {
			switch {
			case strings.Contains(prompt, "early mistake"):
				select {
				case <-time.After(40 * time.Millisecond):
				case <-ctx.Done():
					return "", ctx.Err()
				}
				return "<status>FAIL</status><fix>fix the early step</fix>", nil
			case strings.Contains(prompt, "late mistake"):
				select {
				case <-time.After(10 * time.Millisecond):
				case <-ctx.Done():
					return "", ctx.Err()
				}
				return "<status>FAIL</status><fix>fix the late step</fix>", nil
			default:
				return "<status>OK</status>", nil
			}
		},
	}

	eng := New(src, Config{})
	answer, err := eng.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "done", answer)

	msgs := eng.History()
	// The rewind lands before the first bad unit even though the second
	// verdict arrived first.
	assert.Equal(t, "Intro. ", msgs[2].Content)
	assert.Contains(t, msgs[3].Content, "fix the early step")
}

func TestRunExactlyOneTakeoverPerIteration(t *testing.T) {
	src := &completion.MockSource{
		Scripts: [][]string{
			{
				"Head. ",
				"<idea>bad a</idea>",
				"<idea>bad b</idea>",
				"<idea>bad c</idea>",
				"<idea>bad d</idea>",
			},
			{"Clean. ", "<idea>ok</idea>", " <final_answer>settled</final_answer>"},
		},
		JudgeFunc: func(_ context.Context, prompt string, _ int) (string, error) {
			if strings.Contains(prompt, "bad") {
				return "<status>FAIL</status><fix>redo this step</fix>", nil
			}
			return "<status>OK</status>", nil
		},
	}

	eng := New(src, Config{})
	answer, err := eng.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "settled", answer)
	assert.Equal(t, 1, eng.Takeovers(), "four racing rejections must yield one takeover")

	interventions := 0
	for _, m := range eng.History() {
		if m.Role == history.RoleUser && strings.Contains(m.Content, "redo this step") {
			interventions++
		}
	}
	assert.Equal(t, 1, interventions)
}

func TestRunAbortsWhenBudgetExhausted(t *testing.T) {
	src := &completion.MockSource{
		Scripts: [][]string{
			{"Attempt. ", "<idea>never right</idea>", " trailing"},
		},
		JudgeFunc: func(_ context.Context, _ string, _ int) (string, error) {
			return "<status>FAIL</status><fix>try again</fix>", nil
		},
	}

	eng := New(src, Config{MaxTakeovers: 2})
	rec := &eventRecorder{}
	eng.OnProgress(rec.listen)

	_, err := eng.Run(context.Background(), "task")
	require.Error(t, err)

	var abort *AbortError
	require.ErrorAs(t, err, &abort)
	assert.Equal(t, 2, abort.Takeovers)
	assert.Equal(t, 2, abort.MaxTakeovers)
	assert.Equal(t, 2, src.StreamCalls())
	assert.Contains(t, rec.types(), EventRunAborted)
}

func TestRunTemperatureSchedule(t *testing.T) {
	src := &completion.MockSource{
		Scripts: [][]string{
			{"Attempt. ", "<idea>never right</idea>"},
		},
		JudgeFunc: func(_ context.Context, _ string, _ int) (string, error) {
			return "<status>FAIL</status><fix>again</fix>", nil
		},
	}

	eng := New(src, Config{
		MaxTakeovers:    4,
		TemperatureStep: 0.25,
		MaxTemperature:  0.5,
	})
	_, err := eng.Run(context.Background(), "task")
	require.Error(t, err)

	// First attempt and first retry stay at base; repeated consecutive
	// restarts step up, clamped at the ceiling.
	assert.Equal(t, []float32{0, 0, 0.25, 0.5}, src.Temperatures())
}

func TestRunAcceptedUnitResetsTemperatureSchedule(t *testing.T) {
	src := &completion.MockSource{
		Scripts: [][]string{
			{"a ", "<idea>early bad</idea>"},
			{"b ", "<idea>early bad</idea>"},
			{"c ", "<idea>good step</idea>", " then ", "<idea>slow bad</idea>"},
			{"d ", "<idea>fine</idea>", " <final_answer>recovered</final_answer>"},
		},
		JudgeFunc: func(ctx context.Context, prompt string, _ int) (string, error) {
			switch {
			case strings.Contains(prompt, "early bad"):
				return "<status>FAIL</status><fix>redo</fix>", nil
			case strings.Contains(prompt, "slow bad"):
				select {
				case <-time.After(15 * time.Millisecond):
				case <-ctx.Done():
					return "", ctx.Err()
				}
				return "<status>FAIL</status><fix>redo</fix>", nil
			default:
				return "<status>OK</status>", nil
			}
		},
	}

	eng := New(src, Config{MaxTakeovers: 10, TemperatureStep: 0.25})
	answer, err := eng.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "recovered", answer)
	assert.Equal(t, 3, eng.Takeovers())

	// The third attempt runs hot after two straight restarts, but the
	// verified step inside it resets the schedule, so the fourth attempt is
	// back at base.
	assert.Equal(t, []float32{0, 0, 0.25, 0}, src.Temperatures())
}

func TestRunFailOpenOnUnparseableVerdict(t *testing.T) {
	src := &completion.MockSource{
		Scripts: [][]string{
			{"Hm. ", "<idea>debatable</idea>", " <final_answer>kept</final_answer>"},
		},
		JudgeFunc: func(_ context.Context, _ string, _ int) (string, error) {
			return "no tags at all, sorry", nil
		},
	}

	eng := New(src, Config{})
	rec := &eventRecorder{}
	eng.OnProgress(rec.listen)

	answer, err := eng.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "kept", answer)
	assert.Equal(t, 0, eng.Takeovers())
	assert.Contains(t, rec.types(), EventAuditFailOpen)
}

func TestRunContinuesWhenJudgeErrors(t *testing.T) {
	src := &completion.MockSource{
		Scripts: [][]string{
			{"Go. ", "<idea>unverifiable</idea>", " <final_answer>still done</final_answer>"},
		},
		JudgeFunc: func(_ context.Context, _ string, _ int) (string, error) {
			return "", errors.New("gateway timeout")
		},
	}

	eng := New(src, Config{})
	rec := &eventRecorder{}
	eng.OnProgress(rec.listen)

	answer, err := eng.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "still done", answer)
	assert.Contains(t, rec.types(), EventAuditDropped)
}

func TestRunZeroOffsetKeepsFullBuffer(t *testing.T) {
	src := &completion.MockSource{
		Scripts: [][]string{
			{"<idea>leading and wrong</idea> trailing text"},
			{"Retry. ", "<idea>fine</idea>", " <final_answer>over</final_answer>"},
		},
		JudgeFunc: func(_ context.Context, prompt string, _ int) (string, error) {
			if strings.Contains(prompt, "leading and wrong") {
				return "<status>FAIL</status><fix>start differently</fix>", nil
			}
			return "<status>OK</status>", nil
		},
	}

	eng := New(src, Config{})
	_, err := eng.Run(context.Background(), "task")
	require.NoError(t, err)

	msgs := eng.History()
	// A unit starting at the buffer head cannot be truncated away without
	// losing the whole attempt, so the full buffer is preserved.
	assert.Equal(t, "<idea>leading and wrong</idea> trailing text", msgs[2].Content)
}

func TestRunWithoutTerminalTagsReturnsFullText(t *testing.T) {
	src := &completion.MockSource{
		Scripts:   [][]string{{"Plain answer with ", "no tags."}},
		JudgeFunc: judgeOK,
	}

	eng := New(src, Config{})
	answer, err := eng.Run(context.Background(), "task")
	require.NoError(t, err)
	assert.Equal(t, "Plain answer with no tags.", answer)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &completion.MockSource{Scripts: [][]string{{"never read"}}}
	eng := New(src, Config{})

	_, err := eng.Run(ctx, "task")
	assert.ErrorIs(t, err, context.Canceled)
}
