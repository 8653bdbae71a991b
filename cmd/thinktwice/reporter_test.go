package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thinktwice-ai/thinktwice/internal/engine"
)

func TestPadRight(t *testing.T) {
	assert.Equal(t, "ab   ", padRight("ab", 5))
	assert.Equal(t, "abcdef", padRight("abcdef", 5))
	// Wide runes take two columns.
	assert.Equal(t, "⟲a  ", padRight("⟲a", 4))
}

func TestReporterStreamsDeltas(t *testing.T) {
	var buf bytes.Buffer
	rep := newReporter(&buf, false, false)

	rep.Listen(engine.ProgressEvent{EventType: engine.EventStreamDelta, Text: "hello "})
	rep.Listen(engine.ProgressEvent{EventType: engine.EventStreamDelta, Text: "world"})

	assert.Equal(t, "hello world", buf.String())
}

func TestReporterVerboseAuditEvents(t *testing.T) {
	var buf bytes.Buffer
	rep := newReporter(&buf, true, false)

	rep.Listen(engine.ProgressEvent{EventType: engine.EventAuditAccepted, Unit: 0})
	rep.Listen(engine.ProgressEvent{EventType: engine.EventAuditRejected, Unit: 1, Text: "fix it"})

	out := buf.String()
	assert.Contains(t, out, "✓ step 1 verified")
	assert.Contains(t, out, "✗ step 2 rejected: fix it")
}

func TestReporterQuietSuppressesVerboseEvents(t *testing.T) {
	var buf bytes.Buffer
	rep := newReporter(&buf, false, false)

	rep.Listen(engine.ProgressEvent{EventType: engine.EventAuditAccepted, Unit: 0})
	rep.Listen(engine.ProgressEvent{EventType: engine.EventGuardrailWait})

	assert.Empty(t, buf.String())
}

func TestReporterTakeoverAlwaysShown(t *testing.T) {
	var buf bytes.Buffer
	rep := newReporter(&buf, false, false)

	rep.Listen(engine.ProgressEvent{
		EventType: engine.EventTakeover,
		Text:      "use the other formula",
		Details:   map[string]any{"takeovers": 1},
	})

	assert.Contains(t, buf.String(), "takeover #1")
	assert.Contains(t, buf.String(), "use the other formula")
}

func TestRenderAnswerBox(t *testing.T) {
	rep := newReporter(&bytes.Buffer{}, false, false)
	box := rep.renderAnswerBox("42")

	assert.Contains(t, box, "FINAL ANSWER")
	assert.Contains(t, box, "│ 42           │")
}

func TestReporterColorCodes(t *testing.T) {
	var buf bytes.Buffer
	rep := newReporter(&buf, false, true)

	rep.Listen(engine.ProgressEvent{EventType: engine.EventStreamDelta, Text: "x"})
	assert.Contains(t, buf.String(), colorDim)
	assert.Contains(t, buf.String(), colorReset)
}
