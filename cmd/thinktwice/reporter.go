package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/thinktwice-ai/thinktwice/internal/engine"
)

// ANSI escape sequences used for live output.
const (
	colorReset  = "\033[0m"
	colorDim    = "\033[2m"
	colorBold   = "\033[1m"
	colorRed    = "\033[91m"
	colorGreen  = "\033[92m"
	colorYellow = "\033[93m"
	colorCyan   = "\033[96m"
)

// reporter renders engine progress events as a live terminal stream.
type reporter struct {
	out     io.Writer
	verbose bool
	color   bool
}

func newReporter(out io.Writer, verbose, color bool) *reporter {
	return &reporter{out: out, verbose: verbose, color: color}
}

func (r *reporter) paint(code, s string) string {
	if !r.color {
		return s
	}
	return code + s + colorReset
}

// Listen is an engine.ProgressListener.
func (r *reporter) Listen(event engine.ProgressEvent) {
	switch event.EventType {
	case engine.EventIterationStart:
		if r.verbose {
			fmt.Fprintf(r.out, "\n%s\n", r.paint(colorDim, fmt.Sprintf("── attempt %d (temperature %v) ──", event.Iteration, event.Details["temperature"])))
		}
	case engine.EventStreamDelta:
		fmt.Fprint(r.out, r.paint(colorDim, event.Text))
	case engine.EventUnitDetected:
		if r.verbose {
			fmt.Fprintf(r.out, "\n%s\n", r.paint(colorCyan, fmt.Sprintf("? auditing step %d", event.Unit+1)))
		}
	case engine.EventAuditAccepted:
		if r.verbose {
			fmt.Fprintf(r.out, "\n%s\n", r.paint(colorGreen, fmt.Sprintf("✓ step %d verified", event.Unit+1)))
		}
	case engine.EventAuditRejected:
		fmt.Fprintf(r.out, "\n%s\n", r.paint(colorYellow, fmt.Sprintf("✗ step %d rejected: %s", event.Unit+1, event.Text)))
	case engine.EventAuditFailOpen:
		if r.verbose {
			fmt.Fprintf(r.out, "\n%s\n", r.paint(colorYellow, fmt.Sprintf("~ step %d verdict unreadable, accepting", event.Unit+1)))
		}
	case engine.EventAuditDropped:
		fmt.Fprintf(r.out, "\n%s\n", r.paint(colorYellow, fmt.Sprintf("~ step %d audit failed: %v", event.Unit+1, event.Details["error"])))
	case engine.EventGuardrailWait:
		if r.verbose {
			fmt.Fprintf(r.out, "\n%s\n", r.paint(colorDim, "… final answer reached, waiting for outstanding audits"))
		}
	case engine.EventGuardrailPassed:
		if r.verbose {
			fmt.Fprintf(r.out, "%s\n", r.paint(colorDim, "… all audits passed"))
		}
	case engine.EventTakeover:
		fmt.Fprintf(r.out, "\n%s\n", r.paint(colorRed, fmt.Sprintf("⟲ takeover #%v — restarting with: %s", event.Details["takeovers"], event.Text)))
	case engine.EventRunComplete:
		fmt.Fprintf(r.out, "\n\n%s\n", r.renderAnswerBox(event.Text))
	case engine.EventRunAborted:
		fmt.Fprintf(r.out, "\n%s\n", r.paint(colorRed, "run aborted: takeover budget exhausted"))
	}
}

// renderAnswerBox draws the final answer inside a box sized to its content.
func (r *reporter) renderAnswerBox(answer string) string {
	lines := strings.Split(strings.TrimSpace(answer), "\n")
	width := runewidth.StringWidth("FINAL ANSWER")
	for _, l := range lines {
		if w := runewidth.StringWidth(l); w > width {
			width = w
		}
	}

	var b strings.Builder
	b.WriteString("┌─" + strings.Repeat("─", width) + "─┐\n")
	b.WriteString("│ " + padRight("FINAL ANSWER", width) + " │\n")
	b.WriteString("├─" + strings.Repeat("─", width) + "─┤\n")
	for _, l := range lines {
		b.WriteString("│ " + padRight(l, width) + " │\n")
	}
	b.WriteString("└─" + strings.Repeat("─", width) + "─┘")
	return r.paint(colorGreen, b.String())
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}
