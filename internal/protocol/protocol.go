// Package protocol defines the textual protocol spoken between the generator,
// the auditor, and the engine: the idea and final-answer tag grammar, the
// auditor's verdict format, and the intervention message injected after a
// takeover. Collaborators that render transcripts depend on these strings
// byte-for-byte, so they must not drift.
package protocol

import (
	"fmt"
	"regexp"
	"strings"
)

// Tag grammar for the generation stream.
const (
	IdeaOpen  = "<idea>"
	IdeaClose = "</idea>"

	FinalAnswerOpen  = "<final_answer>"
	FinalAnswerClose = "</final_answer>"

	// FinalAnswerMarker is the substring whose first appearance triggers the
	// guardrail. It is the bare opening tag without the closing '>' so the
	// guardrail engages as soon as the tag starts, before any answer text.
	FinalAnswerMarker = "<final_answer"
)

// Placeholders for missing corrective text.
const (
	// NoFixPlaceholder is recorded when the auditor rejects a unit without
	// supplying a <fix> block.
	NoFixPlaceholder = "[No fix provided]"

	// CorrectionRequired is the guardrail's fallback when a rejected verdict
	// somehow carries no corrective text at all.
	CorrectionRequired = "[Correction required]"
)

var (
	ideaRe        = regexp.MustCompile(`(?s)<idea>(.*?)</idea>`)
	finalAnswerRe = regexp.MustCompile(`(?s)<final_answer>(.*?)</final_answer>`)
)

// GeneratorPrompt is the system directive for the reasoning generator. It
// enforces micro-ideas: one atomic step per <idea> tag, so the incremental
// audit loop has small units to verify.
const GeneratorPrompt = `
You are a Deep Reasoning Engine using a "ThinkTwice" architecture.
Your goal is to solve complex user queries with absolute precision.

PROTOCOL:

1. MICRO-IDEAS (MANDATORY):
   - Each <idea> tag must contain ONE ATOMIC STEP of reasoning.
   - Maximum 1-2 sentences per idea. Be extremely concise.
   - Examples of atomic steps:
     * "Identifying the constraint: no letter 'a'."
     * "Checking word 'elephant': contains 'a'. REJECTED."
     * "Trying 'jumbo': j-u-m-b-o. No 'a'. VALID."
   - NEVER put your entire thought process in one idea.
   - Think of each <idea> as a single move in chess, not the whole game.

2. EXTERNAL AUDIT:
   - Every <idea> is verified by an external Auditor.
   - If flawed, you will be interrupted and given a corrected direction.
   - When interrupted, ABANDON your previous reasoning entirely.

3. FINAL OUTPUT (<final_answer>):
   - Only output <final_answer> when you have verified each step.
   - This is the polished, user-facing response.
   - Do NOT include <idea> tags inside <final_answer>.

EXAMPLE FLOW (notice the small, atomic steps):
<idea>Constraint: write without letter 'a'.</idea>
<idea>Trying 'beautiful': b-e-a-u-t-i-f-u-l. Contains 'a'. REJECTED.</idea>
<idea>Trying 'lovely': l-o-v-e-l-y. No 'a'. VALID.</idea>
<idea>Drafting sentence: "The lovely sunset..."</idea>
<final_answer>The lovely sunset glowed over the horizon.</final_answer>
`

// AuditorPrompt is the system directive for the validation model.
const AuditorPrompt = `
You are the Executive Logic Sentinel. Your role is to validate the GENERATOR's logic step-by-step.

INPUT DATA:
You will receive the User's Original Query + The LATEST <idea> generated.

AUDIT ALGORITHM (Strict Order):
1. **CONTEXT AWARENESS**:
   - Distinguish between "Planning/Analyzing" and "Executing/Drafting".
   - If the constraint is "No letter E", and the Generator thinks: "I must avoid words like 'Elephant'", this is **PASS** (Correct reasoning).
   - If the Generator thinks: "I will use the word 'Elephant' in the story", this is **FAIL** (Constraint violation).

2. **CONSTRAINT CHECK**:
   - Verify specific negative constraints (e.g., no 'if' statements, specific word counts, forbidden letters).
   - Verify logical consistency (e.g., in math or code logic).

3. **FACTUAL CHECK**:
   - Ensure no hallucinations or false premises.

OUTPUT FORMAT (XML):
- If the thought is valid within the context of solving the problem:
  <status>OK</status>

- If there is a clear violation of constraints or logic IN THE PROPOSED SOLUTION PATH:
  <status>FAIL</status>
  <fix>
  [Write the CORRECTED thought. Be direct. Example: "The word 'Elephant' contains 'E'. Use 'Jumbo' instead."]
  </fix>
`

// interventionTemplate is appended to history as a user message when a
// takeover occurs. The corrected direction comes first, then the original
// task is restated verbatim to re-anchor the generator after truncation.
const interventionTemplate = `
[SYSTEM INTERVENTION - CRITICAL ERROR]

STOP. Your previous reasoning chain was FLAWED and has been REJECTED.

The Auditor identified this issue:
%s

MANDATORY INSTRUCTIONS:
1. IGNORE everything you wrote before this intervention.
2. Do NOT continue from where you left off.
3. Start your reasoning from ZERO with the corrected understanding.
4. Use MICRO-IDEAS: one small atomic step per <idea> tag.

[ORIGINAL TASK - START FRESH]
---
%s
---

Begin with a new <idea> tag. Think step-by-step with small, verifiable steps.
`

// InterventionMessage builds the user-role correction message for a takeover.
func InterventionMessage(fix, task string) string {
	return fmt.Sprintf(interventionTemplate, fix, task)
}

// AuditorRequest builds the user prompt for a single idea audit.
func AuditorRequest(taskContext, idea string) string {
	return fmt.Sprintf(`TASK CONTEXT:
%s

IDEA TO VERIFY:
<idea>%s</idea>

Verify if this reasoning step is correct.`, taskContext, idea)
}

// ExtractFinalAnswer returns the trimmed content of the first
// <final_answer> block in text. When no complete block exists the full text
// is returned unchanged, with ok=false.
func ExtractFinalAnswer(text string) (answer string, ok bool) {
	m := finalAnswerRe.FindStringSubmatch(text)
	if m == nil {
		return text, false
	}
	return strings.TrimSpace(m[1]), true
}
