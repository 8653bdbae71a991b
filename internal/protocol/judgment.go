package protocol

import (
	"regexp"
	"strings"
)

var (
	statusRe = regexp.MustCompile(`<status>(OK|FAIL)</status>`)
	fixRe    = regexp.MustCompile(`(?s)<fix>(.*?)</fix>`)
)

// Judgment is the parsed outcome of an auditor response.
type Judgment struct {
	// Parsed is false when the response carried no recognizable status
	// marker. Callers treat that as an implicit accept (fail-open) so a
	// malformed auditor can never stall the run.
	Parsed bool
	OK     bool
	Fix    string
}

// ParseJudgment extracts the verdict from a raw auditor response. A FAIL
// without a <fix> block records NoFixPlaceholder as the corrective text.
func ParseJudgment(response string) Judgment {
	m := statusRe.FindStringSubmatch(response)
	if m == nil {
		return Judgment{Parsed: false, OK: true}
	}

	if m[1] == "OK" {
		return Judgment{Parsed: true, OK: true}
	}

	fix := NoFixPlaceholder
	if fm := fixRe.FindStringSubmatch(response); fm != nil {
		if trimmed := strings.TrimSpace(fm[1]); trimmed != "" {
			fix = trimmed
		}
	}
	return Judgment{Parsed: true, OK: false, Fix: fix}
}
