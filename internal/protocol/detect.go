package protocol

import "strings"

// Unit is a completed <idea> span found in the generation buffer. Start and
// End are byte offsets of the full tagged span; Index is the discovery order,
// assigned as closing tags appear in the buffer.
type Unit struct {
	Index int
	Start int
	End   int
	Body  string
}

// UnitDetector finds newly completed idea spans in a growing buffer. The
// buffer only ever grows, so spans already reported stay valid and each call
// only returns spans beyond the last reported one. The zero value is ready
// to use; a detector is not safe for concurrent use.
type UnitDetector struct {
	seen int
}

// Scan re-scans buffer and returns the units whose closing tag appeared
// since the previous call, in the order the closing tags occur.
func (d *UnitDetector) Scan(buffer string) []Unit {
	matches := ideaRe.FindAllStringSubmatchIndex(buffer, -1)
	if len(matches) <= d.seen {
		return nil
	}

	units := make([]Unit, 0, len(matches)-d.seen)
	for i := d.seen; i < len(matches); i++ {
		m := matches[i]
		units = append(units, Unit{
			Index: i,
			Start: m[0],
			End:   m[1],
			Body:  strings.TrimSpace(buffer[m[2]:m[3]]),
		})
	}
	d.seen = len(matches)
	return units
}

// Count reports how many units have been discovered so far.
func (d *UnitDetector) Count() int {
	return d.seen
}
