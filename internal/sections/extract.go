package sections

import "strings"

// State is the extraction state of one section.
type State int

const (
	Absent State = iota
	Partial
	Complete
)

func (s State) String() string {
	switch s {
	case Absent:
		return "absent"
	case Partial:
		return "partial"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Result is the best-available text for a section at some buffer state.
// Text is empty when State is Absent.
type Result struct {
	State State
	Text  string
}

// Extract returns the section text for kind found in buffer.
//
// Only the first start marker and the nearest end marker after it are
// structural; later repeats belong to the payload. An end marker that
// precedes every start marker is ignored.
func Extract(buffer string, kind Kind) Result {
	m := Lookup(kind)

	start := strings.Index(buffer, m.Start)
	if start < 0 {
		return Result{State: Absent}
	}
	body := buffer[start+len(m.Start):]

	end := strings.Index(body, m.End)
	if end < 0 {
		return Result{State: Partial, Text: strings.TrimSpace(body)}
	}
	return Result{State: Complete, Text: strings.TrimSpace(body[:end])}
}

// HasStart reports whether buffer contains the start marker of kind.
func HasStart(buffer string, kind Kind) bool {
	return strings.Contains(buffer, Lookup(kind).Start)
}
