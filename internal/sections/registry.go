// Package sections describes the three delimited sections of a generation
// reply and extracts their best-available text from a growing buffer.
package sections

// Kind identifies one of the delimited sections. Kinds are ordered the way
// the backend emits them.
type Kind int

const (
	Analysis Kind = iota
	Code
	Summary
)

// Kinds lists every section kind in emission order.
var Kinds = [...]Kind{Analysis, Code, Summary}

func (k Kind) String() string {
	switch k {
	case Analysis:
		return "analysis"
	case Code:
		return "code"
	case Summary:
		return "summary"
	default:
		return "unknown"
	}
}

// Phase is the coarse stage of a generation request shown to the user.
// Phases are ordered; Input is both the initial and the reset state.
type Phase int

const (
	PhaseInput Phase = iota
	PhaseAnalysis
	PhaseGenerating
	PhaseSummary
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseAnalysis:
		return "analysis"
	case PhaseGenerating:
		return "generating"
	case PhaseSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Markers are the literal delimiters of a section and the phase entered when
// its start marker is first seen.
type Markers struct {
	Start string
	End   string
	Phase Phase
}

var registry = [...]Markers{
	Analysis: {Start: "===ANALYSIS_START===", End: "===ANALYSIS_END===", Phase: PhaseAnalysis},
	Code:     {Start: "===CODE_START===", End: "===CODE_END===", Phase: PhaseGenerating},
	Summary:  {Start: "===SUMMARY_START===", End: "===SUMMARY_END===", Phase: PhaseSummary},
}

// Lookup returns the markers for kind. It panics on an unknown kind.
func Lookup(kind Kind) Markers {
	return registry[kind]
}

// KindFor returns the section kind whose start marker enters phase p.
// PhaseInput has no section.
func KindFor(p Phase) (Kind, bool) {
	for _, k := range Kinds {
		if registry[k].Phase == p {
			return k, true
		}
	}
	return 0, false
}
