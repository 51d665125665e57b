package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"github.com/MikeSquared-Agency/sitesmith/internal/layout"
	"github.com/MikeSquared-Agency/sitesmith/internal/sections"
	"github.com/MikeSquared-Agency/sitesmith/internal/session"
)

// CellWidth converts splitter widths to terminal columns.
const CellWidth = 8

const (
	minCodeColumns   = 20
	defaultCodeLines = 24
)

var phases = [...]sections.Phase{
	sections.PhaseInput,
	sections.PhaseAnalysis,
	sections.PhaseGenerating,
	sections.PhaseSummary,
}

// Renderer lays out a session.View as a sidebar next to a main panel.
type Renderer struct {
	styles    Styles
	split     *layout.Splitter
	codeLines int
}

// New returns a renderer whose sidebar follows split. codeLines bounds the
// tail of the code shown; zero picks a default.
func New(styles Styles, split *layout.Splitter, codeLines int) *Renderer {
	if codeLines <= 0 {
		codeLines = defaultCodeLines
	}
	return &Renderer{styles: styles, split: split, codeLines: codeLines}
}

// PhaseBar shows the phase sequence with p marked.
func (r *Renderer) PhaseBar(p sections.Phase) string {
	parts := make([]string, len(phases))
	for i, ph := range phases {
		if ph == p {
			parts[i] = r.styles.Active.Render("● " + ph.String())
		} else {
			parts[i] = r.styles.Dim.Render(ph.String())
		}
	}
	return strings.Join(parts, r.styles.Dim.Render(" → "))
}

// SidebarColumns is the sidebar width in columns for a terminal cols wide.
func (r *Renderer) SidebarColumns(cols int) int {
	r.split.Resize(cols * CellWidth)
	return r.split.Width() / CellWidth
}

// Render draws v for a terminal cols wide. When the terminal is too narrow
// for both panels the sidebar is stacked above the main panel.
func (r *Renderer) Render(v session.View, cols int) string {
	side := r.SidebarColumns(cols)
	mainCols := cols - side - 3

	header := r.styles.Title.Render("sitesmith") + "  " + r.PhaseBar(v.Phase)
	if v.Generating {
		header += r.styles.Dim.Render("  streaming…")
	}
	lines := []string{header}
	if v.Error != "" {
		lines = append(lines, r.styles.Error.Render("error: "+v.Error))
	}

	if mainCols < minCodeColumns {
		width := max(cols, minCodeColumns)
		lines = append(lines, r.sidebar(v, width), r.main(v, width))
		return strings.Join(lines, "\n")
	}

	sep := strings.TrimSuffix(strings.Repeat(r.styles.Border.Render("│")+"\n", r.codeLines+1), "\n")
	body := lipgloss.JoinHorizontal(lipgloss.Top, r.sidebar(v, side), " ", sep, " ", r.main(v, mainCols))
	lines = append(lines, body)
	return strings.Join(lines, "\n")
}

func (r *Renderer) sidebar(v session.View, width int) string {
	var blocks []string
	add := func(label, text string) {
		if text == "" {
			return
		}
		blocks = append(blocks, r.styles.Label.Render(label)+"\n"+lipgloss.NewStyle().Width(width).Render(text))
	}

	add("Request", v.Request)
	add("Image", uploadLine(v.Image))
	add("PDF", uploadLine(v.Document))
	add("Analysis", v.Analysis)
	add("Summary", v.Summary)
	if len(blocks) == 0 {
		blocks = append(blocks, r.styles.Dim.Render("Describe a website, or attach an image or PDF."))
	}
	return lipgloss.NewStyle().Width(width).Render(strings.Join(blocks, "\n\n"))
}

func (r *Renderer) main(v session.View, width int) string {
	if v.ActiveTab == session.TabPrompt {
		prompt := v.Prompt
		if prompt == "" {
			prompt = r.styles.Dim.Render("(empty prompt)")
		}
		return r.styles.Label.Render("Prompt") + "\n" + lipgloss.NewStyle().Width(width).Render(prompt)
	}

	out := []string{r.styles.Label.Render("Code")}
	code := strings.Split(v.Code, "\n")
	if len(code) > r.codeLines {
		code = code[len(code)-r.codeLines:]
	}
	for _, line := range code {
		if lipgloss.Width(line) > width {
			line = truncate(line, width-1) + "…"
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func uploadLine(u *session.Upload) string {
	switch {
	case u == nil:
		return ""
	case !u.Analyzed:
		return u.Name + " (analyzing…)"
	default:
		return u.Name + " (ready)"
	}
}

// truncate cuts s to at most width columns without splitting a rune.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	cur := 0
	for i, r := range s {
		w := lipgloss.Width(string(r))
		if cur+w > width {
			return s[:i]
		}
		cur += w
	}
	return s
}

// Live redraws a view on w only when the rendered frame changes.
type Live struct {
	mu    sync.Mutex
	w     io.Writer
	r     *Renderer
	cols  int
	clear bool
	last  string
}

// NewLive writes frames to w. With clear set each frame replaces the
// previous one on screen.
func NewLive(w io.Writer, r *Renderer, cols int, clear bool) *Live {
	return &Live{w: w, r: r, cols: cols, clear: clear}
}

// Update renders v and writes it if it differs from the last frame. It can
// be used directly as a session.Listener.
func (l *Live) Update(v session.View) {
	l.mu.Lock()
	defer l.mu.Unlock()
	frame := l.r.Render(v, l.cols)
	if frame == l.last {
		return
	}
	l.last = frame
	if l.clear {
		fmt.Fprint(l.w, "\x1b[H\x1b[2J")
	}
	fmt.Fprintln(l.w, frame)
}

// SetColumns changes the terminal width used for later frames.
func (l *Live) SetColumns(cols int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cols = cols
	l.last = ""
}
