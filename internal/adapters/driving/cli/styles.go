package cli

import (
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/custodia-labs/newsdigest/internal/core/domain"
)

// Palette shared by all command output.
var (
	colourPrimary = lipgloss.Color("#7C3AED") // Purple
	colourMuted   = lipgloss.Color("#6C7086") // Medium gray
	colourSuccess = lipgloss.Color("#A6E3A1") // Green
	colourWarning = lipgloss.Color("#F9E2AF") // Yellow
	colourError   = lipgloss.Color("#F38BA8") // Red
)

// styles renders command output. Styling is only applied when writing to
// a terminal, so piped output and tests stay plain.
type styles struct {
	enabled bool
	width   int
	title   lipgloss.Style
	heading lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	failure lipgloss.Style
}

func newStyles(w io.Writer) styles {
	return styles{
		enabled: isTerminal(w),
		width:   terminalWidth(w, 80),
		title:   lipgloss.NewStyle().Bold(true).Foreground(colourPrimary),
		heading: lipgloss.NewStyle().Bold(true),
		muted:   lipgloss.NewStyle().Foreground(colourMuted),
		success: lipgloss.NewStyle().Foreground(colourSuccess),
		warning: lipgloss.NewStyle().Foreground(colourWarning),
		failure: lipgloss.NewStyle().Foreground(colourError).Bold(true),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (s styles) render(style lipgloss.Style, text string) string {
	if !s.enabled {
		return text
	}
	return style.Render(text)
}

func (s styles) Title(text string) string   { return s.render(s.title, text) }
func (s styles) Heading(text string) string { return s.render(s.heading, text) }
func (s styles) Muted(text string) string   { return s.render(s.muted, text) }
func (s styles) Success(text string) string { return s.render(s.success, text) }
func (s styles) Warning(text string) string { return s.render(s.warning, text) }
func (s styles) Failure(text string) string { return s.render(s.failure, text) }

// Status colours a run state by outcome.
func (s styles) Status(state domain.RunState) string {
	switch state {
	case domain.RunStateCompleted:
		return s.Success(state.String())
	case domain.RunStatePartiallyFailed:
		return s.Warning(state.String())
	case domain.RunStateFailed:
		return s.Failure(state.String())
	default:
		return state.String()
	}
}

// Wrap indents text and, on a terminal, word-wraps it to the window.
func (s styles) Wrap(text string, indent int) string {
	if !s.enabled {
		pad := strings.Repeat(" ", indent)
		return pad + strings.ReplaceAll(text, "\n", "\n"+pad)
	}
	style := lipgloss.NewStyle().PaddingLeft(indent)
	if s.width-indent >= 20 {
		style = style.Width(s.width - 1)
	}
	return style.Render(text)
}

// terminalWidth returns the width of w when it is a terminal, or fallback.
func terminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return fallback
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil || width <= 0 {
		return fallback
	}
	return width
}
