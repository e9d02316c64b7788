// Package cliui provides small terminal UI helpers (status marks, markdown
// rendering) for handoff CLI commands.
package cliui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Render("✗")
	DimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	KeyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	ValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
)

// Markdown renders markdown source with glamour and writes it to w.
// Falls back to the raw source when rendering fails (e.g. no TTY profile).
func Markdown(w io.Writer, source string) error {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		_, werr := fmt.Fprint(w, source)
		return werr
	}

	out, err := renderer.Render(source)
	if err != nil {
		_, werr := fmt.Fprint(w, source)
		return werr
	}

	_, err = fmt.Fprint(w, out)
	return err
}

// Truncate shortens s to maxLen runes with an ellipsis.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
