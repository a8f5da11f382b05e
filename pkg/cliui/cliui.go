// Package cliui holds the terminal styling shared by the aikefu commands:
// a small lipgloss palette, a progress spinner, answer source badges and
// glamour markdown rendering.
package cliui

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

const (
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	amber  = lipgloss.Color("214")
	blue   = lipgloss.Color("39")
	violet = lipgloss.Color("141")
	grey   = lipgloss.Color("245")
	dim    = lipgloss.Color("240")
	light  = lipgloss.Color("252")
)

var (
	SuccessMark = lipgloss.NewStyle().Foreground(green).Render("✓")
	FailMark    = lipgloss.NewStyle().Foreground(red).Render("✗")

	HeaderStyle = lipgloss.NewStyle().Bold(true)
	KeyStyle    = lipgloss.NewStyle().Foreground(grey)
	ValueStyle  = lipgloss.NewStyle().Foreground(light)
	NameStyle   = lipgloss.NewStyle().Foreground(blue).Bold(true)
	DimStyle    = lipgloss.NewStyle().Foreground(dim)
	WarnStyle   = lipgloss.NewStyle().Foreground(amber).Bold(true)

	spinnerStyle = lipgloss.NewStyle().Foreground(green)
	elapsedStyle = lipgloss.NewStyle().Foreground(grey)
	badgeStyle   = lipgloss.NewStyle().Padding(0, 1).Bold(true)
)

// sourceColors tints the badge of each answer source.
var sourceColors = map[string]lipgloss.Color{
	"cache":     green,
	"knowledge": blue,
	"llm":       violet,
	"fallback":  amber,
}

// SourceBadge labels where an answer came from, with the model when known.
func SourceBadge(source, model string) string {
	color, ok := sourceColors[source]
	if !ok {
		color = grey
	}
	badge := badgeStyle.Foreground(color).Render(source)
	if model == "" {
		return badge
	}
	return badge + DimStyle.Render(model)
}

// Mark is ✓ for a nil error and ✗ otherwise.
func Mark(err error) string {
	if err != nil {
		return FailMark
	}
	return SuccessMark
}

// FormatDuration renders d as "12ms" below a second and "3.2s" above.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// Step animates a spinner next to msg while fn runs, then leaves a mark and
// the elapsed time on the line. It returns fn's error.
func Step(w io.Writer, msg string, fn func() error) error {
	stop := make(chan struct{})
	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		tick := time.NewTicker(80 * time.Millisecond)
		defer tick.Stop()

		for frame := 0; ; frame++ {
			fmt.Fprintf(w, "\r  %s %s", spinnerStyle.Render(spinnerFrames[frame%len(spinnerFrames)]), msg)
			select {
			case <-stop:
				return
			case <-tick.C:
			}
		}
	}()

	start := time.Now()
	err := fn()
	close(stop)
	<-stopped

	fmt.Fprintf(w, "\r  %s %s %s\n", Mark(err), msg, elapsedStyle.Render("("+FormatDuration(time.Since(start))+")"))
	return err
}

// RenderMarkdown formats content for the terminal. On failure the content is
// returned unchanged together with the error.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
		glamour.WithEmoji(),
	)
	if err != nil {
		return content, err
	}

	out, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return out, nil
}
