package sse

import (
	"io"
	"strings"
)

// WriteEvent frames ev onto w. Data containing newlines is split across
// several "data:" lines, and the event is terminated by a blank line.
func WriteEvent(w io.Writer, ev Event) error {
	var b strings.Builder

	if ev.ID != "" {
		b.WriteString("id: ")
		b.WriteString(ev.ID)
		b.WriteByte('\n')
	}
	if ev.Type != "" {
		b.WriteString("event: ")
		b.WriteString(ev.Type)
		b.WriteByte('\n')
	}
	for _, line := range strings.Split(ev.Data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}
