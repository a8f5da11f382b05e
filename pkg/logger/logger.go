// Package logger builds the *slog.Logger every aikefu component logs through.
//
// The service logs structured records: text by default, JSON for log
// shippers, and a colorized charmbracelet/log handler for terminals.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	charmlog "github.com/charmbracelet/log"
)

// Format selects the handler New installs.
type Format string

const (
	FormatText   Format = "text"
	FormatJSON   Format = "json"
	FormatPretty Format = "pretty"
)

// ParseFormat accepts "text", "json" or "pretty" in any case. An empty string
// is FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatPretty:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q (want text, json or pretty)", s)
	}
}

// New returns a logger at Info level writing text to os.Stderr unless opts
// say otherwise.
func New(opts ...Option) *slog.Logger {
	s := settings{
		level:  slog.LevelInfo,
		format: FormatText,
	}
	for _, opt := range opts {
		opt(&s)
	}

	out := s.output()
	switch s.format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{Level: s.level, AddSource: s.source}))
	case FormatPretty:
		return slog.New(charmlog.NewWithOptions(out, charmlog.Options{
			Level:           charmlog.Level(s.level),
			ReportTimestamp: true,
			ReportCaller:    s.source,
		}))
	default:
		return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: s.level, AddSource: s.source}))
	}
}

func (s settings) output() io.Writer {
	switch len(s.outputs) {
	case 0:
		return os.Stderr
	case 1:
		return s.outputs[0]
	default:
		return io.MultiWriter(s.outputs...)
	}
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(discard{})
}

// OrNop returns l, or Nop() when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}

type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }
