package logger

import (
	"io"
	"log/slog"
)

type settings struct {
	level   slog.Level
	format  Format
	source  bool
	outputs []io.Writer
}

// Option tunes New.
type Option func(*settings)

// WithLevel sets the minimum level.
func WithLevel(level slog.Level) Option {
	return func(s *settings) { s.level = level }
}

// WithDebug lowers the level to Debug when debug is set.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		if debug {
			s.level = slog.LevelDebug
		}
	}
}

// WithFormat picks the handler.
func WithFormat(f Format) Option {
	return func(s *settings) { s.format = f }
}

// WithOutput replaces the destination. Several writers receive every record.
func WithOutput(w ...io.Writer) Option {
	return func(s *settings) { s.outputs = w }
}

// WithSource adds file:line to each record.
func WithSource(source bool) Option {
	return func(s *settings) { s.source = source }
}
