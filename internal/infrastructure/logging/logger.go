// Package logging implements the Logger port over zerolog's console
// writer, one timestamped line per step event.
package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
)

// StepLogger implements ports.Logger.
type StepLogger struct {
	log zerolog.Logger
}

// NewStepLogger creates a console logger writing to out, tagged with the
// provisioning run identifier.
func NewStepLogger(out io.Writer, runID string) *StepLogger {
	writer := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
	}
	log := zerolog.New(writer).With().Timestamp().Str("run", runID).Logger()
	return &StepLogger{log: log}
}

// Infof logs a status line.
func (l *StepLogger) Infof(format string, args ...any) {
	l.log.Info().Msgf(format, args...)
}

// Warnf logs a tolerated best-effort failure.
func (l *StepLogger) Warnf(format string, args ...any) {
	l.log.Warn().Msgf(format, args...)
}

// Errorf logs a fatal condition.
func (l *StepLogger) Errorf(format string, args ...any) {
	l.log.Error().Msgf(format, args...)
}
