// Package logger provides a configurable logger across shieldpool components.
//
// The root logger uses github.com/rs/zerolog with a console writer and is
// silenced under `go test` so test output stays readable.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var logger zerolog.Logger

func init() {
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	logger = zerolog.New(output).With().Timestamp().Logger()

	if strings.HasSuffix(os.Args[0], ".test") {
		logger = zerolog.Nop()
	}
}

// SetOutput changes the output of the global logger.
func SetOutput(w io.Writer) {
	logger = logger.Output(w)
}

// Set allows a caller to override the global logger.
func Set(l zerolog.Logger) {
	logger = l
}

// SetLevel parses a level name ("debug", "info", "warn", ...) and applies it
// to the global logger. Unknown names leave the level unchanged.
func SetLevel(level string) {
	if l, err := zerolog.ParseLevel(level); err == nil {
		logger = logger.Level(l)
	}
}

// Disable disables logging.
func Disable() {
	logger = zerolog.Nop()
}

// Logger returns the global logger; components derive sub-loggers from it.
func Logger() zerolog.Logger {
	return logger
}
