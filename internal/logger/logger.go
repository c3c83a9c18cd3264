package logger

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// Setup builds the process logger. Level defaults to info; format "pretty"
// gets a console writer, anything else stays structured JSON.
func Setup(level, format string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if format == "pretty" {
		out = zerolog.ConsoleWriter{Out: os.Stderr}
	}

	return zerolog.New(out).Level(lvl).With().Timestamp().Logger()
}
