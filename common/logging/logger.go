package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Level zerolog.Level

const (
	DebugLevel = Level(zerolog.DebugLevel)
	InfoLevel  = Level(zerolog.InfoLevel)
	WarnLevel  = Level(zerolog.WarnLevel)
)

func (l Level) toZerolog() zerolog.Level {
	return zerolog.Level(l)
}

func (l Level) String() string {
	return l.toZerolog().String()
}

func Setup(level Level) {
	SetupWriter(level, os.Stdout)
}

// SetupWriter installs the global logger on out. Debug and trace switch to
// the console format.
func SetupWriter(level Level, out io.Writer) {
	SetupFormat(level, out, level <= DebugLevel)
}

// SetupFormat installs the global logger on out, as JSON lines or in the
// human console format.
func SetupFormat(level Level, out io.Writer, console bool) {
	zerolog.SetGlobalLevel(level.toZerolog())
	writer := out
	if console {
		writer = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = out
			w.TimeFormat = time.RFC3339
		})
	}
	log.Logger = zerolog.
		New(writer).
		With().
		Timestamp().
		Caller().
		Logger()
}

func ParseLevel(lvl string) Level {
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(lvl))
	if err != nil || parsedLevel == zerolog.NoLevel {
		return InfoLevel
	}
	return Level(parsedLevel)
}
