package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var log = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init configures the process-wide logger. Unknown levels fall back to info.
func Init(level string, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stdout
	if strings.EqualFold(format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	log = zerolog.New(out).Level(lvl).With().Timestamp().Logger()
	log.Info().Msg("logger initialized")
}

// SetOutput redirects log output. Used by tests.
func SetOutput(w io.Writer) {
	log = log.Output(w)
}

func Debug(msg string, fields map[string]any) {
	emit(log.Debug(), msg, fields)
}

func Info(msg string, fields map[string]any) {
	emit(log.Info(), msg, fields)
}

func Warn(msg string, fields map[string]any) {
	emit(log.Warn(), msg, fields)
}

func Error(msg string, fields map[string]any) {
	emit(log.Error(), msg, fields)
}

// Fatal logs and exits the process with status 1.
func Fatal(msg string, fields map[string]any) {
	emit(log.Fatal(), msg, fields)
}

func emit(event *zerolog.Event, msg string, fields map[string]any) {
	if event == nil {
		return
	}
	if len(fields) > 0 {
		event = event.Fields(fields)
	}
	event.Msg(msg)
}
