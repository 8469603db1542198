// pkg/logging/logging.go
package logging

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

var level = new(slog.LevelVar)

// SetDebug switches the log level between debug and info.
func SetDebug(debug bool) {
	if debug {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}
}

// New builds the process logger: a text handler on w, plus a JSON handler
// appending to jsonPath when it is non-empty. Handlers are fanned out so both
// sinks see every record.
func New(w io.Writer, jsonPath string) *slog.Logger {
	handlers := []slog.Handler{
		slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}

	if jsonPath != "" {
		f, err := os.OpenFile(jsonPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err == nil {
			handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
		}
	}

	return slog.New(slogmulti.Fanout(handlers...))
}
