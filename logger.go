package match

import (
	"log/slog"
	"os"
)

// stdout carries the event stream, so library logs go to stderr.
var logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))

// SetLogger allows setting a custom logger
func SetLogger(l *slog.Logger) {
	logger = l
}
