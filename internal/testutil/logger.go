package testutil

import (
	"io"
	"log/slog"

	"github.com/logic25/beacon-sub000/internal/log"
)

// QuietLogger returns a logger that discards everything below warning,
// keeping test output readable.
func QuietLogger() *slog.Logger {
	return log.NewWithWriter(io.Discard, log.Config{Level: slog.LevelWarn})
}
