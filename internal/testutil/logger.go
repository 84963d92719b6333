package testutil

import "log/slog"

// DiscardLogger returns a logger that drops all output. Components taking a
// log.Logger accept this directly since that type aliases *slog.Logger.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
