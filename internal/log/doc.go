// Package log builds the slog loggers used by reconscan.
//
// Every logger wraps its output handler in a SecureHandler, which masks
// credentials (HTTP auth headers, cookies, proxy passwords, tokens) and
// shortens very long string values such as response bodies and PEM blocks.
//
//	logger := log.NewLogger(os.Stderr, verbose)
//	slog.SetDefault(logger)
package log
