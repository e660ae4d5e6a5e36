// Package logger provides structured logging built on Go's standard slog
// package, with environment presets and attribute helpers for the chat
// domain.
//
// Create loggers with the factory function and configuration options:
//
//	log := logger.New(logger.WithDevelopment("chathub"))
//	log := logger.New(logger.WithProduction("chathub"), logger.WithLevel(slog.LevelWarn))
//
// Attribute helpers keep field names consistent across the codebase:
//
//	log.Info("message broadcast",
//		logger.Component("broadcast"),
//		logger.RoomID(roomID),
//		logger.Count("delivered", report.Delivered),
//		logger.Duration(report.Elapsed),
//	)
//
// Helpers use the empty-Attr pattern for nil safety: logger.Error(nil)
// produces no output instead of panicking.
package logger
