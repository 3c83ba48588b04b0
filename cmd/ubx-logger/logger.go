package main

import (
	"log/slog"
	"os"

	"github.com/kstaniek/go-ubx-logger/internal/logging"
)

func setupLogger(format, level string) *slog.Logger {
	l := logging.New(format, logging.ParseLevel(level), os.Stderr).With("app", "ubx-logger")
	logging.Set(l)
	return l
}
