/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures zerolog for the process. Logs go to stderr so command
// output on stdout stays machine-readable.
func Setup(environment string) zerolog.Logger {
	return SetupWithWriter(environment, "", os.Stderr)
}

// SetupWithWriter configures zerolog on out. An empty or unknown level
// falls back to debug in development and info otherwise. Production logs
// are JSON, everything else uses the console writer.
func SetupWithWriter(environment, level string, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl := zerolog.InfoLevel
	if environment == "development" {
		lvl = zerolog.DebugLevel
	}
	if parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level))); err == nil && level != "" {
		lvl = parsed
	}

	writer := out
	if environment != "production" {
		writer = zerolog.ConsoleWriter{Out: out, NoColor: out != os.Stderr && out != os.Stdout}
	}

	logger := zerolog.New(writer).With().Timestamp().Logger().Level(lvl)
	log.Logger = logger
	return logger
}
