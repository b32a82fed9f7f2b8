// Package logging builds the zerolog logger extref writes its diagnostics to.
// Diagnostics always go to stderr so stdout carries only the report.
package logging

/*
extref — fetch one web page and list the external domains it references
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLevel keeps a normal run quiet apart from the report.
const DefaultLevel = "warn"

// Options controls the logger.
type Options struct {
	Level   string // zerolog level name; empty means DefaultLevel
	JSON    bool   // raw JSON lines instead of the console writer
	NoColor bool
}

// New returns a logger writing to out.
func New(out io.Writer, opts Options) (zerolog.Logger, error) {
	levelStr := opts.Level
	if levelStr == "" {
		levelStr = DefaultLevel
	}
	level, err := zerolog.ParseLevel(strings.ToLower(levelStr))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q: %w", opts.Level, err)
	}

	w := out
	if !opts.JSON {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    opts.NoColor,
		}
	}

	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
