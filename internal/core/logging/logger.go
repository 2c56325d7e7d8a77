// Package logging carries the zerolog helpers shared by sage's packages:
// per-component loggers and the review IDs threaded through context.
package logging

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ComponentKey is the field that names the package a log line came from.
const ComponentKey = "cmp"

// Component derives a logger from the global one, tagged with name. It reads
// log.Logger at call time, so callers should create it after main has
// configured the output.
func Component(name string) zerolog.Logger {
	return log.Logger.With().Str(ComponentKey, name).Logger()
}
