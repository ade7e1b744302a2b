// Package logx configures the process-global zerolog logger.
package logx

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Debug        bool `split_words:"true" default:"false"`
	PrettyFormat bool `split_words:"true" default:"false"`
}

// Init replaces the global logger according to cfg. Pretty format is for
// local development; production stays on single-line JSON to stdout.
func Init(cfg Config) {
	writer := zerolog.New(os.Stdout)
	if cfg.PrettyFormat {
		writer = zerolog.New(zerolog.NewConsoleWriter())
	}

	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	log.Logger = writer.With().Timestamp().Caller().Stack().Logger().Level(level)
}
