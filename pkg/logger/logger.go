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

// Init configures the global zerolog logger. Call once at startup; packages
// then log through zerolog's global log.Logger.
func Init(opts ...Config) {
	var conf Config
	if len(opts) > 0 {
		conf = opts[0]
	}

	if conf.PrettyFormat {
		log.Logger = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}

	level := zerolog.InfoLevel
	if conf.Debug {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Logger.Level(level)
}
