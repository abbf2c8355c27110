package config

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger configura o zerolog global: console no desenvolvimento, JSON no resto.
func SetupLogger(format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if format == "json" {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}) // Log bonito no terminal
}
