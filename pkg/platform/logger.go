package platform

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger configures the process-wide zerolog logger.
// Development (or BEZ_LOG_PRETTY) gets a console writer, everything
// else unix-time JSON.
func InitLogger(service string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if GetEnvBool("BEZ_LOG_PRETTY", os.Getenv("ENV") == "development") {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	log.Logger = log.Logger.With().Str("service", service).Logger()
	return log.Logger
}

func LogFatal(logger zerolog.Logger, msg string, err error) {
	logger.Fatal().Err(err).Msg(msg)
}
