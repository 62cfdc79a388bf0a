package main

import (
	"os"

	"github.com/rs/zerolog"

	"diskdock/agent/smart-agent/internal/config"
	"diskdock/agent/smart-agent/internal/server"
)

func main() {
	cfg := config.FromEnv()
	logger := zerolog.New(os.Stderr).Level(cfg.LogLevel).With().Timestamp().Logger()

	srv := server.New(cfg, logger)
	if err := srv.Start(); err != nil {
		logger.Fatal().Err(err).Msg("smart-agent exited")
	}
}
