package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mcclellann/backoffice/internal/config"
	"github.com/mcclellann/backoffice/internal/logger"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	closer, err := logger.Setup(cfg.GetLoggerConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger, using defaults: %v\n", err)
		if closer, err = logger.Setup(logger.DefaultConfig()); err != nil {
			fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
	}
	defer closer.Close()

	log := logger.WithComponent("main")
	if envErr != nil && !os.IsNotExist(envErr) {
		log.Warn().Err(envErr).Msg("could not load .env file")
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		closer.Close()
		os.Exit(1)
	}
}
