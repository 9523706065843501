package main

import (
	"context"
	"os"
	"time"

	"houseform-api/internal/config"
	"houseform-api/internal/interfaces/router"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load")
	}
	if cfg.Env != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	app, db, rdb, err := router.CreateApp(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("app create")
	}

	// Verify connections before accepting traffic.
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			log.Fatal().Err(err).Msg("Postgres: get DB")
		}
		if err := sqlDB.Ping(); err != nil {
			log.Fatal().Err(err).Msg("Postgres connection failed")
		}
		log.Info().Msg("Postgres connected")
	}
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatal().Err(err).Msg("Redis connection failed")
	}
	log.Info().Msg("Redis connected")
	log.Info().
		Str("network", string(cfg.Network.Type)).
		Int64("chain_id", cfg.Network.ChainID).
		Str("manager", cfg.Network.ManagerAddress).
		Str("share", cfg.Network.ShareAddress).
		Msg("chain configured")

	log.Info().Msgf("Server running at http://localhost:%s", cfg.Port)
	log.Info().Msgf("Health check: http://localhost:%s/health/json", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("listen")
	}
}
