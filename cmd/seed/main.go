package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilityreservation/backend/internal/adapters/database"
	"github.com/zatekoja/facilityreservation/backend/internal/application/services"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/observability"
	"github.com/zatekoja/facilityreservation/backend/internal/seed"
	"github.com/zatekoja/facilityreservation/backend/pkg/config"
	"github.com/zatekoja/facilityreservation/backend/pkg/credentials"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("facility-seed", cfg.Server.Env)

	if cfg.Database.Driver == config.DriverMemory {
		log.Fatal().Msg("STORE_DRIVER=memory is seeded by the api on startup")
	}

	client, err := sqldb.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if os.Getenv("RESET_DB") == "true" {
		log.Warn().Msg("RESET_DB=true detected, deleting data before seeding")
		for _, table := range []string{"reservations", "m_company_facilities", "m_company_users"} {
			if _, err := client.DB().ExecContext(ctx, "DELETE FROM "+table); err != nil {
				log.Fatal().Err(err).Str("table", table).Msg("failed to reset table")
			}
		}
	}

	users := services.NewUserService(database.NewUserAdapter(client), credentials.NewHasher(bcrypt.DefaultCost))
	facilities := services.NewFacilityService(database.NewFacilityAdapter(client))

	if err := seed.Run(ctx, users, facilities); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
	log.Info().Msg("seeding completed")
}
