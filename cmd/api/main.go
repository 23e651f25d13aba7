package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zatekoja/facilityreservation/backend/internal/adapters/cache"
	"github.com/zatekoja/facilityreservation/backend/internal/adapters/database"
	"github.com/zatekoja/facilityreservation/backend/internal/adapters/lock"
	"github.com/zatekoja/facilityreservation/backend/internal/adapters/memory"
	"github.com/zatekoja/facilityreservation/backend/internal/api/handlers"
	"github.com/zatekoja/facilityreservation/backend/internal/api/routes"
	"github.com/zatekoja/facilityreservation/backend/internal/application/services"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/providers"
	"github.com/zatekoja/facilityreservation/backend/internal/domain/repositories"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/clients/redis"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/clients/sqldb"
	"github.com/zatekoja/facilityreservation/backend/internal/infrastructure/observability"
	"github.com/zatekoja/facilityreservation/backend/internal/seed"
	"github.com/zatekoja/facilityreservation/backend/pkg/config"
	"github.com/zatekoja/facilityreservation/backend/pkg/credentials"
	"golang.org/x/crypto/bcrypt"
)

// store bundles the repositories of one record store backend
type store struct {
	users        repositories.UserRepository
	facilities   repositories.FacilityRepository
	reservations repositories.ReservationRepository
	pinger       handlers.Pinger
	close        func() error
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize OpenTelemetry if enabled
	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	hasher := credentials.NewHasher(bcrypt.DefaultCost)

	st, err := openStore(ctx, cfg, hasher)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open record store")
	}
	defer func() {
		if err := st.close(); err != nil {
			log.Error().Err(err).Msg("error closing record store")
		}
	}()

	// Redis backs the facility read cache and the cross-instance booking lock.
	// Without it a single instance serializes bookings in process.
	facilityRepo := st.facilities
	var locker providers.Locker = lock.NewKeyedMutex(cfg.Reservation.LockWait)
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, continuing without cache and distributed lock")
		} else {
			defer redisClient.Close()
			facilityRepo = database.NewCachedFacilityAdapter(facilityRepo, cache.NewRedisAdapter(redisClient), metrics)
			locker = lock.NewRedisLock(redisClient, cfg.Reservation.LockTTL, cfg.Reservation.LockWait)
			log.Info().Msg("redis cache and booking lock enabled")
		}
	}

	loc, err := time.LoadLocation(cfg.Reservation.Timezone)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid reservation timezone")
	}

	// Initialize services
	userService := services.NewUserService(st.users, hasher)
	facilityService := services.NewFacilityService(facilityRepo)
	reservationService := services.NewReservationService(
		st.reservations,
		locker,
		services.WithLocation(loc),
		services.WithMetrics(metrics),
	)

	router := routes.NewRouter(
		handlers.NewSystemHandler(st.pinger),
		handlers.NewUserHandler(userService),
		handlers.NewFacilityHandler(facilityService),
		handlers.NewReservationHandler(reservationService, loc),
		metrics,
		cfg.CORS.AllowedOrigins,
	)

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("driver", cfg.Database.Driver).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}

// openStore connects the configured backend. The in-memory store is seeded
// with demo data so it is usable straight away.
func openStore(ctx context.Context, cfg *config.Config, hasher *credentials.Hasher) (*store, error) {
	if cfg.Database.Driver == config.DriverMemory {
		mem := memory.NewStore()
		err := seed.Run(ctx,
			services.NewUserService(mem.Users(), hasher),
			services.NewFacilityService(mem.Facilities()),
		)
		if err != nil {
			return nil, fmt.Errorf("seed memory store: %w", err)
		}
		log.Warn().Msg("using the in-memory record store; data is lost on restart")
		return &store{
			users:        mem.Users(),
			facilities:   mem.Facilities(),
			reservations: mem.Reservations(),
			pinger:       mem,
			close:        func() error { return nil },
		}, nil
	}

	client, err := sqldb.NewClient(&cfg.Database)
	if err != nil {
		return nil, err
	}
	return &store{
		users:        database.NewUserAdapter(client),
		facilities:   database.NewFacilityAdapter(client),
		reservations: database.NewReservationAdapter(client),
		pinger:       client,
		close:        client.Close,
	}, nil
}
