package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/place-reservation/internal/config"
	"github.com/iliyamo/place-reservation/internal/database"
	"github.com/iliyamo/place-reservation/internal/handler"
	"github.com/iliyamo/place-reservation/internal/logging"
	"github.com/iliyamo/place-reservation/internal/metrics"
	"github.com/iliyamo/place-reservation/internal/repository"
	"github.com/iliyamo/place-reservation/internal/repository/memory"
	"github.com/iliyamo/place-reservation/internal/router"
	"github.com/iliyamo/place-reservation/internal/service"
)

// stores bundles the storage backend chosen by STORAGE.
type stores struct {
	users    service.UserStore
	places   service.PlaceStore
	bookings service.BookingStore
	reviews  service.ReviewStore
	db       handler.Pinger
	close    func()
}

func openStores(cfg config.Config) (*stores, error) {
	if cfg.Storage == "memory" {
		log.Warn().Msg("using in-memory storage; data is lost on exit")
		m := memory.New(memory.DefaultPlaces()...)
		return &stores{
			users:    m.Users(),
			places:   m.Places(),
			bookings: m.Bookings(),
			reviews:  m.Reviews(),
			close:    func() {},
		}, nil
	}

	db, err := database.Open(context.Background(),
		database.DSN(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &stores{
		users:    repository.NewUserRepo(db),
		places:   repository.NewPlaceRepo(db),
		bookings: repository.NewBookingRepo(db),
		reviews:  repository.NewReviewRepo(db),
		db:       db,
		close:    func() { _ = db.Close() },
	}, nil
}

func main() {
	_ = godotenv.Load() // .env is optional; real environment wins

	cfg, err := config.Load()
	if err != nil {
		logging.Init("place-reservation", "dev")
		log.Fatal().Err(err).Msg("load config")
	}
	logging.Init("place-reservation", cfg.Env)

	st, err := openStores(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("storage", cfg.Storage).Msg("open storage")
	}
	defer st.close()

	creds, err := service.NewCredentialService(service.CredentialConfig{
		SigningKey: cfg.SigningKey,
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("credential service")
	}

	var events service.EventPublisher = service.NopPublisher{}
	if cfg.EventsEnabled {
		events = service.NewAMQPPublisher(cfg.AMQPURL)
	}

	m := metrics.New()
	identity, err := service.NewIdentityService(st.users, creds)
	if err != nil {
		log.Fatal().Err(err).Msg("identity service")
	}
	lifecycle := service.NewLifecycleService(st.places, st.bookings, st.reviews, events, m,
		service.LifecycleConfig{Strict: cfg.StrictBooking})

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable; using per-process rate limits and no response cache")
	} else {
		defer func() { _ = rdb.Close() }()
	}

	e := router.New(router.Deps{
		DB:        st.db,
		Redis:     rdb,
		Metrics:   m,
		Tokens:    identity,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Auth:      handler.NewAuthHandler(identity),
		Bookings:  handler.NewBookingHandler(lifecycle),
		Reviews:   handler.NewReviewHandler(lifecycle),
		Places:    handler.NewPlaceHandler(lifecycle),
	})

	addr := ":" + cfg.Port
	go func() {
		log.Info().
			Str("addr", addr).
			Str("env", cfg.Env).
			Str("storage", cfg.Storage).
			Bool("strict_booking", cfg.StrictBooking).
			Bool("events", cfg.EventsEnabled).
			Msg("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown")
	}
}
