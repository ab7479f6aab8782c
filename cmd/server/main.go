package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/medibook/doctor-appointment-booking/internal/config"
	"github.com/medibook/doctor-appointment-booking/internal/database"
	"github.com/medibook/doctor-appointment-booking/internal/handler"
	"github.com/medibook/doctor-appointment-booking/internal/metrics"
	"github.com/medibook/doctor-appointment-booking/internal/middleware"
	"github.com/medibook/doctor-appointment-booking/internal/notifier"
	"github.com/medibook/doctor-appointment-booking/internal/otp"
	"github.com/medibook/doctor-appointment-booking/internal/queue"
	"github.com/medibook/doctor-appointment-booking/internal/repository"
	"github.com/medibook/doctor-appointment-booking/internal/router"
	"github.com/medibook/doctor-appointment-booking/internal/service"
	"github.com/medibook/doctor-appointment-booking/internal/sweeper"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.TimeFieldFormat = time.RFC3339

	cfg := config.Load()
	if cfg.Env == "dev" {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}

	db, err := database.Open(database.Options{
		User:         cfg.DBUser,
		Pass:         cfg.DBPass,
		Host:         cfg.DBHost,
		Port:         cfg.DBPort,
		Name:         cfg.DBName,
		MaxOpen:      cfg.DBMaxOpen,
		MaxIdle:      cfg.DBMaxIdle,
		ConnLifetime: cfg.DBConnLife,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable, rate limiting disabled")
	}

	metrics.Register()

	users := repository.NewUserRepo(db)
	doctors := repository.NewDoctorRepo(db)
	specs := repository.NewSpecializationRepo(db)
	slots := repository.NewAvailabilityRepo(db)
	appts := repository.NewAppointmentRepo(db)

	codes := otp.NewStore()
	events := notifier.New(cfg.RabbitURL, log)
	defer events.Close()

	booking := service.NewAppointmentService(db, slots, appts, codes, events,
		cfg.HoldTTL, cfg.CancelWindow, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sweeper.New(appts, codes, cfg.SweepEvery, log).Run(ctx)
	go queue.StartNotificationConsumer(cfg.RabbitURL, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	router.Register(e, router.Deps{
		Auth:           handler.NewAuthHandler(users, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost, log),
		Appointments:   handler.NewAppointmentHandler(booking, log),
		Doctors:        handler.NewDoctorHandler(doctors, log),
		Availability:   handler.NewAvailabilityHandler(slots, log),
		Specialization: handler.NewSpecializationHandler(specs, log),
		JWTSecret:      cfg.JWTSecret,
		RateLimit:      middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server shutdown failed")
		}
	}()

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("server starting")
	if err := e.Start(addr); err != nil {
		log.Info().Err(err).Msg("server stopped")
	}
}
