package main // Entry point package

import (
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/taskdesk/taskdesk/internal/auth"
	"github.com/taskdesk/taskdesk/internal/config"
	"github.com/taskdesk/taskdesk/internal/crypto"
	"github.com/taskdesk/taskdesk/internal/database"
	"github.com/taskdesk/taskdesk/internal/handler"
	"github.com/taskdesk/taskdesk/internal/logger"
	"github.com/taskdesk/taskdesk/internal/middleware"
	"github.com/taskdesk/taskdesk/internal/queue"
	"github.com/taskdesk/taskdesk/internal/repository"
	"github.com/taskdesk/taskdesk/internal/router"
	"github.com/taskdesk/taskdesk/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly

	cfg := config.Load()
	log := logger.Setup(cfg.Env == "dev")

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}

	codec, err := crypto.NewFieldCodec(cfg.FieldKey)
	if err != nil {
		log.Fatal().Err(err).Msg("build field codec")
	}

	users := repository.NewUserRepo(db, codec)
	plans := repository.NewPlanRepo(db)
	sessions := repository.NewSessionRepo(db)

	tokens := auth.NewTokenIssuer(cfg.JWTSecret,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RememberTTLDays)*24*time.Hour)

	// Auth events feed the notification consumer. With no broker configured
	// the service runs fine; events are simply dropped.
	var events auth.EventPublisher
	if cfg.AMQPURL != "" {
		events = service.NewAMQPPublisher(cfg.AMQPURL, log)
		go queue.StartAuthEventsConsumer(cfg.AMQPURL, log)
	}

	svc := auth.NewService(users, plans, sessions, tokens, events, log, cfg.BcryptCost)

	// Redis backs rate limiting and the plan-listing response cache; both
	// degrade to pass-throughs when the client cannot connect.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn().Msg("redis unavailable; rate limiting and response cache disabled")
	}
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e,
		handler.NewAuthHandler(svc),
		handler.NewPlanHandler(plans),
		handler.NewSessionHandler(sessions),
		svc, limiter, cache)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")

	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
