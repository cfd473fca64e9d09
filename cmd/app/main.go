package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	_ "twitch-giveaway-backend/docs"
	"twitch-giveaway-backend/internal/common/config"
	"twitch-giveaway-backend/internal/common/logger"
	"twitch-giveaway-backend/internal/common/middleware"
	giveawayhttp "twitch-giveaway-backend/internal/features/giveaway/delivery/http"
	"twitch-giveaway-backend/internal/features/giveaway/repository"
	"twitch-giveaway-backend/internal/features/giveaway/service"
	"twitch-giveaway-backend/internal/platform/twitch"
	"twitch-giveaway-backend/internal/workers"
)

// @title           Twitch Giveaway API
// @version         1.0
// @description     Keyword giveaways for Twitch streams: viewers join by typing the keyword in chat.

// @host      localhost:8001
// @BasePath  /api

// @tag.name giveaways
// @tag.description Giveaway lifecycle, participants and winner draw

// @tag.name chat
// @tag.description Chat ingestion and simulation

const shutdownTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init("twitch-giveaway-backend", cfg.Debug)
	log.Info().
		Str("store", cfg.Store.Backend).
		Int("port", cfg.Server.Port).
		Bool("irc", cfg.Twitch.IRCEnabled).
		Bool("chat_stream", cfg.ChatStream.Enabled).
		Msg("Starting Twitch Giveaway Backend")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
	log.Info().Msg("Server exited")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	st, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer st.close()
	log.Info().Str("backend", cfg.Store.Backend).Msg("Store connection established")

	repo := repository.NewGuard(st.repo, repository.DefaultGuardSettings(cfg.Store.Timeout), log)
	svc := service.NewService(repo, log, service.WithBotName(cfg.BotUsername))

	var worker *workers.ChatStreamWorker
	if cfg.ChatStream.Enabled {
		rdb, closeRedis, err := st.streamClient(ctx, cfg)
		if err != nil {
			return fmt.Errorf("open chat stream redis: %w", err)
		}
		defer closeRedis()

		worker = workers.NewChatStreamWorker(rdb, svc, workers.StreamConfig{
			Key:      cfg.ChatStream.Key,
			Group:    cfg.ChatStream.Group,
			Consumer: cfg.ChatStream.Consumer,
		}, log)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      newRouter(cfg, svc, log),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if cfg.Twitch.IRCEnabled {
		tcfg := twitch.Config{
			Username:     cfg.Twitch.Username,
			OAuthToken:   cfg.Twitch.OAuthToken,
			SyncInterval: cfg.Twitch.SyncInterval,
		}
		listener := twitch.NewListener(twitch.NewClient(tcfg), svc, svc, tcfg.SyncInterval, log)
		g.Go(func() error {
			return listener.Run(ctx)
		})
	}

	if worker != nil {
		g.Go(func() error {
			return worker.Start(ctx)
		})
	}

	return g.Wait()
}

func newRouter(cfg *config.Config, svc service.GiveawayService, log zerolog.Logger) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.ErrorHandler(log))

	corsConfig := cors.DefaultConfig()
	if len(cfg.Server.CORSOrigins) == 0 || (len(cfg.Server.CORSOrigins) == 1 && cfg.Server.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.Server.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	limiter := middleware.NewIPRateLimiter(cfg.Ingest.RatePerSec, cfg.Ingest.Burst)

	handler := giveawayhttp.NewGiveawayHandler(svc, log)
	handler.RegisterRoutes(router.Group("/api"), middleware.RateLimit(limiter, log))
	handler.RegisterOpsRoutes(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return router
}
