package server

import (
	"context"
	"errors"
	"fmt"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"reelstream/config"
	"reelstream/constant"
	"reelstream/entities"
	jobHandler "reelstream/handler"
	"reelstream/pkg/queue"
	"reelstream/pkg/rabbitmq"
	"reelstream/repository"
	"reelstream/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Without a database the server still runs; metadata then lives in
	// process memory only.
	var repo repository.AssetRepository
	if cfg.DB != nil {
		var err error
		repo, err = repository.NewRepo(cfg.DB)
		if err != nil {
			zerolog.Ctx(ctx).Fatal().Err(err).Msg("failed to open database")
		}
	} else {
		zerolog.Ctx(ctx).Info().Msg("no database configured, keeping metadata in memory")
		repo = repository.NewMemoryRepo()
	}
	transcodeService := service.NewService(repo, cfg)

	transcodeQueue := queue.New[*entities.VideoAsset](constant.QueueCooldown)
	go transcodeQueue.Start(ctx)

	serviceDeps := jobHandler.ServiceDependencies{
		TranscodeService: transcodeService,
		Repo:             repo,
		Queue:            transcodeQueue,
	}

	// Queue intake is optional. Without a broker the HTTP endpoints are the
	// only way jobs enter the pipeline.
	if cfg.Queue != nil {
		conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
		} else {
			consumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, jobHandler.JobHandler)
			go func() {
				if err := consumer.Consume(ctx, serviceDeps); err != nil {
					zerolog.Ctx(ctx).Error().Err(err).Msg("Transcode consumer error")
				}
			}()
		}
	}

	r := gin.Default()
	addHealth(r)
	jobHandler.NewHTTP(serviceDeps, cfg).Register(r)

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")
	if err := handler.Shutdown(ctx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

func addHealth(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
