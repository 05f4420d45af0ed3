package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/viper"

	"github.com/mcoot/numduel/internal/api"
	"github.com/mcoot/numduel/internal/factory"
	redisstorage "github.com/mcoot/numduel/internal/storage/redis"
)

func main() {
	v := viper.New()
	v.SetEnvPrefix("NUMDUEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("storage_type", factory.StorageTypeMemory)
	v.SetDefault("sweep_interval", 15*time.Minute)
	v.SetDefault("max_room_age", time.Hour)
	v.SetDefault("finish_grace", 10*time.Second)

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log_level"))); err != nil {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	cfg := factory.Config{
		Logger:        logger,
		StorageType:   v.GetString("storage_type"),
		SweepInterval: v.GetDuration("sweep_interval"),
		MaxRoomAge:    v.GetDuration("max_room_age"),
		FinishGrace:   v.GetDuration("finish_grace"),
	}

	if cfg.StorageType == factory.StorageTypeRedis {
		redisURL := v.GetString("redis_url")
		if redisURL == "" {
			logger.Error("NUMDUEL_REDIS_URL required when NUMDUEL_STORAGE_TYPE=redis")
			os.Exit(1)
		}
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = redisURL
		cfg.RedisConfig = &redisCfg
	}

	app, err := factory.New(cfg)
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		os.Exit(1)
	}

	router := api.NewRouter(api.RouterConfig{
		Logger:    logger,
		Registry:  app.Registry,
		WSHandler: app.Hub,
	})

	serverConfig := api.DefaultServerConfig()
	serverConfig.Port = v.GetInt("port")
	server := api.NewServer(router, serverConfig, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	// Background eviction of abandoned rooms
	go app.Sweeper.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started", slog.String("addr", server.Addr()))

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	case <-ctx.Done():
		app.Hub.Close()
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
