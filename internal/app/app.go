package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchparty/internal/controller"
	"github.com/sharetube/watchparty/internal/repository/connection/inmemory"
	roomRedis "github.com/sharetube/watchparty/internal/repository/room/redis"
	"github.com/sharetube/watchparty/internal/service/room"
	"github.com/sharetube/watchparty/pkg/ctxlogger"
	"github.com/sharetube/watchparty/pkg/redisclient"
	"golang.org/x/sync/errgroup"
)

const (
	roomExp         = 24 * time.Hour
	sessionExp      = 24 * time.Hour
	chatRateLimit   = 5
	chatRateBurst   = 10
	shutdownTimeout = 30 * time.Second
)

type AppConfig struct {
	Secret        string        `json:"-"`
	Host          string        `json:"host"`
	Port          int           `json:"port"`
	LogLevel      string        `json:"log_level"`
	MembersLimit  int           `json:"members_limit"`
	GraceWindow   time.Duration `json:"grace_window"`
	ChatPageSize  int           `json:"chat_page_size"`
	ChatRetention int           `json:"chat_retention"`
	RedisPort     int           `json:"redis_port"`
	RedisHost     string        `json:"redis_host"`
	RedisPassword string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Secret == "" {
		return errors.New("secret must be set")
	}
	if cfg.MembersLimit < 1 {
		return errors.New("members limit must be greater than 0")
	}
	if cfg.GraceWindow <= 0 {
		return errors.New("grace window must be greater than 0")
	}
	if cfg.ChatPageSize < 1 {
		return errors.New("chat page size must be greater than 0")
	}
	if cfg.ChatRetention < cfg.ChatPageSize {
		return errors.New("chat retention must not be less than chat page size")
	}
	return nil
}

func newLogger(level string) (*slog.Logger, error) {
	logLevel := slog.LevelInfo
	if err := logLevel.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	h := ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level:     logLevel,
			AddSource: true,
		}),
	}

	return slog.New(&h), nil
}

type roomService interface {
	RunSweeper(ctx context.Context, interval time.Duration) error
	Close(ctx context.Context)
}

// build wires repositories, the room service and the HTTP handler.
func build(rc *redis.Client, cfg *AppConfig, logger *slog.Logger) (roomService, http.Handler) {
	roomRepo := roomRedis.NewRepo(rc, roomExp, logger)
	connectionRepo := inmemory.NewRepo(logger)
	service := room.NewService(roomRepo, connectionRepo, &room.Config{
		MembersLimit:  cfg.MembersLimit,
		GraceWindow:   cfg.GraceWindow,
		ChatPageSize:  cfg.ChatPageSize,
		ChatRetention: cfg.ChatRetention,
		ChatRateLimit: chatRateLimit,
		ChatRateBurst: chatRateBurst,
		Secret:        cfg.Secret,
		SessionExp:    sessionExp,
	}, logger)

	return service, controller.NewController(service, logger).GetMux()
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	rc, err := redisclient.NewRedisClient(&redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	service, handler := build(rc, cfg, logger)
	server := &http.Server{Addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port), Handler: handler}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.InfoContext(gCtx, "starting server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return service.RunSweeper(gCtx, cfg.GraceWindow/2)
	})

	// graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		logger.InfoContext(ctx, "shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		err := server.Shutdown(shutdownCtx)
		service.Close(shutdownCtx)
		if err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	return nil
}
