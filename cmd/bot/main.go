package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaenox/brawl-guard/internal/bot"
	"github.com/xaenox/brawl-guard/internal/classifier"
	"github.com/xaenox/brawl-guard/internal/directory"
	"github.com/xaenox/brawl-guard/internal/models"
	"github.com/xaenox/brawl-guard/internal/moderation"
	"github.com/xaenox/brawl-guard/internal/scheduler"
	"github.com/xaenox/brawl-guard/internal/storage"
	"github.com/xaenox/brawl-guard/pkg/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openStorage(cfg config.DatabaseConfig, logger *zap.Logger) (storage.Storage, error) {
	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("Using in-memory storage, records are lost on restart")
		return storage.NewMemoryStorage(), nil
	case config.DriverPostgres:
		logger.Info("Using PostgreSQL storage", zap.String("host", cfg.Postgres.Host))
		store, err := storage.NewPostgresStorage(storage.DatabaseConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		}, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverRedis:
		logger.Info("Using Redis storage")
		store, err := storage.NewRedisStorage(cfg.RedisURL, "guard:", logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		logger.Info("Using SQLite storage", zap.String("path", cfg.Path))
		store, err := storage.NewSQLiteStorage(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func newFilter(cfg *config.Config, logger *zap.Logger) (classifier.Classifier, error) {
	set := classifier.DefaultPatternSet()
	if cfg.Classifier.PatternsFile != "" {
		var err error
		set, err = classifier.LoadPatternSet(cfg.Classifier.PatternsFile)
		if err != nil {
			return nil, err
		}
	}
	logger.Info("Pattern set loaded",
		zap.String("name", set.Name),
		zap.Int("version", set.Version),
		zap.Int("patterns", set.Len()))

	patterns := classifier.NewPatternClassifier(set)
	if !cfg.OpenAI.Moderation {
		return patterns, nil
	}
	logger.Info("OpenAI moderation enabled")
	return classifier.AnyOf{
		patterns,
		classifier.NewModerationClassifier(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger),
	}, nil
}

func serveMetrics(ctx context.Context, addr string, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func main() {
	// .env is optional; real environment variables take precedence
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		// no logger yet: the level is part of the config
		logger, _ := zap.NewProduction()
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Initialize logger
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	store, err := openStorage(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err), zap.String("driver", cfg.Database.Driver))
	}
	defer store.Close()

	filter, err := newFilter(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to load patterns", zap.Error(err), zap.String("path", cfg.Classifier.PatternsFile))
	}

	dir := directory.New(store, cfg.OwnerID)
	moderator := moderation.New(moderation.Settings{GroupID: cfg.GroupID}, dir, filter, logger)

	b, err := bot.New(cfg.Telegram.Token, moderator, cfg.Telegram.RateLimit, logger)
	if err != nil {
		logger.Fatal("Failed to create bot", zap.Error(err))
	}

	sched := scheduler.New(cfg.Modes, cfg.Location, func(ctx context.Context, mode models.Mode) {
		b.Announce(ctx, mode)
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Start(ctx)
	})
	g.Go(func() error {
		return sched.Run(ctx)
	})
	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return serveMetrics(ctx, cfg.Metrics.Addr, logger)
		})
	}

	logger.Info("Guard running",
		zap.Int64("group_id", cfg.GroupID),
		zap.String("timezone", cfg.Location.String()),
		zap.Int("triggers", len(sched.Triggers())))

	if err := g.Wait(); err != nil {
		logger.Error("Bot error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}
