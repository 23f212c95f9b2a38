package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sonarfleet/sonar-server-go/internal/board"
	"github.com/sonarfleet/sonar-server-go/internal/config"
	"github.com/sonarfleet/sonar-server-go/internal/game"
	"github.com/sonarfleet/sonar-server-go/internal/repository"
	"github.com/sonarfleet/sonar-server-go/internal/server"
)

var (
	configPath = flag.String("config", "", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting sonar server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	rng := rand.New(rand.NewSource(seed(cfg.Board.Seed)))

	boardTemplate, err := loadBoard(cfg.Board, rng)
	if err != nil {
		logger.Fatal("failed to prepare board", zap.Error(err))
	}
	logger.Info("board ready",
		zap.Int("width", boardTemplate.Width()),
		zap.Int("height", boardTemplate.Height()),
		zap.String("source", boardSource(cfg.Board)),
	)

	store, cleanup, err := selectStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize match store", zap.Error(err))
	}
	defer cleanup()

	matchMgr := game.NewManager(store, boardTemplate, rng, logger)
	logger.Info("match manager initialized")

	srv := server.New(cfg.Server, matchMgr, logger)

	go func() {
		if serveErr := srv.Start(); serveErr != nil {
			logger.Error("HTTP server error", zap.Error(serveErr))
		}
	}()

	logger.Info("sonar server initialized",
		zap.String("version", version),
		zap.String("address", cfg.Server.Address),
		zap.Bool("database", cfg.Database.Enabled),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown did not complete cleanly", zap.Error(err))
	}

	logger.Info("sonar server stopped")
}

// loadBoard loads the configured map file, or generates a random board when
// no file is configured.
func loadBoard(cfg config.BoardConfig, rng *rand.Rand) (*board.Board, error) {
	if cfg.Path != "" {
		return board.LoadFile(cfg.Path)
	}
	return board.Generate(rng, board.GenerateOptions{
		Width:         cfg.Width,
		Height:        cfg.Height,
		Islands:       cfg.Islands,
		MinIslandSize: cfg.MinIslandSize,
		MaxIslandSize: cfg.MaxIslandSize,
	})
}

func boardSource(cfg config.BoardConfig) string {
	if cfg.Path != "" {
		return cfg.Path
	}
	return "generated"
}

func seed(configured int64) int64 {
	if configured != 0 {
		return configured
	}
	return time.Now().UnixNano()
}

// selectStore picks postgres when the database is enabled, otherwise the
// in-memory store.
func selectStore(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (game.Store, func(), error) {
	if !cfg.Enabled {
		logger.Info("database disabled; matches are stored in memory")
		return game.NewMemoryStore(), func() {}, nil
	}

	db, err := repository.NewDB(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	stats := db.Stats()
	logger.Info("database connection pool initialized",
		zap.Int32("total_conns", stats.TotalConns()),
		zap.Int32("idle_conns", stats.IdleConns()),
	)

	repo := repository.NewMatchRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}

	return repo, db.Close, nil
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
