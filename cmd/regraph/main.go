package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rendis/regraph/internal/expressions"
	"github.com/rendis/regraph/internal/logging"
	"github.com/rendis/regraph/internal/maintenance"
	"github.com/rendis/regraph/internal/store"
	"github.com/rendis/regraph/internal/validation"
	"github.com/rendis/regraph/pkg/mcp"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		printVersion()
		return
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "regraph:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := loadConfig()
	logger := buildLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	st, err := store.NewLibSQLStore("file:" + cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate store: %w", err)
	}

	checker, err := buildConditionChecker(cfg.ConditionDialect)
	if err != nil {
		return err
	}

	srv, err := mcp.NewGraphServer(mcp.GraphServerDeps{
		Store:      st,
		Events:     store.NewOperationLog(st),
		Conditions: checker,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	janitor := maintenance.NewJanitor(st, maintenance.Config{
		Schedule:       cfg.MaintenanceSchedule,
		EventRetention: time.Duration(cfg.EventRetentionDays) * 24 * time.Hour,
		SnapshotKeep:   cfg.SnapshotKeep,
		Vacuum:         cfg.Vacuum,
	}, logger)
	if err := janitor.Start(ctx); err != nil {
		return fmt.Errorf("start janitor: %w", err)
	}
	defer janitor.Stop()

	logger.Info("regraph started",
		slog.String("version", version),
		slog.String("db_path", cfg.DBPath),
		slog.String("condition_dialect", cfg.ConditionDialect))

	// Stdio transport: stdout carries the protocol, all logging goes to stderr.
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// buildLogger writes structured logs to stderr, enriched with the graph,
// operation and node ids carried in the request context.
func buildLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	return slog.New(logging.NewCorrelationHandler(inner))
}

func buildConditionChecker(dialect string) (validation.ConditionChecker, error) {
	switch dialect {
	case "cel":
		return expressions.NewCELEngine()
	case "expr":
		return expressions.NewExprEngine(), nil
	case "off":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown condition dialect %q (want cel, expr or off)", dialect)
	}
}
