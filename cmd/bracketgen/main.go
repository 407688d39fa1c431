package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/AdamBeresnev/bracket-engine/internal/bracket"
	"github.com/AdamBeresnev/bracket-engine/internal/config"
	"github.com/AdamBeresnev/bracket-engine/internal/db"
	"github.com/AdamBeresnev/bracket-engine/internal/logger"
	"github.com/AdamBeresnev/bracket-engine/internal/store"
	"github.com/redis/go-redis/v9"
)

const usage = `usage: bracketgen <command> [flags]

commands:
  generate   register participants and build a stage
  show       print a stage
  report     record a game or decide a match
  undo       reopen a completed match
  maplist    draw stages and modes for a set of rounds`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	slog.SetDefault(logger.New(cfg.LogLevel, cfg.LogFormat))

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintln(os.Stderr, usage)
		return 2
	}

	if cmd.readsStored && cfg.StoreBackend == config.BackendMemory {
		return exitCode(fmt.Errorf("%w: %s needs a stage from an earlier run, set STORE_BACKEND to sql or redis",
			bracket.ErrValidation, args[0]))
	}

	ctx := context.Background()
	app := &app{cfg: cfg, out: os.Stdout}
	if cmd.needsStore {
		closeStore, err := app.openStore(ctx)
		if err != nil {
			slog.Error("failed to open store", "backend", cfg.StoreBackend, "error", err)
			return 1
		}
		defer closeStore()
	}

	if err := cmd.run(ctx, app, args[1:]); err != nil {
		return exitCode(err)
	}
	return 0
}

// exitCode reports caller mistakes with 2 and everything else with 1.
func exitCode(err error) int {
	switch {
	case errors.Is(err, bracket.ErrValidation), errors.Is(err, bracket.ErrConsistency):
		slog.Warn("rejected", "error", err)
		return 2
	case errors.Is(err, bracket.ErrNotFound):
		slog.Warn("not found", "error", err)
		return 2
	default:
		slog.Error("command failed", "error", err)
		return 1
	}
}

func (a *app) openStore(ctx context.Context) (func(), error) {
	switch a.cfg.StoreBackend {
	case config.BackendSQL:
		database, err := db.Open(a.cfg.DBDriver, a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(database, a.cfg.DBDriver); err != nil {
			database.Close()
			return nil, err
		}
		a.setStore(store.New(store.NewSQLBackend(database)))
		return func() { database.Close() }, nil

	case config.BackendRedis:
		opts, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}
		a.setStore(store.New(store.NewRedisBackend(client, a.cfg.RedisPrefix)))
		return func() { client.Close() }, nil
	}

	slog.Warn("using the in-memory store, nothing is kept after exit")
	a.setStore(store.New(store.NewMemoryBackend()))
	return func() {}, nil
}
