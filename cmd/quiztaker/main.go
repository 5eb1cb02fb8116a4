package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/letsssgooo/quizTaker/internal/api"
	"github.com/letsssgooo/quizTaker/internal/cli"
	"github.com/letsssgooo/quizTaker/internal/config"
	"github.com/letsssgooo/quizTaker/internal/grading"
	"github.com/letsssgooo/quizTaker/internal/lib/slogcustom"
	"github.com/letsssgooo/quizTaker/internal/session"
	"github.com/letsssgooo/quizTaker/internal/storage"
	"github.com/letsssgooo/quizTaker/internal/storage/postgres"
	"github.com/letsssgooo/quizTaker/internal/storage/sqlite"
)

func main() {
	cfg := config.Load()

	flagBackend := pflag.String("backend", cfg.BackendURL, "base url of the quiz backend")
	flagToken := pflag.String("token", cfg.Token, "student api token")
	flagResume := pflag.String("resume", "", "session id to resume")
	flagStore := pflag.String("store", cfg.StoreBackend, "snapshot store backend: sqlite, postgres, memory")
	flagLogLevel := pflag.String("log-level", cfg.LogLevel, "log level: debug, info, warn, error")
	pflag.Parse()

	log := slog.New(slogcustom.NewCustomHandler(os.Stderr, slogcustom.ParseLevel(*flagLogLevel)))
	slog.SetDefault(log)
	slog.Info("starting quiz taker...")

	ctx := context.Background()

	store, closeStore, err := buildStore(ctx, *flagStore, cfg)
	if err != nil {
		slog.Error("failed to open snapshot store", "store", *flagStore, "err", err)
		os.Exit(1)
	}

	defer closeStore()

	client := api.NewHTTPClient(*flagBackend, *flagToken)

	gradingCfg := grading.Config{
		KeywordThreshold: cfg.KeywordThreshold,
		MinKeywordLen:    cfg.MinKeywordLen,
	}

	engine := session.NewEngine(store, client, gradingCfg)

	app := cli.NewApp(client, engine, store, os.Stdin, os.Stdout)

	if err = app.Run(ctx, *flagResume); err != nil {
		slog.Error("quiz taker stopped with error", "err", err)
		os.Exit(1)
	}
}

func buildStore(
	ctx context.Context,
	backend string,
	cfg *config.Config,
) (storage.SnapshotStore, func(), error) {
	switch backend {
	case "memory":
		return storage.NewMemoryStorage(), func() {}, nil
	case "postgres":
		store, err := postgres.NewStorage(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}

		return store, store.Close, nil
	default:
		store, err := sqlite.NewStorage(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}

		return store, func() { _ = store.Close() }, nil
	}
}
