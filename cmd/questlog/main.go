package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"questlog/internal/auth"
	"questlog/internal/command"
	"questlog/internal/config"
	"questlog/internal/db"
	"questlog/internal/docstore"
	httpx "questlog/internal/http"
	"questlog/internal/identity"
	"questlog/internal/jobs"
	"questlog/internal/logger"
	"questlog/internal/notify"
	"questlog/internal/quest"
)

func main() {
	boot := zerolog.New(os.Stderr).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		boot.Fatal().Err(err).Msg("config")
	}

	log, err := logger.New().WithLevel(cfg.LogLevel).WithFormat(cfg.LogFormat).Make()
	if err != nil {
		boot.Fatal().Err(err).Msg("logger")
	}

	gdb, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connect")
	}
	if err := db.AutoMigrateAndIndexes(gdb); err != nil {
		log.Fatal().Err(err).Msg("database migrate")
	}

	jobsRepo := &jobs.Repo{DB: gdb}
	store := docstore.NewGormStore(gdb, jobsRepo)
	quests := quest.NewManager(store, identity.NewSystem(), log)
	dispatcher := command.NewDispatcher(quests, log)

	hub := notify.NewHub(log)
	listener, err := notify.NewListener(cfg.DatabaseURL, cfg.NotifyChannel, hub, log)
	if err != nil {
		log.Fatal().Err(err).Msg("notify listener")
	}

	jwtSvc := auth.NewJWT(cfg.JWTSecret)
	r := httpx.NewRouter(cfg, httpx.Deps{
		DB:       gdb,
		JWT:      jwtSvc,
		Quests:   quests,
		Commands: dispatcher,
		History:  store,
		Events:   hub,
		Log:      log,
	})

	// worker
	worker := &jobs.Worker{
		ID:        cfg.WorkerID,
		Repo:      jobsRepo,
		DB:        gdb,
		Publisher: &notify.PgPublisher{DB: gdb, Channel: cfg.NotifyChannel},
		Interval:  cfg.WorkerInterval,
		Log:       log.With().Str("component", "worker").Logger(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	go worker.Run(ctx)
	go listener.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server")
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	log.Info().Msg("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}
