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

	"github.com/rs/zerolog"

	"github.com/cleanguard/qc-api/internal/config"
	healthhandler "github.com/cleanguard/qc-api/internal/handler/health"
	notificationhandler "github.com/cleanguard/qc-api/internal/handler/notification"
	"github.com/cleanguard/qc-api/internal/notifier"
	"github.com/cleanguard/qc-api/internal/notifier/email"
	"github.com/cleanguard/qc-api/internal/notifier/push"
	"github.com/cleanguard/qc-api/internal/repository/postgres"
	"github.com/cleanguard/qc-api/internal/router"
	"github.com/cleanguard/qc-api/internal/scheduler"
	"github.com/cleanguard/qc-api/pkg/logger"
	"github.com/cleanguard/qc-api/pkg/messaging"
	redisbroker "github.com/cleanguard/qc-api/pkg/messaging/redis"
	"github.com/cleanguard/qc-api/pkg/metrics"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := newLogger(cfg.Logger)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal(err, "failed to connect to database")
	}
	defer db.Close()

	base := postgres.NewBaseRepository(db)
	userRepo := postgres.NewUserRepository(base)
	ticketRepo := postgres.NewTicketRepository(base)
	inspectionRepo := postgres.NewInspectionRepository(base)

	m := metrics.NewMetrics("cleanguard")

	// The broker is optional: without Redis the outcome stream is simply
	// not published and everything else keeps working.
	var broker messaging.Broker
	if cfg.Redis.URL != "" {
		broker, err = redisbroker.NewRedisBroker(redisbroker.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, &log.ZL)
		if err != nil {
			log.Warn("redis unavailable, outcome publishing disabled", "error", err.Error())
			broker = nil
		} else {
			defer broker.Close()
		}
	}

	svcOpts := []notifier.ServiceOption{
		notifier.WithMetrics(m),
		notifier.WithSendTimeout(cfg.Notifier.SendTimeout),
	}
	if broker != nil {
		svcOpts = append(svcOpts, notifier.WithBroker(broker))
	}
	svc := notifier.NewService(cfg.Notifier.Enabled, log, svcOpts...)

	svc.RegisterChannel(email.New(email.Config{
		Host:          cfg.Email.Host,
		Port:          cfg.Email.Port,
		Username:      cfg.Email.Username,
		Password:      cfg.Email.Password,
		From:          cfg.Email.From,
		FromName:      cfg.Email.FromName,
		RatePerSecond: cfg.Email.RatePerSecond,
	}, log, email.WithMetrics(m)))

	svc.RegisterChannel(push.New(push.Config{
		Enabled:         cfg.Push.Enabled,
		CredentialsJSON: cfg.Push.CredentialsJSON,
		CredentialsFile: cfg.Push.CredentialsFile,
		Timeout:         cfg.Push.Timeout,
	}, userRepo, log, push.WithMetrics(m)))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dispatcher := notifier.NewDispatcher(svc, cfg.Notifier.QueueSize, cfg.Notifier.Workers, m, log)
	dispatcher.Start(ctx)

	resolver := notifier.NewResolver(userRepo)

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(scheduler.Config{
			Hour:     cfg.Scheduler.Hour,
			Minute:   cfg.Scheduler.Minute,
			Timezone: cfg.Scheduler.Timezone,
		}, svc, resolver, ticketRepo, inspectionRepo, log, scheduler.WithMetrics(m))
		if err != nil {
			log.Fatal(err, "failed to build scheduler")
		}
		go sched.Start(ctx)
	}

	r := router.NewRouter(
		healthhandler.NewHandler(db, svc),
		notificationhandler.NewHandler(svc, dispatcher, log),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(err, "server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")

	// Stop intake first: once the HTTP server is down nothing can enqueue,
	// so the dispatcher can drain what it already accepted.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "forced shutdown")
	}

	cancel()
	dispatcher.Close()
	log.Info("server stopped")
}

func newLogger(cfg config.LoggerConfig) *logger.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	return logger.NewLogger(&logger.Config{
		Level:      level,
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		Pretty:     cfg.Pretty,
	})
}
