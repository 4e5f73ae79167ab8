package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // CAMBIOS_TIMEZONE must resolve on minimal images

	"inventnet/internal/config"
	"inventnet/internal/infra"
	"inventnet/internal/router"
	"inventnet/internal/worker"

	"github.com/rs/zerolog/log"
)

const workerPoolSize = 2

// @title                      InventNet API
// @version                    1.0
// @description                Ciclo de vida de productos: mermas y transformaciones automáticas.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	infra.InitLogger(os.Getenv("APP_ENV"))

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	infra.InitLogger(cfg.Env)
	if cfg.JWTSecret == "" {
		log.Warn().Msg("JWT_SECRET is empty: operator tokens cannot be validated")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if rdb == nil {
		log.Warn().Msg("REDIS_URL is empty: run lock and cycle history are process-local")
	}

	// Background workers are wired here (composition root) so that the pool
	// and the scheduler share one history, one breaker and one dispatcher.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loc := cfg.CambiosLocation()
	var sender worker.ResumenSender
	if mailer := infra.NewMailer(cfg); mailer != nil {
		sender = mailer
	}
	emailWorker := worker.NewEmailWorker(sender, loc)
	dispatcher := worker.NewDispatcher(rdb, emailWorker)
	worker.StartWorkerPool(ctx, rdb, workerPoolSize, emailWorker)

	historial := worker.NewHistorial(rdb)
	breaker := infra.NewCircuitBreaker(infra.DefaultCBConfig("cambios"))

	var sched *worker.Scheduler
	if cfg.CambiosSchedulerEnabled {
		sched, err = worker.NewScheduler(worker.SchedulerConfig{
			Spec:           cfg.CambiosCron,
			Location:       loc,
			Timeout:        cfg.CambiosTimeout(),
			Runner:         infra.NewCambiosClient(cfg.APIURL, cfg.InternalAPIKey, cfg.CambiosTimeout()),
			Breaker:        breaker,
			Historial:      historial,
			Dispatcher:     dispatcher,
			NotificarEmail: cfg.CambiosNotificarEmail,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to build scheduler")
		}
		if cfg.InternalAPIKey == "" {
			log.Warn().Msg("INTERNAL_API_KEY is empty: scheduled cycles will be rejected with 401")
		}
	}

	r := router.New(cfg, db, rdb, router.Background{
		Breaker:   breaker,
		Historial: historial,
		Scheduler: sched,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.CambiosTimeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("InventNet backend listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()
	if sched != nil {
		sched.Start()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("scheduler did not stop in time")
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	cancel()
	log.Info().Msg("server exited")
}
