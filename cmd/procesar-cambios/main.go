// cmd/procesar-cambios/main.go — Ejecuta una pasada de cambios automáticos ahora.
// Uso: go run ./cmd/procesar-cambios [-usuario 7] [-url http://localhost:8000]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"

	"inventnet/internal/config"
	"inventnet/internal/infra"
	"inventnet/internal/worker"

	"github.com/rs/zerolog/log"
)

func main() {
	usuario := flag.Int("usuario", 0, "id del usuario que dispara la ejecución (0 = automática)")
	url := flag.String("url", "", "URL base del backend (por defecto API_URL)")
	flag.Parse()

	infra.InitLogger(os.Getenv("APP_ENV"))
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	base := cfg.APIURL
	if *url != "" {
		base = *url
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable: cycle will not be recorded in the shared history")
		rdb = nil
	}

	sched, err := worker.NewScheduler(worker.SchedulerConfig{
		Location:  cfg.CambiosLocation(),
		Timeout:   cfg.CambiosTimeout(),
		Runner:    infra.NewCambiosClient(base, cfg.InternalAPIKey, cfg.CambiosTimeout()),
		Historial: worker.NewHistorial(rdb),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build scheduler")
	}

	var idUsuario *int
	if *usuario > 0 {
		idUsuario = usuario
	}
	est, err := sched.RunManualCycle(context.Background(), idUsuario)
	if err != nil {
		log.Error().Err(err).Msg("procesar-cambios failed")
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(est); err != nil {
		log.Fatal().Err(err).Msg("failed to print summary")
	}
}
