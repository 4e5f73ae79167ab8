package worker

// scheduler.go
// Fires the lifecycle reconciliation on a cron schedule evaluated in the
// configured timezone. Each firing is one HTTP call to the engine entry
// point; the engine owns overlap control and idempotence, so the scheduler
// keeps no state between cycles beyond the circuit breaker.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventnet/internal/dto"
	"inventnet/internal/infra"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// CambiosRunner issues one reconciliation run. *infra.CambiosClient
// implements it.
type CambiosRunner interface {
	ProcesarCambios(ctx context.Context, idUsuario *int) (*dto.Estadisticas, error)
}

// SchedulerConfig holds all dependencies of the scheduler.
type SchedulerConfig struct {
	Spec     string         // cron expression, e.g. "0 */6 * * *"
	Location *time.Location // zone the expression is evaluated in
	Timeout  time.Duration  // bound of one engine call
	Runner   CambiosRunner

	// Optional collaborators; nil disables each.
	Breaker        *infra.CircuitBreaker
	Historial      *Historial
	Dispatcher     *Dispatcher
	NotificarEmail string
}

// Scheduler is owned by the composition root: built once with NewScheduler,
// started with Start and torn down with Stop.
type Scheduler struct {
	cfg     SchedulerConfig
	cron    *cron.Cron
	entryID cron.EntryID
	logger  zerolog.Logger
}

func NewScheduler(cfg SchedulerConfig) (*Scheduler, error) {
	if cfg.Runner == nil {
		return nil, errors.New("scheduler: runner is required")
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 2 * time.Minute
	}
	s := &Scheduler{
		cfg:    cfg,
		logger: log.With().Str("module", "scheduler").Logger(),
	}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(cronLogger{s.logger}),
	)
	if cfg.Spec != "" {
		id, err := s.cron.AddFunc(cfg.Spec, s.RunScheduledCycle)
		if err != nil {
			return nil, fmt.Errorf("scheduler: invalid cron spec %q: %w", cfg.Spec, err)
		}
		s.entryID = id
	}
	return s, nil
}

// Start launches the cron goroutine. It does not block.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().
		Str("spec", s.cfg.Spec).
		Str("timezone", s.cfg.Location.String()).
		Time("next_run", s.NextRun()).
		Msg("scheduler: started")
}

// Stop prevents new cycles and waits for a running one to finish, or for
// ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.logger.Info().Msg("scheduler: stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduler: stop: %w", ctx.Err())
	}
}

// NextRun is the next scheduled firing (zero before Start or without a spec).
func (s *Scheduler) NextRun() time.Time {
	return s.cron.Entry(s.entryID).Next
}

// RunScheduledCycle is the cron callback. It never returns an error and
// never panics: a failed cycle is logged and the next one runs regardless.
func (s *Scheduler) RunScheduledCycle() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("scheduler: cycle panicked")
		}
	}()

	if s.cfg.Breaker != nil && s.cfg.Breaker.State() == infra.CBOpen {
		ahora := time.Now()
		s.logger.Warn().Msg("scheduler: circuit breaker is open, skipping cycle")
		s.cfg.Historial.Registrar(context.Background(), CicloRegistro{
			Origen:    OrigenProgramado,
			Resultado: ResultadoOmitido,
			Error:     infra.ErrCircuitOpen.Error(),
			Inicio:    ahora,
			Fin:       ahora,
		})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	est, err := s.ejecutar(ctx, OrigenProgramado, nil, true)
	if err != nil {
		return
	}
	s.notificar(ctx, est)
}

// RunManualCycle runs one cycle on demand and returns its summary, or nil
// and the error. Manual runs bypass the circuit breaker: an operator asking
// explicitly is the probe.
func (s *Scheduler) RunManualCycle(ctx context.Context, idUsuario *int) (est *dto.Estadisticas, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Interface("panic", r).Msg("scheduler: manual cycle panicked")
			est, err = nil, fmt.Errorf("scheduler: manual cycle panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	return s.ejecutar(ctx, OrigenManual, idUsuario, false)
}

func (s *Scheduler) ejecutar(ctx context.Context, origen string, idUsuario *int, viaBreaker bool) (*dto.Estadisticas, error) {
	inicio := time.Now()

	var est *dto.Estadisticas
	var callErr error
	call := func() error {
		est, callErr = s.cfg.Runner.ProcesarCambios(ctx, idUsuario)
		if esConflicto(callErr) {
			// The engine is up and busy with another run: not a backend failure.
			return nil
		}
		return callErr
	}
	if viaBreaker && s.cfg.Breaker != nil {
		_ = s.cfg.Breaker.Execute(call)
	} else {
		_ = call()
	}

	reg := CicloRegistro{Origen: origen, IDUsuario: idUsuario, Inicio: inicio, Fin: time.Now()}
	if callErr != nil {
		s.logFallo(origen, callErr)
		reg.Resultado = ResultadoError
		reg.Error = callErr.Error()
		s.cfg.Historial.Registrar(context.Background(), reg)
		return nil, callErr
	}

	s.logger.Info().
		Str("origen", origen).
		Int("procesados", est.TotalProductosProcesados).
		Int("mermas", est.TotalMermas).
		Int("transformaciones", est.TotalTransformaciones).
		Int("errores", est.TotalErrores).
		Dur("duracion", reg.Fin.Sub(inicio)).
		Msgf("scheduler: cycle done: %d productos, %d mermas, %d transformaciones",
			est.TotalProductosProcesados, est.TotalMermas, est.TotalTransformaciones)
	reg.Resultado = ResultadoOK
	reg.Estadisticas = est
	s.cfg.Historial.Registrar(context.Background(), reg)
	return est, nil
}

func (s *Scheduler) logFallo(origen string, err error) {
	ev := s.logger.Error().Err(err).Str("origen", origen)
	if c, ok := s.cfg.Runner.(interface{ Endpoint() string }); ok {
		ev = ev.Str("endpoint", c.Endpoint())
	}
	var statusErr *infra.HTTPStatusError
	switch {
	case errors.As(err, &statusErr):
		ev.Int("status", statusErr.StatusCode).Str("body", statusErr.Body).Msg("scheduler: engine returned an error status")
	case errors.Is(err, infra.ErrTransporte), errors.Is(err, context.DeadlineExceeded):
		ev.Msg("scheduler: engine unreachable")
	case errors.Is(err, infra.ErrRespuestaInvalida):
		ev.Msg("scheduler: engine returned a malformed summary")
	default:
		ev.Msg("scheduler: cycle failed")
	}
}

func (s *Scheduler) notificar(ctx context.Context, est *dto.Estadisticas) {
	if s.cfg.Dispatcher == nil || s.cfg.NotificarEmail == "" {
		return
	}
	if est.TotalMermas == 0 && est.TotalTransformaciones == 0 {
		return
	}
	payload := EmailJobPayload{ToEmail: s.cfg.NotificarEmail, Estadisticas: *est}
	if err := s.cfg.Dispatcher.EnqueueEmail(ctx, payload); err != nil {
		s.logger.Error().Err(err).Msg("scheduler: failed to enqueue cycle summary")
	}
}

func esConflicto(err error) bool {
	var statusErr *infra.HTTPStatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == 409
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
