package worker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"inventnet/internal/dto"
	"inventnet/internal/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runnerFunc func(ctx context.Context, idUsuario *int) (*dto.Estadisticas, error)

func (f runnerFunc) ProcesarCambios(ctx context.Context, idUsuario *int) (*dto.Estadisticas, error) {
	return f(ctx, idUsuario)
}

type senderFunc func(to string, est dto.Estadisticas) error

func (f senderFunc) EnviarResumenCambios(to string, est dto.Estadisticas, _ *time.Location) error {
	return f(to, est)
}

func backend(t *testing.T, status int, body string) *infra.CambiosClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return infra.NewCambiosClient(srv.URL, "k", 5*time.Second)
}

func TestRunScheduledCycleErrorHTTPNoPropaga(t *testing.T) {
	h := NewHistorial(nil)
	s, err := NewScheduler(SchedulerConfig{
		Runner:    backend(t, http.StatusInternalServerError, "boom"),
		Historial: h,
	})
	require.NoError(t, err)

	assert.NotPanics(t, s.RunScheduledCycle)

	regs, err := h.Listar(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, regs, 1)
	assert.Equal(t, ResultadoError, regs[0].Resultado)
	assert.Equal(t, OrigenProgramado, regs[0].Origen)
	assert.Contains(t, regs[0].Error, "500")
}

func TestRunManualCycleDevuelveResumen(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{
		Runner: backend(t, http.StatusOK, `{"estadisticas":{"total_productos_procesados":1,"total_mermas":1,"total_transformaciones":0}}`),
	})
	require.NoError(t, err)

	est, err := s.RunManualCycle(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, est.TotalProductosProcesados)
	assert.Equal(t, 1, est.TotalMermas)
	assert.Equal(t, 0, est.TotalTransformaciones)
}

func TestRunManualCycleFallos(t *testing.T) {
	cases := []struct {
		name   string
		runner CambiosRunner
		check  func(t *testing.T, err error)
	}{
		{
			name:   "estado 500",
			runner: backend(t, http.StatusInternalServerError, "boom"),
			check: func(t *testing.T, err error) {
				var statusErr *infra.HTTPStatusError
				assert.True(t, errors.As(err, &statusErr))
			},
		},
		{
			name:   "cuerpo malformado",
			runner: backend(t, http.StatusOK, `{"estadisticas":{}}`),
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, infra.ErrRespuestaInvalida) },
		},
		{
			name: "panic en el runner",
			runner: runnerFunc(func(context.Context, *int) (*dto.Estadisticas, error) {
				panic("nil map")
			}),
			check: func(t *testing.T, err error) { assert.ErrorContains(t, err, "panicked") },
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewScheduler(SchedulerConfig{Runner: tc.runner})
			require.NoError(t, err)

			est, err := s.RunManualCycle(context.Background(), nil)
			assert.Nil(t, est)
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestRunManualCycleTimeout(t *testing.T) {
	s, err := NewScheduler(SchedulerConfig{
		Timeout: 20 * time.Millisecond,
		Runner: runnerFunc(func(ctx context.Context, _ *int) (*dto.Estadisticas, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}),
	})
	require.NoError(t, err)

	_, err = s.RunManualCycle(context.Background(), nil)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRunScheduledCycleBreakerAbiertoOmite(t *testing.T) {
	var llamadas int32
	falla := runnerFunc(func(context.Context, *int) (*dto.Estadisticas, error) {
		atomic.AddInt32(&llamadas, 1)
		return nil, infra.ErrTransporte
	})
	h := NewHistorial(nil)
	s, err := NewScheduler(SchedulerConfig{
		Runner:    falla,
		Breaker:   infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour}),
		Historial: h,
	})
	require.NoError(t, err)

	s.RunScheduledCycle()
	s.RunScheduledCycle()

	assert.Equal(t, int32(1), atomic.LoadInt32(&llamadas))
	regs, _ := h.Listar(context.Background(), 10)
	require.Len(t, regs, 2)
	assert.Equal(t, ResultadoOmitido, regs[0].Resultado)
	assert.Equal(t, ResultadoError, regs[1].Resultado)
}

func TestRunScheduledCycleConflictoNoAbreBreaker(t *testing.T) {
	cb := infra.NewCircuitBreaker(infra.CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour})
	s, err := NewScheduler(SchedulerConfig{
		Runner:  backend(t, http.StatusConflict, `{"detail":"en curso"}`),
		Breaker: cb,
	})
	require.NoError(t, err)

	s.RunScheduledCycle()
	assert.Equal(t, infra.CBClosed, cb.State())
}

func TestRunScheduledCycleNotifica(t *testing.T) {
	enviados := make(chan dto.Estadisticas, 1)
	email := NewEmailWorker(senderFunc(func(to string, est dto.Estadisticas) error {
		assert.Equal(t, "ops@example.com", to)
		enviados <- est
		return nil
	}), time.UTC)

	s, err := NewScheduler(SchedulerConfig{
		Runner: runnerFunc(func(context.Context, *int) (*dto.Estadisticas, error) {
			return &dto.Estadisticas{TotalProductosProcesados: 3, TotalMermas: 2}, nil
		}),
		Dispatcher:     NewDispatcher(nil, email),
		NotificarEmail: "ops@example.com",
	})
	require.NoError(t, err)

	s.RunScheduledCycle()

	select {
	case est := <-enviados:
		assert.Equal(t, 2, est.TotalMermas)
	case <-time.After(2 * time.Second):
		t.Fatal("summary email was not sent")
	}
}

func TestNewSchedulerSpecInvalida(t *testing.T) {
	_, err := NewScheduler(SchedulerConfig{
		Spec:   "cada seis horas",
		Runner: runnerFunc(func(context.Context, *int) (*dto.Estadisticas, error) { return nil, nil }),
	})
	assert.Error(t, err)

	_, err = NewScheduler(SchedulerConfig{Spec: "0 */6 * * *"})
	assert.Error(t, err, "runner is required")
}

func TestSchedulerStartStopEnZona(t *testing.T) {
	bogota, err := time.LoadLocation("America/Bogota")
	require.NoError(t, err)
	s, err := NewScheduler(SchedulerConfig{
		Spec:     "0 */6 * * *",
		Location: bogota,
		Runner:   runnerFunc(func(context.Context, *int) (*dto.Estadisticas, error) { return &dto.Estadisticas{}, nil }),
	})
	require.NoError(t, err)

	s.Start()
	next := s.NextRun().In(bogota)
	assert.Equal(t, 0, next.Hour()%6, "fires on 6-hour boundaries of the configured zone")
	assert.Equal(t, 0, next.Minute())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
