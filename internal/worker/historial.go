package worker

// historial.go: cycle history
// Every reconciliation cycle (scheduled or manual) leaves one entry in a
// capped Redis list so operators can see recent outcomes without grepping
// logs. Without Redis the history is kept in memory for the process lifetime.

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"inventnet/internal/dto"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	HistorialKey = "cambios:historial"
	HistorialMax = 100
)

// Resultados y orígenes de un ciclo.
const (
	ResultadoOK      = "ok"
	ResultadoError   = "error"
	ResultadoOmitido = "omitido" // circuit breaker open, cycle skipped
	OrigenProgramado = "programado"
	OrigenManual     = "manual"
)

// CicloRegistro is one history entry.
type CicloRegistro struct {
	Origen       string            `json:"origen"`
	Resultado    string            `json:"resultado"`
	IDUsuario    *int              `json:"id_usuario"`
	Estadisticas *dto.Estadisticas `json:"estadisticas,omitempty"`
	Error        string            `json:"error,omitempty"`
	Inicio       time.Time         `json:"inicio"`
	Fin          time.Time         `json:"fin"`
}

// Historial stores cycle outcomes, newest first.
type Historial struct {
	rdb *redis.Client

	mu      sync.Mutex
	memoria []CicloRegistro
}

func NewHistorial(rdb *redis.Client) *Historial {
	return &Historial{rdb: rdb}
}

// Registrar appends r. Failures are logged, never returned: losing a history
// entry must not affect the cycle itself.
func (h *Historial) Registrar(ctx context.Context, r CicloRegistro) {
	if h == nil {
		return
	}
	if h.rdb == nil {
		h.mu.Lock()
		h.memoria = append([]CicloRegistro{r}, h.memoria...)
		if len(h.memoria) > HistorialMax {
			h.memoria = h.memoria[:HistorialMax]
		}
		h.mu.Unlock()
		return
	}

	data, err := json.Marshal(r)
	if err != nil {
		log.Error().Err(err).Msg("historial: failed to marshal entry")
		return
	}
	pipe := h.rdb.TxPipeline()
	pipe.LPush(ctx, HistorialKey, data)
	pipe.LTrim(ctx, HistorialKey, 0, HistorialMax-1)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Error().Err(err).Str("key", HistorialKey).Msg("historial: failed to push entry")
	}
}

// Listar returns up to n entries, newest first.
func (h *Historial) Listar(ctx context.Context, n int) ([]CicloRegistro, error) {
	if n <= 0 || n > HistorialMax {
		n = HistorialMax
	}
	if h == nil {
		return []CicloRegistro{}, nil
	}
	if h.rdb == nil {
		h.mu.Lock()
		defer h.mu.Unlock()
		if n > len(h.memoria) {
			n = len(h.memoria)
		}
		out := make([]CicloRegistro, n)
		copy(out, h.memoria[:n])
		return out, nil
	}

	raw, err := h.rdb.LRange(ctx, HistorialKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("historial: %w", err)
	}
	out := make([]CicloRegistro, 0, len(raw))
	for _, item := range raw {
		var r CicloRegistro
		if err := json.Unmarshal([]byte(item), &r); err != nil {
			log.Warn().Err(err).Msg("historial: skipping unreadable entry")
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
