package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inventnet/internal/dto"
)

// InternalKeyHeader authenticates service-to-service calls to the engine.
const InternalKeyHeader = "X-Internal-Key"

// maxCuerpoError bounds how much of a failed response body ends up in logs.
const maxCuerpoError = 512

var (
	// ErrTransporte: the backend could not be reached (DNS, refused, timeout).
	ErrTransporte = errors.New("cambios: backend unreachable")
	// ErrRespuestaInvalida: 2xx with a body that is not the expected summary.
	ErrRespuestaInvalida = errors.New("cambios: malformed response")
)

// HTTPStatusError is returned when the backend answers with a non-2xx status.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Body       string // truncated to 512 bytes
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("cambios: %s returned %d: %s", e.URL, e.StatusCode, e.Body)
}

// respuestaCambios mirrors dto.ProcesarCambiosResponse. Only the three
// counters are required, as pointers so a missing field is told apart from a
// zero; the extras are kept raw and parsed best-effort.
type respuestaCambios struct {
	Estadisticas *struct {
		TotalProductosProcesados *int            `json:"total_productos_procesados"`
		TotalMermas              *int            `json:"total_mermas"`
		TotalTransformaciones    *int            `json:"total_transformaciones"`
		TotalOmitidos            json.RawMessage `json:"total_omitidos"`
		TotalErrores             json.RawMessage `json:"total_errores"`
		Desde                    json.RawMessage `json:"desde"`
		Hasta                    json.RawMessage `json:"hasta"`
	} `json:"estadisticas"`
}

// formatosFecha accepted for desde/hasta, most specific first.
var formatosFecha = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// enteroOpcional reads a number or a numeric string; anything else is 0.
func enteroOpcional(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return v
		}
	}
	return 0
}

// fechaOpcional reads a timestamp in any of formatosFecha; anything else is zero.
func fechaOpcional(raw json.RawMessage) time.Time {
	var s string
	if len(raw) == 0 || json.Unmarshal(raw, &s) != nil {
		return time.Time{}
	}
	for _, f := range formatosFecha {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// CambiosClient posts reconciliation requests to the backend entry point.
// The scheduler goes through HTTP, not an in-process call, so a scheduled
// run is observable and authorized exactly like a manual one.
type CambiosClient struct {
	baseURL     string
	internalKey string
	httpClient  *http.Client
}

// NewCambiosClient: timeout bounds the whole request, body included.
func NewCambiosClient(baseURL, internalKey string, timeout time.Duration) *CambiosClient {
	return &CambiosClient{
		baseURL:     strings.TrimRight(baseURL, "/"),
		internalKey: internalKey,
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Endpoint is the full URL the client posts to.
func (c *CambiosClient) Endpoint() string {
	return c.baseURL + "/api/mermas/procesar-cambios"
}

// ProcesarCambios issues one run. idUsuario nil = automatic run.
func (c *CambiosClient) ProcesarCambios(ctx context.Context, idUsuario *int) (*dto.Estadisticas, error) {
	body, err := json.Marshal(dto.ProcesarCambiosRequest{IDUsuario: idUsuario})
	if err != nil {
		return nil, fmt.Errorf("cambios: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("cambios: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.internalKey != "" {
		req.Header.Set(InternalKeyHeader, c.internalKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransporte, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxCuerpoError))
		return nil, &HTTPStatusError{URL: c.Endpoint(), StatusCode: resp.StatusCode, Body: string(raw)}
	}

	var parsed respuestaCambios
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRespuestaInvalida, err)
	}
	e := parsed.Estadisticas
	if e == nil || e.TotalProductosProcesados == nil || e.TotalMermas == nil || e.TotalTransformaciones == nil {
		return nil, fmt.Errorf("%w: estadisticas incompletas", ErrRespuestaInvalida)
	}
	return &dto.Estadisticas{
		TotalProductosProcesados: *e.TotalProductosProcesados,
		TotalMermas:              *e.TotalMermas,
		TotalTransformaciones:    *e.TotalTransformaciones,
		TotalOmitidos:            enteroOpcional(e.TotalOmitidos),
		TotalErrores:             enteroOpcional(e.TotalErrores),
		Desde:                    fechaOpcional(e.Desde),
		Hasta:                    fechaOpcional(e.Hasta),
	}, nil
}
