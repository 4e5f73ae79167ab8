package dto

import "time"

// ─── POST /api/mermas/procesar-cambios ───────────────────────────────────────

// ProcesarCambiosRequest: IDUsuario nil designates an automatic run.
type ProcesarCambiosRequest struct {
	IDUsuario *int `json:"id_usuario" validate:"omitempty,min=1"`
}

// Estadisticas is the run summary. The first three counters are the wire
// contract consumed by the scheduler; the rest are informational.
type Estadisticas struct {
	TotalProductosProcesados int       `json:"total_productos_procesados"`
	TotalMermas              int       `json:"total_mermas"`
	TotalTransformaciones    int       `json:"total_transformaciones"`
	TotalOmitidos            int       `json:"total_omitidos"`
	TotalErrores             int       `json:"total_errores"`
	Desde                    time.Time `json:"desde"`
	Hasta                    time.Time `json:"hasta"`
}

// ErrorProducto describes one product whose transition was rolled back.
type ErrorProducto struct {
	ProductoID string `json:"producto_id"`
	Error      string `json:"error"`
}

type ProcesarCambiosResponse struct {
	Mensaje      string          `json:"mensaje"`
	Estadisticas Estadisticas    `json:"estadisticas"`
	Errores      []ErrorProducto `json:"errores"`
}

// ─── GET /api/productos/ciclo ────────────────────────────────────────────────

type EstadoCicloResponse struct {
	ProductoID        string    `json:"producto_id"`
	Nombre            string    `json:"nombre"`
	Estado            string    `json:"estado"`               // dormant | armed | due
	Transicion        string    `json:"transicion,omitempty"` // merma | transformacion
	StockActual       int       `json:"stock_actual"`
	TiempoCambio      int       `json:"tiempo_cambio"`
	DiasTranscurridos int       `json:"dias_transcurridos"`
	DiasRestantes     int       `json:"dias_restantes"`
	FechaAncla        time.Time `json:"fecha_ultima_actualizacion"`
}
