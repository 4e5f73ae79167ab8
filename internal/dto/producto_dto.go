package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

// ConfigurarCicloRequest sets the lifecycle policy of a product. Applying it
// resets the anchor: a new crossing starts from the moment of configuration.
type ConfigurarCicloRequest struct {
	CambiaEstado       bool    `json:"cambia_estado"`
	CambiaApariencia   bool    `json:"cambia_apariencia"`
	TiempoCambio       int     `json:"tiempo_cambio"        validate:"min=0,max=3650"`
	CantidadCambio     *int    `json:"cantidad_cambio"      validate:"omitempty,min=1"`
	ProductoDestinoID  *string `json:"producto_destino_id"  validate:"omitempty,uuid"`
	DescripcionDestino *string `json:"descripcion_destino"  validate:"omitempty,max=200"`
}

// AjustarStockRequest: Delta positive = entrada, negative = salida.
type AjustarStockRequest struct {
	Delta  int    `json:"delta"  validate:"required"`
	Tipo   string `json:"tipo"   validate:"required,oneof=ingreso ajuste_manual"`
	Motivo string `json:"motivo" validate:"required,min=3,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ProductoResponse struct {
	ID                       string          `json:"id"`
	CodigoBarras             string          `json:"codigo_barras"`
	Nombre                   string          `json:"nombre"`
	Categoria                string          `json:"categoria"`
	PrecioCosto              decimal.Decimal `json:"precio_costo"`
	PrecioVenta              decimal.Decimal `json:"precio_venta"`
	StockActual              int             `json:"stock_actual"`
	StockMinimo              int             `json:"stock_minimo"`
	UnidadMedida             string          `json:"unidad_medida"`
	Activo                   bool            `json:"activo"`
	CambiaEstado             bool            `json:"cambia_estado"`
	CambiaApariencia         bool            `json:"cambia_apariencia"`
	TiempoCambio             int             `json:"tiempo_cambio"`
	CantidadCambio           *int            `json:"cantidad_cambio"`
	ProductoDestinoID        *string         `json:"producto_destino_id"`
	DescripcionDestino       *string         `json:"descripcion_destino"`
	FechaUltimaActualizacion time.Time       `json:"fecha_ultima_actualizacion"`
}

type AjusteStockResponse struct {
	ProductoID      string `json:"producto_id"`
	StockAnterior   int    `json:"stock_anterior"`
	StockNuevo      int    `json:"stock_nuevo"`
	AnclaReiniciada bool   `json:"ancla_reiniciada"`
}
