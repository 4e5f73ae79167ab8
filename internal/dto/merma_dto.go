package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerFilter is shared by the merma, transformación and movimiento listings.
// Desde / Hasta are RFC 3339 or YYYY-MM-DD.
type LedgerFilter struct {
	ProductoID string `form:"producto_id"`
	Desde      string `form:"desde"`
	Hasta      string `form:"hasta"`
	Automatica string `form:"automatica"` // "true" | "false" | "" (all)
	Tipo       string `form:"tipo"`
	Page       int    `form:"page,default=1"   validate:"min=1"`
	Limit      int    `form:"limit,default=50" validate:"min=1,max=500"`
}

type MermaResponse struct {
	ID             string          `json:"id"`
	ProductoID     string          `json:"producto_id"`
	ProductoNombre string          `json:"producto_nombre,omitempty"`
	Cantidad       int             `json:"cantidad"`
	CostoUnitario  decimal.Decimal `json:"costo_unitario"`
	CostoTotal     decimal.Decimal `json:"costo_total"`
	Motivo         string          `json:"motivo"`
	IDUsuario      *int            `json:"id_usuario"`
	Automatica     bool            `json:"automatica"`
	CreatedAt      time.Time       `json:"created_at"`
}

type MermaListResponse struct {
	Data       []MermaResponse `json:"data"`
	Total      int64           `json:"total"`
	CostoTotal decimal.Decimal `json:"costo_total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

type TransformacionResponse struct {
	ID                 string    `json:"id"`
	ProductoOrigenID   string    `json:"producto_origen_id"`
	ProductoOrigen     string    `json:"producto_origen,omitempty"`
	ProductoDestinoID  *string   `json:"producto_destino_id"`
	DescripcionDestino *string   `json:"descripcion_destino"`
	Cantidad           int       `json:"cantidad"`
	IDUsuario          *int      `json:"id_usuario"`
	Automatica         bool      `json:"automatica"`
	CreatedAt          time.Time `json:"created_at"`
}

type TransformacionListResponse struct {
	Data       []TransformacionResponse `json:"data"`
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	Limit      int                      `json:"limit"`
	TotalPages int                      `json:"total_pages"`
}

type MovimientoResponse struct {
	ID            string    `json:"id"`
	ProductoID    string    `json:"producto_id"`
	Tipo          string    `json:"tipo"`
	Cantidad      int       `json:"cantidad"`
	StockAnterior int       `json:"stock_anterior"`
	StockNuevo    int       `json:"stock_nuevo"`
	Motivo        string    `json:"motivo"`
	ReferenciaID  *string   `json:"referencia_id"`
	CreatedAt     time.Time `json:"created_at"`
}

type MovimientoListResponse struct {
	Data       []MovimientoResponse `json:"data"`
	Total      int64                `json:"total"`
	Page       int                  `json:"page"`
	Limit      int                  `json:"limit"`
	TotalPages int                  `json:"total_pages"`
}
