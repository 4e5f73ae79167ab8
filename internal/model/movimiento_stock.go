package model

import (
	"time"

	"github.com/google/uuid"
)

// Tipos de movimiento de stock.
const (
	MovimientoMerma                 = "merma"
	MovimientoTransformacionSalida  = "transformacion_salida"
	MovimientoTransformacionEntrada = "transformacion_entrada"
	MovimientoAjusteManual          = "ajuste_manual"
	MovimientoIngreso               = "ingreso"
)

// MovimientoStock registra cada cambio de stock en un producto.
// Se crea en la misma transacción que la merma, la transformación o el ajuste.
type MovimientoStock struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Tipo          string    `gorm:"not null"`
	Cantidad      int       `gorm:"not null"` // positive = entrada, negative = salida
	StockAnterior int       `gorm:"not null"`
	StockNuevo    int       `gorm:"not null"`
	Motivo        string
	ReferenciaID  *uuid.UUID `gorm:"type:uuid"` // merma_id or transformacion_id if applicable
	CreatedAt     time.Time

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

// TableName overrides GORM's default pluralization (movimiento_stocks → movimientos_stock).
func (MovimientoStock) TableName() string { return "movimientos_stock" }
