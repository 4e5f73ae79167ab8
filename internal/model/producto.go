package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Producto is a catalog item. The lifecycle fields drive the automatic
// merma / transformación pass:
//   - CambiaEstado: eligible for write-off once TiempoCambio days have passed
//   - CambiaApariencia: eligible for transformation into a successor
//
// FechaUltimaActualizacion is the anchor elapsed time is measured from. It is
// set at creation and advanced every time a transition is committed.
type Producto struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CodigoBarras string    `gorm:"uniqueIndex;not null"`
	Nombre       string    `gorm:"index;not null"`
	Descripcion  *string
	Categoria    string          `gorm:"not null"`
	PrecioCosto  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	PrecioVenta  decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	StockActual  int             `gorm:"not null;default:0"`
	StockMinimo  int             `gorm:"not null;default:5"`
	UnidadMedida string          `gorm:"not null;default:'unidad'"`
	Activo       bool            `gorm:"not null;default:true"`

	CambiaEstado             bool      `gorm:"not null;default:false"`
	CambiaApariencia         bool      `gorm:"not null;default:false"`
	TiempoCambio             int       `gorm:"not null;default:0"` // days
	FechaUltimaActualizacion time.Time `gorm:"not null"`

	// CantidadCambio limits each transition to a partial quantity; nil = full stock
	CantidadCambio     *int
	ProductoDestinoID  *uuid.UUID `gorm:"type:uuid"`
	DescripcionDestino *string

	CreatedAt time.Time
	UpdatedAt time.Time

	ProductoDestino *Producto `gorm:"foreignKey:ProductoDestinoID"`
}

// TieneCicloDeVida reports whether any lifecycle flag is set.
func (p *Producto) TieneCicloDeVida() bool {
	return p.CambiaEstado || p.CambiaApariencia
}

// TieneDestino reports whether a transformation has somewhere to go.
func (p *Producto) TieneDestino() bool {
	return p.ProductoDestinoID != nil || (p.DescripcionDestino != nil && *p.DescripcionDestino != "")
}
