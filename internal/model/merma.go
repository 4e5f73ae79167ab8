package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Merma is an append-only write-off record. IDUsuario is nil when the
// automatic reconciliation pass created it.
type Merma struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Cantidad      int             `gorm:"not null"`
	CostoUnitario decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	CostoTotal    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Motivo        string          `gorm:"not null"`
	IDUsuario     *int            `gorm:"column:id_usuario"`
	Automatica    bool            `gorm:"not null;default:false"`
	CreatedAt     time.Time       `gorm:"index"`

	Producto *Producto `gorm:"foreignKey:ProductoID"`
}

func (Merma) TableName() string { return "mermas" }
