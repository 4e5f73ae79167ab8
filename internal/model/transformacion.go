package model

import (
	"time"

	"github.com/google/uuid"
)

// Transformacion records stock moved from one product into its successor.
// The successor is either a catalog product (ProductoDestinoID) or a free-text
// descriptor (DescripcionDestino) when the result is not sold as its own item.
type Transformacion struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProductoOrigenID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	ProductoDestinoID  *uuid.UUID `gorm:"type:uuid;index"`
	DescripcionDestino *string
	Cantidad           int       `gorm:"not null"`
	IDUsuario          *int      `gorm:"column:id_usuario"`
	Automatica         bool      `gorm:"not null;default:false"`
	CreatedAt          time.Time `gorm:"index"`

	ProductoOrigen  *Producto `gorm:"foreignKey:ProductoOrigenID"`
	ProductoDestino *Producto `gorm:"foreignKey:ProductoDestinoID"`
}

// TableName overrides GORM's default pluralization (transformacions → transformaciones).
func (Transformacion) TableName() string { return "transformaciones" }
