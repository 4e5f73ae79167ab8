package service

import (
	"fmt"
	"time"

	"inventnet/internal/model"
)

// EstadoCiclo is where a product stands relative to its next automatic change.
type EstadoCiclo string

const (
	// EstadoDormant: no lifecycle flag, inactive, or nothing in stock.
	EstadoDormant EstadoCiclo = "dormant"
	// EstadoArmed: flagged, threshold not reached yet.
	EstadoArmed EstadoCiclo = "armed"
	// EstadoDue: threshold reached, the next pass transitions it.
	EstadoDue EstadoCiclo = "due"
)

type Transicion string

const (
	TransicionMerma          Transicion = "merma"
	TransicionTransformacion Transicion = "transformacion"
)

// Precedencia decides which transition wins when both flags are set.
// Merma is the default: it is terminal, and transforming stock already
// flagged for removal would book it twice.
type Precedencia string

const (
	PrecedenciaMerma          Precedencia = "merma"
	PrecedenciaTransformacion Precedencia = "transformacion"
)

const dia = 24 * time.Hour

var (
	ErrSinDestino           = invalido("cambia_apariencia requiere producto_destino_id o descripcion_destino")
	ErrTiempoCambioInvalido = invalido("tiempo_cambio debe ser un entero no negativo")
)

// Clasificacion is the pure evaluation of one product at one instant.
type Clasificacion struct {
	Estado            EstadoCiclo
	DiasTranscurridos int
	DiasRestantes     int
}

// diasTranscurridos counts whole days from ancla to ahora, rounding toward
// negative infinity so a transition never fires a fraction of a day early and
// an anchor in the future never counts as elapsed.
func diasTranscurridos(ancla, ahora time.Time) int {
	d := ahora.Sub(ancla)
	if d >= 0 {
		return int(d / dia)
	}
	return -int((-d + dia - 1) / dia)
}

// Clasificar evaluates p at ahora. It never touches storage.
func Clasificar(p *model.Producto, ahora time.Time) Clasificacion {
	dias := diasTranscurridos(p.FechaUltimaActualizacion, ahora)
	c := Clasificacion{DiasTranscurridos: dias}

	if !p.Activo || !p.TieneCicloDeVida() || p.StockActual <= 0 {
		c.Estado = EstadoDormant
		return c
	}
	if dias >= p.TiempoCambio {
		c.Estado = EstadoDue
		return c
	}
	c.Estado = EstadoArmed
	c.DiasRestantes = p.TiempoCambio - dias
	return c
}

// ElegirTransicion applies the precedence policy to a due product.
// A transformation without a configured successor is not applicable: the
// product falls back to merma when it is also flagged for it, otherwise it is
// reported as misconfigured.
func ElegirTransicion(p *model.Producto, precedencia Precedencia) (Transicion, error) {
	if p.TiempoCambio < 0 {
		return "", ErrTiempoCambioInvalido
	}
	autoDestino := p.ProductoDestinoID != nil && *p.ProductoDestinoID == p.ID
	transformable := p.CambiaApariencia && p.TieneDestino() && !autoDestino

	switch {
	case p.CambiaEstado && p.CambiaApariencia:
		if precedencia == PrecedenciaTransformacion && transformable {
			return TransicionTransformacion, nil
		}
		return TransicionMerma, nil
	case p.CambiaEstado:
		return TransicionMerma, nil
	case p.CambiaApariencia:
		if autoDestino {
			return "", fmt.Errorf("el producto %s no puede transformarse en sí mismo", p.ID)
		}
		if !transformable {
			return "", ErrSinDestino
		}
		return TransicionTransformacion, nil
	}
	return "", fmt.Errorf("el producto %s no tiene cambios automáticos configurados", p.ID)
}

// cantidadATransicionar returns how many units one transition moves:
// the configured partial quantity capped at the current stock, or all of it.
func cantidadATransicionar(p *model.Producto) int {
	if p.StockActual <= 0 {
		return 0
	}
	if p.CantidadCambio != nil && *p.CantidadCambio > 0 && *p.CantidadCambio < p.StockActual {
		return *p.CantidadCambio
	}
	return p.StockActual
}
