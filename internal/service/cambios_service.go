package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventnet/internal/dto"
	"inventnet/internal/infra"
	"inventnet/internal/model"
	"inventnet/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LockProcesarCambios is the single-writer lock held for a whole pass.
const LockProcesarCambios = "lock:procesar-cambios"

// ErrProcesoEnCurso is returned when another pass holds the run lock.
var ErrProcesoEnCurso = errors.New("ya hay un proceso de cambios automáticos en curso")

// errCicloYaProcesado: the compare-and-swap found the anchor or stock already
// moved, i.e. another pass committed this crossing first.
var errCicloYaProcesado = errors.New("ciclo ya procesado")

// CambiosService is the lifecycle reconciliation engine.
type CambiosService interface {
	// ProcesarCambios runs one reconciliation pass. idUsuario nil = automatic run.
	ProcesarCambios(ctx context.Context, idUsuario *int) (*dto.ProcesarCambiosResponse, error)
	// EstadoCiclo reports the lifecycle state of every flagged product.
	EstadoCiclo(ctx context.Context) ([]dto.EstadoCicloResponse, error)
}

// Politica groups the configurable policy points of the engine.
type Politica struct {
	Precedencia Precedencia
	// Location is used to report the run window; elapsed days are measured
	// on absolute time and do not depend on it.
	Location *time.Location
}

type cambiosService struct {
	productoRepo       repository.ProductoRepository
	mermaRepo          repository.MermaRepository
	transformacionRepo repository.TransformacionRepository
	movimientoRepo     repository.MovimientoStockRepository
	locker             infra.Locker
	politica           Politica
	clock              func() time.Time
	logger             zerolog.Logger
}

// CambiosOption customizes a CambiosService (tests inject a fixed clock).
type CambiosOption func(*cambiosService)

func WithClock(clock func() time.Time) CambiosOption {
	return func(s *cambiosService) { s.clock = clock }
}

func NewCambiosService(
	productoRepo repository.ProductoRepository,
	mermaRepo repository.MermaRepository,
	transformacionRepo repository.TransformacionRepository,
	movimientoRepo repository.MovimientoStockRepository,
	locker infra.Locker,
	politica Politica,
	opts ...CambiosOption,
) CambiosService {
	if politica.Precedencia == "" {
		politica.Precedencia = PrecedenciaMerma
	}
	if politica.Location == nil {
		politica.Location = time.UTC
	}
	if locker == nil {
		locker = infra.NewLocalLocker()
	}
	s := &cambiosService{
		productoRepo:       productoRepo,
		mermaRepo:          mermaRepo,
		transformacionRepo: transformacionRepo,
		movimientoRepo:     movimientoRepo,
		locker:             locker,
		politica:           politica,
		clock:              time.Now,
		logger:             log.With().Str("module", "cambios").Logger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ahora is truncated to microseconds: Postgres stores timestamptz at that
// precision and the anchor compare-and-swap needs an exact round trip.
func (s *cambiosService) ahora() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

// ── ProcesarCambios ───────────────────────────────────────────────────────────
//   1. Take the single-writer lock (409 if held)
//   2. Load candidates: active, any lifecycle flag, any stock
//   3. Classify each one at a single instant; skip non-due
//   4. Per due product, one TX: CAS stock+anchor, ledger row, destination credit, movements
//   5. Failures are isolated per product and reported; the pass continues

func (s *cambiosService) ProcesarCambios(ctx context.Context, idUsuario *int) (*dto.ProcesarCambiosResponse, error) {
	liberar, err := s.locker.Adquirir(ctx, LockProcesarCambios)
	if errors.Is(err, infra.ErrLockOcupado) {
		return nil, ErrProcesoEnCurso
	}
	if err != nil {
		return nil, fmt.Errorf("procesar cambios: %w", err)
	}
	defer liberar()

	inicio := s.ahora()
	candidatos, err := s.productoRepo.ListCandidatos(ctx)
	if err != nil {
		return nil, fmt.Errorf("procesar cambios: listar candidatos: %w", err)
	}

	est := dto.Estadisticas{
		TotalProductosProcesados: len(candidatos),
		Desde:                    inicio.In(s.politica.Location),
	}
	errores := make([]dto.ErrorProducto, 0)

	for i := range candidatos {
		if err := ctx.Err(); err != nil {
			// Everything committed so far stays; the rest is picked up next cycle.
			return nil, fmt.Errorf("procesar cambios: interrumpido tras %d de %d productos: %w", i, len(candidatos), err)
		}
		p := &candidatos[i]
		if Clasificar(p, inicio).Estado != EstadoDue {
			continue
		}

		t, err := s.aplicar(ctx, p.ID, inicio, idUsuario)
		switch {
		case errors.Is(err, errCicloYaProcesado):
			est.TotalOmitidos++
			s.logger.Debug().Str("producto_id", p.ID.String()).Msg("crossing no longer due, skipping")
		case err != nil:
			est.TotalErrores++
			errores = append(errores, dto.ErrorProducto{ProductoID: p.ID.String(), Error: err.Error()})
			s.logger.Warn().Err(err).Str("producto_id", p.ID.String()).Msg("transition rolled back")
		case t == TransicionMerma:
			est.TotalMermas++
		case t == TransicionTransformacion:
			est.TotalTransformaciones++
		}
	}

	est.Hasta = s.ahora().In(s.politica.Location)

	ev := s.logger.Info()
	if idUsuario != nil {
		ev = ev.Int("id_usuario", *idUsuario)
	}
	ev.Int("procesados", est.TotalProductosProcesados).
		Int("mermas", est.TotalMermas).
		Int("transformaciones", est.TotalTransformaciones).
		Int("omitidos", est.TotalOmitidos).
		Int("errores", est.TotalErrores).
		Dur("duracion", est.Hasta.Sub(est.Desde)).
		Msg("reconciliation pass finished")

	return &dto.ProcesarCambiosResponse{
		Mensaje:      "Cambios automáticos procesados",
		Estadisticas: est,
		Errores:      errores,
	}, nil
}

// aplicar commits one transition atomically. The product is re-read under a
// row lock and re-classified, so a pass that waited on the lock sees the
// anchor already advanced and skips. Any error rolls back the whole product:
// stock, anchor, ledger rows and movements.
func (s *cambiosService) aplicar(ctx context.Context, id uuid.UUID, ahora time.Time, idUsuario *int) (Transicion, error) {
	var t Transicion
	err := runTx(ctx, s.productoRepo.DB(), func(tx *gorm.DB) error {
		p, err := s.productoRepo.LockByIDTx(tx, id)
		if err != nil {
			return fmt.Errorf("leer producto: %w", err)
		}
		if Clasificar(p, ahora).Estado != EstadoDue {
			return errCicloYaProcesado
		}
		t, err = ElegirTransicion(p, s.politica.Precedencia)
		if err != nil {
			return err
		}

		cantidad := cantidadATransicionar(p)
		stockNuevo := p.StockActual - cantidad
		if stockNuevo < 0 {
			return fmt.Errorf("stock resultante negativo (%d)", stockNuevo)
		}

		// A catalog successor must exist and be active before anything is written.
		var destino *model.Producto
		if t == TransicionTransformacion && p.ProductoDestinoID != nil {
			destino, err = s.productoRepo.LockByIDTx(tx, *p.ProductoDestinoID)
			if err != nil {
				return fmt.Errorf("producto destino %s: %w", p.ProductoDestinoID, err)
			}
			if !destino.Activo {
				return fmt.Errorf("producto destino %s inactivo", destino.ID)
			}
		}

		ok, err := s.productoRepo.AvanzarCicloTx(tx, p.ID, p.FechaUltimaActualizacion, p.StockActual, stockNuevo, ahora)
		if err != nil {
			return fmt.Errorf("avanzar ciclo: %w", err)
		}
		if !ok {
			return errCicloYaProcesado
		}

		switch t {
		case TransicionMerma:
			return s.registrarMermaTx(tx, p, cantidad, stockNuevo, ahora, idUsuario)
		case TransicionTransformacion:
			return s.registrarTransformacionTx(tx, p, destino, cantidad, stockNuevo, ahora, idUsuario)
		default:
			return fmt.Errorf("transición desconocida %q", t)
		}
	})
	return t, err
}

func (s *cambiosService) registrarMermaTx(tx *gorm.DB, p *model.Producto, cantidad, stockNuevo int, ahora time.Time, idUsuario *int) error {
	dias := diasTranscurridos(p.FechaUltimaActualizacion, ahora)
	m := &model.Merma{
		ID:            uuid.New(),
		ProductoID:    p.ID,
		Cantidad:      cantidad,
		CostoUnitario: p.PrecioCosto,
		CostoTotal:    p.PrecioCosto.Mul(decimal.NewFromInt(int64(cantidad))),
		Motivo:        fmt.Sprintf("Cambio de estado automático: %d días sin actualización (tiempo_cambio=%d)", dias, p.TiempoCambio),
		IDUsuario:     idUsuario,
		Automatica:    idUsuario == nil,
		CreatedAt:     ahora,
	}
	if err := s.mermaRepo.CreateTx(tx, m); err != nil {
		return fmt.Errorf("registrar merma: %w", err)
	}

	mov := &model.MovimientoStock{
		ID:            uuid.New(),
		ProductoID:    p.ID,
		Tipo:          model.MovimientoMerma,
		Cantidad:      -cantidad,
		StockAnterior: p.StockActual,
		StockNuevo:    stockNuevo,
		Motivo:        m.Motivo,
		ReferenciaID:  &m.ID,
		CreatedAt:     ahora,
	}
	if err := s.movimientoRepo.CreateTx(tx, mov); err != nil {
		return fmt.Errorf("registrar movimiento: %w", err)
	}
	return nil
}

// registrarTransformacionTx writes the transformation and its movements and
// credits destino when the successor is a catalog product (nil otherwise).
func (s *cambiosService) registrarTransformacionTx(tx *gorm.DB, p, destino *model.Producto, cantidad, stockNuevo int, ahora time.Time, idUsuario *int) error {
	tr := &model.Transformacion{
		ID:                 uuid.New(),
		ProductoOrigenID:   p.ID,
		ProductoDestinoID:  p.ProductoDestinoID,
		DescripcionDestino: p.DescripcionDestino,
		Cantidad:           cantidad,
		IDUsuario:          idUsuario,
		Automatica:         idUsuario == nil,
		CreatedAt:          ahora,
	}

	if err := s.transformacionRepo.CreateTx(tx, tr); err != nil {
		return fmt.Errorf("registrar transformación: %w", err)
	}

	motivo := fmt.Sprintf("Cambio de apariencia automático (tiempo_cambio=%d)", p.TiempoCambio)
	salida := &model.MovimientoStock{
		ID:            uuid.New(),
		ProductoID:    p.ID,
		Tipo:          model.MovimientoTransformacionSalida,
		Cantidad:      -cantidad,
		StockAnterior: p.StockActual,
		StockNuevo:    stockNuevo,
		Motivo:        motivo,
		ReferenciaID:  &tr.ID,
		CreatedAt:     ahora,
	}
	if err := s.movimientoRepo.CreateTx(tx, salida); err != nil {
		return fmt.Errorf("registrar movimiento: %w", err)
	}

	if destino == nil {
		return nil
	}
	if err := s.productoRepo.UpdateStockTx(tx, destino.ID, cantidad); err != nil {
		return fmt.Errorf("acreditar destino: %w", err)
	}
	// Stock arriving on an empty product starts a new crossing for it.
	if destino.StockActual == 0 && destino.TieneCicloDeVida() {
		if err := s.productoRepo.ReiniciarAnclaTx(tx, destino.ID, ahora); err != nil {
			return fmt.Errorf("reiniciar ancla destino: %w", err)
		}
	}
	entrada := &model.MovimientoStock{
		ID:            uuid.New(),
		ProductoID:    destino.ID,
		Tipo:          model.MovimientoTransformacionEntrada,
		Cantidad:      cantidad,
		StockAnterior: destino.StockActual,
		StockNuevo:    destino.StockActual + cantidad,
		Motivo:        fmt.Sprintf("Transformación desde %s", p.Nombre),
		ReferenciaID:  &tr.ID,
		CreatedAt:     ahora,
	}
	if err := s.movimientoRepo.CreateTx(tx, entrada); err != nil {
		return fmt.Errorf("registrar movimiento destino: %w", err)
	}
	return nil
}

func (s *cambiosService) EstadoCiclo(ctx context.Context) ([]dto.EstadoCicloResponse, error) {
	candidatos, err := s.productoRepo.ListCandidatos(ctx)
	if err != nil {
		return nil, err
	}
	ahora := s.ahora()
	result := make([]dto.EstadoCicloResponse, 0, len(candidatos))
	for i := range candidatos {
		p := &candidatos[i]
		c := Clasificar(p, ahora)
		r := dto.EstadoCicloResponse{
			ProductoID:        p.ID.String(),
			Nombre:            p.Nombre,
			Estado:            string(c.Estado),
			StockActual:       p.StockActual,
			TiempoCambio:      p.TiempoCambio,
			DiasTranscurridos: c.DiasTranscurridos,
			DiasRestantes:     c.DiasRestantes,
			FechaAncla:        p.FechaUltimaActualizacion,
		}
		if c.Estado != EstadoDormant {
			if t, err := ElegirTransicion(p, s.politica.Precedencia); err == nil {
				r.Transicion = string(t)
			}
		}
		result = append(result, r)
	}
	return result, nil
}
