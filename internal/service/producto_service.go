package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventnet/internal/dto"
	"inventnet/internal/model"
	"inventnet/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrProductoNoEncontrado = errors.New("producto no encontrado")

// ProductoService covers the operator side of the product lifecycle:
// configuring the automatic change policy and moving stock by hand.
type ProductoService interface {
	ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error)
	ConfigurarCiclo(ctx context.Context, id uuid.UUID, req dto.ConfigurarCicloRequest) (*dto.ProductoResponse, error)
	AjustarStock(ctx context.Context, id uuid.UUID, req dto.AjustarStockRequest) (*dto.AjusteStockResponse, error)
}

type productoService struct {
	repo           repository.ProductoRepository
	movimientoRepo repository.MovimientoStockRepository
	clock          func() time.Time
}

func NewProductoService(repo repository.ProductoRepository, movimientoRepo repository.MovimientoStockRepository) ProductoService {
	return &productoService{repo: repo, movimientoRepo: movimientoRepo, clock: time.Now}
}

func (s *productoService) ahora() time.Time {
	return s.clock().UTC().Truncate(time.Microsecond)
}

func productoToResponse(p *model.Producto) *dto.ProductoResponse {
	resp := &dto.ProductoResponse{
		ID:                       p.ID.String(),
		CodigoBarras:             p.CodigoBarras,
		Nombre:                   p.Nombre,
		Categoria:                p.Categoria,
		PrecioCosto:              p.PrecioCosto,
		PrecioVenta:              p.PrecioVenta,
		StockActual:              p.StockActual,
		StockMinimo:              p.StockMinimo,
		UnidadMedida:             p.UnidadMedida,
		Activo:                   p.Activo,
		CambiaEstado:             p.CambiaEstado,
		CambiaApariencia:         p.CambiaApariencia,
		TiempoCambio:             p.TiempoCambio,
		CantidadCambio:           p.CantidadCambio,
		DescripcionDestino:       p.DescripcionDestino,
		FechaUltimaActualizacion: p.FechaUltimaActualizacion,
	}
	if p.ProductoDestinoID != nil {
		s := p.ProductoDestinoID.String()
		resp.ProductoDestinoID = &s
	}
	return resp
}

func (s *productoService) buscar(ctx context.Context, id uuid.UUID) (*model.Producto, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductoNoEncontrado
		}
		return nil, err
	}
	return p, nil
}

func (s *productoService) ObtenerPorID(ctx context.Context, id uuid.UUID) (*dto.ProductoResponse, error) {
	p, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	return productoToResponse(p), nil
}

// ConfigurarCiclo replaces the lifecycle policy of a product and restarts its
// crossing from now. The row is locked and only the policy columns are
// written, so stock committed by a concurrent pass is kept.
func (s *productoService) ConfigurarCiclo(ctx context.Context, id uuid.UUID, req dto.ConfigurarCicloRequest) (*dto.ProductoResponse, error) {
	if req.TiempoCambio < 0 {
		return nil, ErrTiempoCambioInvalido
	}
	var destinoID *uuid.UUID
	if req.ProductoDestinoID != nil && *req.ProductoDestinoID != "" {
		did, err := uuid.Parse(*req.ProductoDestinoID)
		if err != nil {
			return nil, invalido("producto_destino_id inválido: %v", err)
		}
		if did == id {
			return nil, invalido("un producto no puede transformarse en sí mismo")
		}
		destinoID = &did
	}
	var resp *dto.ProductoResponse
	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.LockByIDTx(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductoNoEncontrado
			}
			return err
		}
		if destinoID != nil {
			destino, err := s.repo.LockByIDTx(tx, *destinoID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("producto destino: %w", ErrProductoNoEncontrado)
				}
				return err
			}
			if !destino.Activo {
				return invalido("el producto destino está inactivo")
			}
		}

		p.CambiaEstado = req.CambiaEstado
		p.CambiaApariencia = req.CambiaApariencia
		p.TiempoCambio = req.TiempoCambio
		p.CantidadCambio = req.CantidadCambio
		p.ProductoDestinoID = destinoID
		p.DescripcionDestino = req.DescripcionDestino
		if p.CambiaApariencia && !p.TieneDestino() {
			return ErrSinDestino
		}
		p.FechaUltimaActualizacion = s.ahora()
		p.ProductoDestino = nil

		if err := s.repo.ActualizarCicloTx(tx, p); err != nil {
			return err
		}
		resp = productoToResponse(p)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// AjustarStock applies a manual delta and records the movement in one TX.
// Stock arriving on an empty lifecycle product starts a new crossing: the
// fresh batch must not inherit the age of the one that was written off.
func (s *productoService) AjustarStock(ctx context.Context, id uuid.UUID, req dto.AjustarStockRequest) (*dto.AjusteStockResponse, error) {
	if req.Delta == 0 {
		return nil, invalido("delta no puede ser cero")
	}
	ahora := s.ahora()
	var resp *dto.AjusteStockResponse

	err := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		p, err := s.repo.LockByIDTx(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductoNoEncontrado
			}
			return err
		}
		if !p.Activo {
			return invalido("el producto está inactivo")
		}
		nuevo := p.StockActual + req.Delta
		if nuevo < 0 {
			return invalido("stock insuficiente: disponible %d, solicitado %d", p.StockActual, -req.Delta)
		}
		if err := s.repo.UpdateStockTx(tx, id, req.Delta); err != nil {
			return err
		}

		reinicia := p.StockActual == 0 && nuevo > 0 && p.TieneCicloDeVida()
		if reinicia {
			if err := s.repo.ReiniciarAnclaTx(tx, id, ahora); err != nil {
				return err
			}
		}

		mov := &model.MovimientoStock{
			ID:            uuid.New(),
			ProductoID:    id,
			Tipo:          req.Tipo,
			Cantidad:      req.Delta,
			StockAnterior: p.StockActual,
			StockNuevo:    nuevo,
			Motivo:        req.Motivo,
			CreatedAt:     ahora,
		}
		if err := s.movimientoRepo.CreateTx(tx, mov); err != nil {
			return err
		}
		resp = &dto.AjusteStockResponse{
			ProductoID:      id.String(),
			StockAnterior:   p.StockActual,
			StockNuevo:      nuevo,
			AnclaReiniciada: reinicia,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
